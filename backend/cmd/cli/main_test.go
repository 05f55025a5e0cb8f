package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootRequiresQuery(t *testing.T) {
	rootCmd.SetArgs([]string{})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected an error when no query is given")
	}
	if !strings.Contains(err.Error(), "requires at least 1 arg") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFormatOutputPlain(t *testing.T) {
	out, err := formatOutput("what time is it", "It is noon.", false)
	if err != nil {
		t.Fatalf("formatOutput: %v", err)
	}
	if out != "It is noon." {
		t.Errorf("plain output should be the bare response, got %q", out)
	}
}

func TestFormatOutputJSON(t *testing.T) {
	out, err := formatOutput("show me <b>bold</b>", "Here: <b>bold</b>", true)
	if err != nil {
		t.Fatalf("formatOutput: %v", err)
	}

	var decoded struct {
		Query    string `json:"query"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if decoded.Query != "show me <b>bold</b>" || decoded.Response != "Here: <b>bold</b>" {
		t.Errorf("round trip mismatch: %+v", decoded)
	}

	if !strings.HasPrefix(out, "{\n  \"query\"") {
		t.Errorf("expected two-space indented JSON, got %q", out)
	}
	if strings.Contains(out, "\\u003c") {
		t.Errorf("HTML characters should not be escaped, got %q", out)
	}
}

func TestWriteOutputCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "context.json")

	if err := writeOutput(path, "saved response"); err != nil {
		t.Fatalf("writeOutput: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if string(data) != "saved response" {
		t.Errorf("got %q", string(data))
	}
}

func TestColorizeRespectsNoColor(t *testing.T) {
	orig := noColor
	defer func() { noColor = orig }()

	noColor = true
	if got := colorize(colorGreen, "done"); got != "done" {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", got)
	}

	noColor = false
	got := colorize(colorGreen, "done")
	if !strings.Contains(got, colorGreen) || !strings.HasSuffix(got, colorReset) {
		t.Errorf("colorize with noColor=false should wrap in ANSI codes, got %q", got)
	}
}
