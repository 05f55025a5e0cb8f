package webpage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", name, err)
	}
	return path
}

func TestReadReferencesTextFiles(t *testing.T) {
	dir := t.TempDir()
	txt := writeFixture(t, dir, "notes.txt", "plain notes")
	md := writeFixture(t, dir, "readme.md", "# heading")
	py := writeFixture(t, dir, "script.py", "print('hi')")

	refs := ReadReferences([]string{txt, md, py}, 0)
	if len(refs) != 3 {
		t.Fatalf("Expected 3 references, got %d", len(refs))
	}
	if refs[txt] != "plain notes" || refs[md] != "# heading" || refs[py] != "print('hi')" {
		t.Errorf("Reference contents wrong: %+v", refs)
	}
}

func TestReadReferencesTruncation(t *testing.T) {
	dir := t.TempDir()
	long := writeFixture(t, dir, "long.txt", strings.Repeat("a", 200))

	refs := ReadReferences([]string{long}, 50)
	content, ok := refs[long]
	if !ok {
		t.Fatal("Truncated file must still be included")
	}
	if !strings.HasPrefix(content, strings.Repeat("a", 50)) {
		t.Error("Truncated content must keep the leading bytes")
	}
	if !strings.HasSuffix(content, truncationMarker) {
		t.Errorf("Truncated content must end with the marker, got %q", content[len(content)-40:])
	}
}

func TestReadReferencesSkipsUnsupportedAndMissing(t *testing.T) {
	dir := t.TempDir()
	bin := writeFixture(t, dir, "data.bin", "binary junk")
	missing := filepath.Join(dir, "nope.txt")

	refs := ReadReferences([]string{bin, missing}, 0)
	if len(refs) != 0 {
		t.Errorf("Unsupported and missing files must be skipped, got %+v", refs)
	}
}

func TestReadReferencesSkipsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	empty := writeFixture(t, dir, "empty.txt", "")

	refs := ReadReferences([]string{empty}, 0)
	if len(refs) != 0 {
		t.Errorf("Empty files must be skipped, got %+v", refs)
	}
}

func TestReadReferencesSkipsBrokenPDF(t *testing.T) {
	dir := t.TempDir()
	broken := writeFixture(t, dir, "broken.pdf", "not a real pdf")

	refs := ReadReferences([]string{broken}, 0)
	if len(refs) != 0 {
		t.Errorf("Unparseable PDF must be skipped, got %+v", refs)
	}
}

func TestReadReferencesDir(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.txt", "alpha")
	writeFixture(t, dir, "b.md", "beta")
	writeFixture(t, dir, "c.bin", "gamma")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	refs := ReadReferencesDir(dir, 0)
	if len(refs) != 2 {
		t.Fatalf("Expected 2 supported files, got %d: %+v", len(refs), refs)
	}
	if refs[filepath.Join(dir, "a.txt")] != "alpha" || refs[filepath.Join(dir, "b.md")] != "beta" {
		t.Errorf("Directory read contents wrong: %+v", refs)
	}
}

func TestReadReferencesDirMissing(t *testing.T) {
	refs := ReadReferencesDir(filepath.Join(t.TempDir(), "absent"), 0)
	if len(refs) != 0 {
		t.Errorf("Missing directory must yield no references, got %+v", refs)
	}
}
