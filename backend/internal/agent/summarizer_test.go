package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"thoth/backend/internal/constants"
	apperrors "thoth/backend/pkg/errors"
)

func TestSummarizeReturnsModelSummary(t *testing.T) {
	llm := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse("User asked about the capital of France; the assistant answered Paris."),
	}}
	s := NewSummarizer(llm)

	got := s.Summarize(context.Background(), "What is the capital of France?", "Paris.")
	if got != "User asked about the capital of France; the assistant answered Paris." {
		t.Errorf("Unexpected summary: %q", got)
	}

	req := llm.requests[0]
	if req.Model != constants.SummaryModel {
		t.Errorf("Summaries must use the cheap model, got %q", req.Model)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("Unexpected message shape: %+v", req.Messages)
	}
	prompt := req.Messages[1].Content
	if !strings.Contains(prompt, "Summarize the following conversation in a single short paragraph (max 50 words):") {
		t.Errorf("Prompt missing the summary instruction: %q", prompt)
	}
	if !strings.Contains(prompt, "User: What is the capital of France?") || !strings.Contains(prompt, "AI: Paris.") {
		t.Errorf("Prompt missing the turn text: %q", prompt)
	}
	if len(req.Tools) != 0 {
		t.Errorf("Summary calls must not offer tools")
	}
}

func TestSummarizeStripsLeadingBoilerplate(t *testing.T) {
	cases := map[string]string{
		"Summary: short and sweet":            "short and sweet",
		"Here's a summary: covered the paper": "covered the paper",
		"Here is a summary: two topics":       "two topics",
		"  Plain summary without prefix  ":    "Plain summary without prefix",
	}
	for raw, want := range cases {
		llm := &scriptedCompleter{responses: []openai.ChatCompletionResponse{textResponse(raw)}}
		got := NewSummarizer(llm).Summarize(context.Background(), "q", "r")
		if got != want {
			t.Errorf("Summarize(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestSummarizeMissingCredentialFallback(t *testing.T) {
	llm := &scriptedCompleter{err: apperrors.NewConfigMissingRequired("OPENAI_API_KEY")}
	got := NewSummarizer(llm).Summarize(context.Background(), "q", "r")
	if got != "Summary not available - OPENAI API key not found." {
		t.Errorf("Unexpected credential fallback: %q", got)
	}
}

func TestSummarizeFailureFallback(t *testing.T) {
	llm := &scriptedCompleter{err: errors.New("connection reset")}
	got := NewSummarizer(llm).Summarize(context.Background(), "q", "r")
	if got != "Error generating summary." {
		t.Errorf("Unexpected failure fallback: %q", got)
	}
}
