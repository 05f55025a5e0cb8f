package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"thoth/backend/internal/constants"
	"thoth/backend/internal/memory"
)

func loadLongTerm(backend memory.Backend) *memory.Store {
	return memory.Load(memory.TierLongTerm, 1, backend)
}

func TestProposeAndApplyMultiplePairs(t *testing.T) {
	llm := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse("location: Toronto, favorite_color: blue"),
	}}
	store := loadLongTerm(newStubBackend())

	updated := NewMemoryUpdater(llm).ProposeAndApply(context.Background(), "I moved to Toronto", "Noted!", store)
	if !updated {
		t.Fatal("Expected updates to be applied")
	}
	if v, _ := store.Get("location"); v != "Toronto" {
		t.Errorf("location = %v, want Toronto", v)
	}
	if v, _ := store.Get("favorite_color"); v != "blue" {
		t.Errorf("favorite_color = %v, want blue", v)
	}

	req := llm.requests[0]
	if req.Model != constants.SummaryModel {
		t.Errorf("Updater must use the cheap model, got %q", req.Model)
	}
	prompt := req.Messages[1].Content
	if !strings.Contains(prompt, "User: I moved to Toronto") || !strings.Contains(prompt, "AI: Noted!") {
		t.Errorf("Prompt missing the turn text: %q", prompt)
	}
	if !strings.Contains(prompt, `"user_profile"`) {
		t.Errorf("Prompt must embed the current memory document: %q", prompt)
	}
}

func TestProposeAndApplyNoneSuggestion(t *testing.T) {
	llm := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse("None: None"),
	}}
	store := loadLongTerm(newStubBackend())
	before := len(store.Content())

	if NewMemoryUpdater(llm).ProposeAndApply(context.Background(), "hi", "hello", store) {
		t.Error("None suggestion must not count as an update")
	}
	if len(store.Content()) != before {
		t.Errorf("Document changed on a None suggestion")
	}
}

func TestProposeAndApplySkipsMalformedParts(t *testing.T) {
	llm := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse("garbage without colon, hometown: Thunder Bay, : orphaned value"),
	}}
	store := loadLongTerm(newStubBackend())

	updated := NewMemoryUpdater(llm).ProposeAndApply(context.Background(), "q", "r", store)
	if !updated {
		t.Fatal("The well-formed pair must still be applied")
	}
	if v, _ := store.Get("hometown"); v != "Thunder Bay" {
		t.Errorf("hometown = %v, want Thunder Bay", v)
	}
	if _, ok := store.Get("garbage without colon"); ok {
		t.Error("Malformed part must be skipped, not stored")
	}
	if _, ok := store.Get(""); ok {
		t.Error("Empty keys must be skipped")
	}
}

func TestProposeAndApplyValueWithColon(t *testing.T) {
	llm := &scriptedCompleter{responses: []openai.ChatCompletionResponse{
		textResponse("homepage: https://example.com"),
	}}
	store := loadLongTerm(newStubBackend())

	if !NewMemoryUpdater(llm).ProposeAndApply(context.Background(), "q", "r", store) {
		t.Fatal("Expected the pair to be applied")
	}
	// Only the first colon splits; the rest stays in the value.
	if v, _ := store.Get("homepage"); v != "https://example.com" {
		t.Errorf("homepage = %v", v)
	}
}

func TestProposeAndApplyModelFailure(t *testing.T) {
	llm := &scriptedCompleter{err: errors.New("timeout")}
	store := loadLongTerm(newStubBackend())
	before := len(store.Content())

	if NewMemoryUpdater(llm).ProposeAndApply(context.Background(), "q", "r", store) {
		t.Error("Model failure must report no update")
	}
	if len(store.Content()) != before {
		t.Errorf("Document changed after a model failure")
	}
}
