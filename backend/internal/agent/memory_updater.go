package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"thoth/backend/internal/constants"
	"thoth/backend/internal/memory"
	"thoth/backend/pkg/logger"
)

// memoryUpdateFormat instructs the model to answer in a flat
// "field: value" list so the reply can be parsed without JSON.
const memoryUpdateFormat = `Given the following query, response, and memory, suggest a field to be added or updated in the memory.
Return only the field name and value.
Ex. field_name: value
if multiple fields are suggested, return them in a list separated by commas.
Ex. field_name: value, field_name: value
if no field is suggested, return None: None
follow the format exactly as shown above (without quotes or brackets (no square brackets or curly brackets) or any other characters)
:
User: %s
AI: %s
Memory: %s
`

// MemoryUpdater proposes long-term memory field updates after a
// completed turn and applies them to the document.
type MemoryUpdater struct {
	llm    Completer
	logger *zap.Logger
}

// NewMemoryUpdater creates a memory updater backed by the given model
// client.
func NewMemoryUpdater(llm Completer) *MemoryUpdater {
	return &MemoryUpdater{
		llm:    llm,
		logger: logger.Get(),
	}
}

// ProposeAndApply asks the model for field updates and applies each
// well-formed "field: value" pair to the store. It reports whether
// anything changed. Failures never propagate: memory maintenance must
// not affect the turn's outcome.
func (u *MemoryUpdater) ProposeAndApply(ctx context.Context, query, response string, store *memory.Store) bool {
	memoryJSON := "{}"
	if data, err := json.Marshal(store.Content()); err == nil {
		memoryJSON = string(data)
	}
	prompt := fmt.Sprintf(memoryUpdateFormat, query, response, memoryJSON)

	resp, err := u.llm.Complete(ctx, openai.ChatCompletionRequest{
		Model: constants.SummaryModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summaryAssistantPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		u.logger.Warn("Memory update proposal failed", zap.Error(err))
		return false
	}
	if len(resp.Choices) == 0 {
		return false
	}

	suggestions := resp.Choices[0].Message.Content
	u.logger.Debug("Suggested memory updates", zap.String("suggestions", suggestions))
	return u.applySuggestions(suggestions, store)
}

// applySuggestions parses comma-separated "field: value" pairs and
// writes them into the store. "None" entries and parts without a colon
// are skipped.
func (u *MemoryUpdater) applySuggestions(suggestions string, store *memory.Store) bool {
	updated := false
	for _, part := range strings.Split(suggestions, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.HasPrefix(part, "None") {
			continue
		}

		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			u.logger.Debug("Skipping malformed memory suggestion", zap.String("part", part))
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])
		if key == "" {
			continue
		}

		store.Set(key, value)
		updated = true
	}
	return updated
}
