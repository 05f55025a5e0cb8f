package agent

import (
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"thoth/backend/internal/constants"
	"thoth/backend/internal/memory"
	"thoth/backend/internal/utils"
)

// buildMessages assembles the fixed message sequence for one turn:
// persona, memory context, optional language directive, optional
// per-query context, then the user query.
func buildMessages(req Request, longTerm, shortTerm *memory.Store) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: constants.PersonaPrompt,
		},
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: buildMemoryContext(longTerm, shortTerm),
		},
	}

	if msg := buildLanguageDirective(req); msg != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: msg,
		})
	}

	if msg := buildQueryContext(req.Context); msg != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: msg,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Query,
	})
	return messages
}

// buildMemoryContext serializes both memory tiers into the context
// system message. Serialization failures degrade to "{}" / "[]" rather
// than aborting the turn.
func buildMemoryContext(longTerm, shortTerm *memory.Store) string {
	userDetails := "{}"
	if longTerm != nil {
		if data, err := json.Marshal(longTerm.Content()); err == nil {
			userDetails = string(data)
		}
	}

	pastConversations := "[]"
	if shortTerm != nil {
		conversations := shortTerm.Conversations()
		if conversations == nil {
			conversations = []interface{}{}
		}
		if data, err := json.Marshal(conversations); err == nil {
			pastConversations = string(data)
		}
	}

	return fmt.Sprintf("Here are the current user details: %s\n\nPast Conversations: %s\n", userDetails, pastConversations)
}

// buildLanguageDirective returns the response-language system message,
// or "" when the preference is English or unset.
func buildLanguageDirective(req Request) string {
	code := req.Language
	if code == "" || code == constants.LanguageCodeEnglish {
		return ""
	}
	name := req.LanguageName
	if name == "" {
		name = utils.GetLanguageName(code)
	}
	return fmt.Sprintf("IMPORTANT: The user has selected %s as their preferred language. You MUST respond in %s. All your responses should be in %s, not English.", name, name, name)
}

// buildQueryContext renders the optional caller-supplied context. Maps
// are JSON-encoded; strings pass through; anything else falls back to
// fmt formatting.
func buildQueryContext(extra interface{}) string {
	if extra == nil {
		return ""
	}
	var rendered string
	switch v := extra.(type) {
	case string:
		if v == "" {
			return ""
		}
		rendered = v
	case map[string]interface{}:
		if len(v) == 0 {
			return ""
		}
		data, err := json.Marshal(v)
		if err != nil {
			rendered = fmt.Sprintf("%v", v)
		} else {
			rendered = string(data)
		}
	default:
		data, err := json.Marshal(v)
		if err != nil {
			rendered = fmt.Sprintf("%v", v)
		} else {
			rendered = string(data)
		}
	}
	return fmt.Sprintf("Additional context for this query: %s", rendered)
}
