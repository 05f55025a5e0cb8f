package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"thoth/backend/internal/constants"
	apperrors "thoth/backend/pkg/errors"
	"thoth/backend/pkg/logger"
)

// summaryAssistantPrompt is the system prompt shared by the summarizer
// and the memory updater.
const summaryAssistantPrompt = "You are a personal assistant. The user is asking you a question. Answer briefly and concisely. If one sentence is enough, answer with one sentence. "

// Fallback summaries. A turn is recorded in short-term memory even when
// summarization fails, with one of these in place of a real summary.
const (
	summaryUnavailable = "Summary not available - OPENAI API key not found."
	summaryFailed      = "Error generating summary."
)

// summaryPrefixes are dropped from the head of model output.
var summaryPrefixes = []string{"Summary:", "Here's a summary:", "Here is a summary:"}

// Summarizer condenses a completed turn into a one-paragraph summary
// for the short-term conversation log.
type Summarizer struct {
	llm    Completer
	logger *zap.Logger
}

// NewSummarizer creates a summarizer backed by the given model client.
func NewSummarizer(llm Completer) *Summarizer {
	return &Summarizer{
		llm:    llm,
		logger: logger.Get(),
	}
}

// Summarize returns a short summary of a query/response pair. It never
// fails: credential problems and model errors degrade to fixed fallback
// strings so the caller can always append the turn.
func (s *Summarizer) Summarize(ctx context.Context, query, response string) string {
	prompt := fmt.Sprintf("Summarize the following conversation in a single short paragraph (max 50 words):\n\nUser: %s\nAI: %s\n\nSummary:", query, response)

	resp, err := s.llm.Complete(ctx, openai.ChatCompletionRequest{
		Model: constants.SummaryModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summaryAssistantPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		if apperrors.IsErrorType(err, apperrors.ErrorTypeConfig) {
			s.logger.Warn("Summarizer has no API credentials", zap.Error(err))
			return summaryUnavailable
		}
		s.logger.Error("Summary generation failed", zap.Error(err))
		return summaryFailed
	}
	if len(resp.Choices) == 0 {
		return summaryFailed
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	for _, prefix := range summaryPrefixes {
		if strings.HasPrefix(summary, prefix) {
			summary = strings.TrimSpace(summary[len(prefix):])
		}
	}

	s.logger.Debug("Generated conversation summary", zap.Int("length", len(summary)))
	return summary
}
