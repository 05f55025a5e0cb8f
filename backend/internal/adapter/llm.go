package adapter

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "thoth/backend/pkg/errors"
	"thoth/backend/pkg/logger"
)

// ChatCompleter is the slice of the OpenAI client the agent needs.
// Satisfied by *openai.Client; tests substitute a fake.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI wraps the OpenAI chat completion API with retry and logging.
// The raw request and response types are exposed on purpose: the agent
// loop must append the model's tool_calls back into the conversation
// exactly as received, so hiding them behind simplified types would
// only force a lossy round-trip.
type OpenAI struct {
	client     ChatCompleter
	configured bool
	logger     *zap.Logger
	sleep      func(time.Duration)
}

// NewOpenAI creates an adapter for the given API key. An empty key
// produces an unconfigured adapter whose calls fail fast with a config
// error instead of hitting the network.
func NewOpenAI(apiKey string) *OpenAI {
	a := &OpenAI{
		configured: apiKey != "",
		logger:     logger.Get(),
		sleep:      time.Sleep,
	}
	if a.configured {
		a.client = openai.NewClient(apiKey)
	}
	return a
}

// NewOpenAIWithClient creates an adapter around an existing client.
func NewOpenAIWithClient(client ChatCompleter) *OpenAI {
	return &OpenAI{
		client:     client,
		configured: client != nil,
		logger:     logger.Get(),
		sleep:      time.Sleep,
	}
}

// Configured reports whether an API key was provided.
func (a *OpenAI) Configured() bool {
	return a.configured
}

const maxRetries = 3

// Complete issues one chat completion, retrying transient failures
// with linear backoff.
func (a *OpenAI) Complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if !a.configured {
		return openai.ChatCompletionResponse{}, apperrors.NewConfigMissingRequired("OPENAI_API_KEY")
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			a.logger.Warn("Retrying model request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.String("model", req.Model),
			)
			a.sleep(backoff)
		}

		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		a.logger.Error("Model request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", req.Model),
		)
	}
	if err != nil {
		return openai.ChatCompletionResponse{}, apperrors.NewAgentLLMFailed(req.Model, maxRetries, true, err)
	}

	if len(resp.Choices) == 0 {
		return openai.ChatCompletionResponse{}, apperrors.NewBaseError(apperrors.ErrorTypeAgent, "no choices in model response", nil)
	}

	a.logger.Debug("Model response received",
		zap.String("model", req.Model),
		zap.Int("tool_calls", len(resp.Choices[0].Message.ToolCalls)),
		zap.Bool("has_content", resp.Choices[0].Message.Content != ""),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)
	return resp, nil
}
