package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"thoth/backend/internal/constants"
	"thoth/backend/internal/memory"
	"thoth/backend/internal/tools"
	apperrors "thoth/backend/pkg/errors"
	"thoth/backend/pkg/logger"
)

// Completer is the model-call dependency of the agent. Satisfied by
// *adapter.OpenAI; tests substitute a fake.
type Completer interface {
	Complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Request carries one user query through the orchestrator.
type Request struct {
	Query        string
	UserID       int64
	ChatID       string
	Source       string
	Language     string
	LanguageName string
	Context      interface{}
	MaxTokens    int
	Temperature  float32
}

// Orchestrator drives one query-to-answer cycle, including zero or
// more tool-call round-trips against the registry.
type Orchestrator struct {
	llm      Completer
	registry *tools.Registry
	model    string
	logger   *zap.Logger
}

// NewOrchestrator creates an orchestrator bound to a model name.
func NewOrchestrator(llm Completer, registry *tools.Registry, model string) *Orchestrator {
	return &Orchestrator{
		llm:      llm,
		registry: registry,
		model:    model,
		logger:   logger.Get(),
	}
}

// Run executes the tool-calling loop for one query against the given
// memory views. A nil error means the returned text is a final answer;
// a non-nil error means the turn failed and memory must not be updated
// for it. Hitting the tool-round cap is not an error: whatever partial
// assistant content exists is returned, even when empty.
func (o *Orchestrator) Run(ctx context.Context, req Request, longTerm, shortTerm *memory.Store) (string, error) {
	o.logger.Debug("Starting agent turn",
		zap.Int64("user_id", req.UserID),
		zap.String("chat_id", req.ChatID),
		zap.String("source", req.Source),
	)

	// 1. Compose the message sequence.
	messages := buildMessages(req, longTerm, shortTerm)

	// 2. Prepare the request template shared by every round-trip.
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	chatReq := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Tools:       o.registry.MappedFunctions(),
		ToolChoice:  "auto",
	}

	source := req.Source
	if source == "" {
		source = constants.SourceWebsite
	}
	reqCtx := tools.RequestContext{
		UserID: req.UserID,
		Query:  req.Query,
		Source: source,
		ChatID: req.ChatID,
	}

	// 3. First model call.
	resp, err := o.llm.Complete(ctx, chatReq)
	if err != nil {
		return "", err
	}
	msg := resp.Choices[0].Message
	finishReason := resp.Choices[0].FinishReason

	// 4. Tool-dispatch loop.
	for round := 0; len(msg.ToolCalls) > 0; round++ {
		if round >= constants.MaxToolRounds {
			o.logger.Warn("Tool round cap reached; returning partial content",
				zap.Int("rounds", round),
				zap.Int("pending_tool_calls", len(msg.ToolCalls)),
			)
			return msg.Content, nil
		}

		// The assistant message must carry the tool_calls exactly as
		// received or the provider rejects the subsequent tool-role
		// messages.
		chatReq.Messages = append(chatReq.Messages, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   msg.Content,
			ToolCalls: msg.ToolCalls,
		})

		for _, tc := range msg.ToolCalls {
			o.logger.Info("Executing tool",
				zap.String("tool", tc.Function.Name),
				zap.String("tool_call_id", tc.ID),
				zap.String("raw_args", tc.Function.Arguments),
			)

			args := parseToolArguments(tc.Function.Arguments, o.logger)
			result, resolveErr := o.registry.Resolve(ctx, reqCtx, tc.Function.Name, args)
			if resolveErr != nil {
				result = map[string]interface{}{
					"status":  "error",
					"message": resolveErr.Error(),
				}
			}

			chatReq.Messages = append(chatReq.Messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    serializeToolResult(result),
				Name:       tc.Function.Name,
				ToolCallID: tc.ID,
			})
		}

		resp, err = o.llm.Complete(ctx, chatReq)
		if err != nil {
			return "", err
		}
		msg = resp.Choices[0].Message
		finishReason = resp.Choices[0].FinishReason
	}

	// 5. Natural termination: content is required.
	if msg.Content == "" {
		o.logger.Error("Model terminated without content",
			zap.String("finish_reason", string(finishReason)),
		)
		return "", apperrors.NewAgentEmptyResponse(string(finishReason))
	}
	return msg.Content, nil
}

// parseToolArguments decodes the model's JSON argument string. A parse
// failure falls back to empty arguments so the tool is still invoked
// and can report its own validation error.
func parseToolArguments(raw string, log *zap.Logger) map[string]interface{} {
	if raw == "" {
		return map[string]interface{}{}
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		log.Warn("Failed to parse tool arguments; using empty args",
			zap.String("raw", raw),
			zap.Error(err),
		)
		return map[string]interface{}{}
	}
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// serializeToolResult renders a tool result for a tool-role message.
// Strings pass through untouched; everything else is JSON-encoded.
func serializeToolResult(result interface{}) string {
	if s, ok := result.(string); ok {
		return s
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(data)
}
