package tools

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "thoth/backend/pkg/errors"
	"thoth/backend/pkg/logger"
)

// Tool name constants
const (
	ToolWriteFile  = "write_file"
	ToolReadFile   = "read_file"
	ToolListFile   = "list_file"
	ToolSendSMS    = "send_twilio_message"
	ToolGetWeather = "get_weather_forecast"
)

// RequestContext carries per-request identity into tool handlers. It is
// built by the caller (HTTP handler, webhook, CLI) and threaded through
// Resolve so tools never reach for global state.
type RequestContext struct {
	UserID int64
	Query  string
	Source string
	ChatID string
}

// Param describes a single declared tool parameter. All parameters are
// presented to the model as strings; tools coerce as needed.
type Param struct {
	Name        string
	Description string
}

// Handler executes a tool call with the parsed arguments.
type Handler func(ctx context.Context, req RequestContext, args map[string]interface{}) (interface{}, error)

// Definition declares a tool: the schema shown to the model and the
// handler that backs it. Required must be a subset of Params; Register
// enforces this so the schema and the implementation cannot drift.
type Definition struct {
	Name        string
	Description string
	Params      []Param
	Required    []string
	Handler     Handler
}

// Registry is the catalog of tools the model may invoke. It is built
// once at startup and read-only afterwards.
type Registry struct {
	defs   []Definition
	byName map[string]int
	logger *zap.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]int),
		logger: logger.Get(),
	}
}

// Register adds a tool definition to the catalog. It fails if the name
// is already taken, the handler is missing, or a required parameter is
// not present in the declared parameter list.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return apperrors.NewToolSchemaInvalid(def.Name, "name")
	}
	if def.Handler == nil {
		return apperrors.NewToolSchemaInvalid(def.Name, "handler")
	}
	if _, exists := r.byName[def.Name]; exists {
		return apperrors.NewToolSchemaInvalid(def.Name, "name")
	}

	declared := make(map[string]bool, len(def.Params))
	for _, p := range def.Params {
		declared[p.Name] = true
	}
	for _, req := range def.Required {
		if !declared[req] {
			return apperrors.NewToolSchemaInvalid(def.Name, req)
		}
	}

	r.byName[def.Name] = len(r.defs)
	r.defs = append(r.defs, def)
	return nil
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.defs))
	for i, def := range r.defs {
		names[i] = def.Name
	}
	return names
}

// MappedFunctions returns the tool schemas in the shape the OpenAI API
// expects, in registration order.
func (r *Registry) MappedFunctions() []openai.Tool {
	tools := make([]openai.Tool, 0, len(r.defs))
	for _, def := range r.defs {
		properties := make(map[string]interface{}, len(def.Params))
		for _, p := range def.Params {
			desc := p.Description
			if desc == "" {
				desc = "No description"
			}
			properties[p.Name] = map[string]interface{}{
				"type":        "string",
				"description": desc,
			}
		}
		required := def.Required
		if required == nil {
			required = []string{}
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		})
	}
	return tools
}

// Resolve looks up a tool by name and invokes its handler. An unknown
// name returns a typed error. Errors and panics raised by the handler
// are contained here and converted into a structured error payload so
// a single failing tool never aborts the conversation loop.
func (r *Registry) Resolve(ctx context.Context, req RequestContext, name string, args map[string]interface{}) (result interface{}, err error) {
	idx, ok := r.byName[name]
	if !ok {
		r.logger.Warn("Unknown tool requested",
			zap.String("tool", name),
			zap.Int64("user_id", req.UserID),
		)
		return nil, apperrors.NewToolNotFound(name)
	}
	def := r.defs[idx]

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Tool panicked",
				zap.String("tool", name),
				zap.Any("panic", rec),
			)
			result = map[string]interface{}{
				"status":  "error",
				"message": fmt.Sprintf("%v", rec),
			}
			err = nil
		}
	}()

	r.logger.Debug("Executing tool",
		zap.String("tool", name),
		zap.Int64("user_id", req.UserID),
		zap.String("source", req.Source),
	)

	if args == nil {
		args = make(map[string]interface{})
	}
	out, handlerErr := def.Handler(ctx, req, args)
	if handlerErr != nil {
		r.logger.Warn("Tool returned error",
			zap.String("tool", name),
			zap.Error(handlerErr),
		)
		return map[string]interface{}{
			"status":  "error",
			"message": handlerErr.Error(),
		}, nil
	}
	return out, nil
}
