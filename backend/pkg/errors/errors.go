package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeConfig represents configuration errors (missing credentials, bad settings)
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeAgent represents model/orchestration errors
	ErrorTypeAgent ErrorType = "agent"
	// ErrorTypeTool represents tool registration and execution errors
	ErrorTypeTool ErrorType = "tool"
	// ErrorTypeMemory represents memory document load/save errors
	ErrorTypeMemory ErrorType = "memory"
	// ErrorTypeStorage represents database errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeValidation represents request validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeAuth represents authentication/authorization errors
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeExternal represents failures of external services (SMS gateway, weather)
	ErrorTypeExternal ErrorType = "external"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Agent Errors

// ErrAgentLLMFailed is returned when a model request fails
type ErrAgentLLMFailed struct {
	*BaseError
	Model     string
	Attempts  int
	Retryable bool
}

func NewAgentLLMFailed(model string, attempts int, retryable bool, err error) *ErrAgentLLMFailed {
	return &ErrAgentLLMFailed{
		BaseError: NewBaseError(ErrorTypeAgent, fmt.Sprintf("LLM request failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
		Retryable: retryable,
	}
}

// ErrAgentEmptyResponse is returned when the model terminates without text content
type ErrAgentEmptyResponse struct {
	*BaseError
	FinishReason string
}

func NewAgentEmptyResponse(finishReason string) *ErrAgentEmptyResponse {
	return &ErrAgentEmptyResponse{
		BaseError:    NewBaseError(ErrorTypeAgent, fmt.Sprintf("model returned no content (finish reason: %s)", finishReason), nil),
		FinishReason: finishReason,
	}
}

// Tool Errors

// ErrToolSchemaInvalid is returned at registration when a declared required
// parameter is absent from the definition's parameter list
type ErrToolSchemaInvalid struct {
	*BaseError
	ToolName string
	Param    string
}

func NewToolSchemaInvalid(toolName, param string) *ErrToolSchemaInvalid {
	return &ErrToolSchemaInvalid{
		BaseError: NewBaseError(ErrorTypeTool, fmt.Sprintf("tool %s declares required param %q not present in its parameter list", toolName, param), nil),
		ToolName:  toolName,
		Param:     param,
	}
}

// ErrToolNotFound is returned when a requested tool is not registered
type ErrToolNotFound struct {
	*BaseError
	ToolName string
}

func NewToolNotFound(toolName string) *ErrToolNotFound {
	return &ErrToolNotFound{
		BaseError: NewBaseError(ErrorTypeTool, fmt.Sprintf("unknown tool: %s", toolName), nil),
		ToolName:  toolName,
	}
}

// ErrToolExecutionFailed is returned when tool execution fails
type ErrToolExecutionFailed struct {
	*BaseError
	ToolName string
	Reason   string
}

func NewToolExecutionFailed(toolName, reason string, err error) *ErrToolExecutionFailed {
	return &ErrToolExecutionFailed{
		BaseError: NewBaseError(ErrorTypeTool, fmt.Sprintf("tool execution failed: %s", toolName), err),
		ToolName:  toolName,
		Reason:    reason,
	}
}

// Memory Errors

// ErrMemoryLoadFailed is returned when a memory document cannot be read.
// Callers fall back to the tier's default document rather than aborting.
type ErrMemoryLoadFailed struct {
	*BaseError
	Tier   string
	UserID int64
}

func NewMemoryLoadFailed(tier string, userID int64, err error) *ErrMemoryLoadFailed {
	return &ErrMemoryLoadFailed{
		BaseError: NewBaseError(ErrorTypeMemory, fmt.Sprintf("failed to load %s memory for user %d", tier, userID), err),
		Tier:      tier,
		UserID:    userID,
	}
}

// ErrMemorySaveFailed is returned when a memory document write-back fails
type ErrMemorySaveFailed struct {
	*BaseError
	Tier   string
	UserID int64
}

func NewMemorySaveFailed(tier string, userID int64, err error) *ErrMemorySaveFailed {
	return &ErrMemorySaveFailed{
		BaseError: NewBaseError(ErrorTypeMemory, fmt.Sprintf("failed to save %s memory for user %d", tier, userID), err),
		Tier:      tier,
		UserID:    userID,
	}
}

// Storage Errors

// ErrStorageQueryFailed is returned when a database operation fails
type ErrStorageQueryFailed struct {
	*BaseError
	Op string
}

func NewStorageQueryFailed(op string, err error) *ErrStorageQueryFailed {
	return &ErrStorageQueryFailed{
		BaseError: NewBaseError(ErrorTypeStorage, fmt.Sprintf("storage operation failed: %s", op), err),
		Op:        op,
	}
}

// Validation Errors

// ErrValidationFailed is returned when request input fails validation
type ErrValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidationFailed(field, reason string) *ErrValidationFailed {
	return &ErrValidationFailed{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Auth Errors

// ErrUnauthorized is returned when credentials are missing or wrong
var ErrUnauthorized = NewBaseError(ErrorTypeAuth, "unauthorized", nil)

// ErrSessionExpired is returned when a session token is past its expiry
var ErrSessionExpired = NewBaseError(ErrorTypeAuth, "session expired", nil)

// External Service Errors

// ErrExternalServiceFailed is returned when an outbound call to a collaborator
// (SMS gateway, weather API) fails
type ErrExternalServiceFailed struct {
	*BaseError
	Service string
}

func NewExternalServiceFailed(service string, err error) *ErrExternalServiceFailed {
	return &ErrExternalServiceFailed{
		BaseError: NewBaseError(ErrorTypeExternal, fmt.Sprintf("external service failed: %s", service), err),
		Service:   service,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if baseErr, ok := err.(*BaseError); ok {
		return baseErr.Type == errType
	}
	// Check wrapped errors
	if baseErr, ok := err.(interface{ Unwrap() error }); ok {
		return IsErrorType(baseErr.Unwrap(), errType)
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if llmErr, ok := err.(*ErrAgentLLMFailed); ok {
		return llmErr.Retryable
	}
	// Gateway hiccups are worth retrying; bad input and bad config are not
	if IsErrorType(err, ErrorTypeExternal) {
		return true
	}
	return false
}
