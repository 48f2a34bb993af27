// Package tool implements the function calling surface exposed to workers
// and the coordinator. Each tool carries a minimal JSON-schema parameter
// map for LLM guidance and returns its result as bounded text: anything a
// tool hands back flows straight into a model-facing conversation, so tools
// are responsible for pushing large payloads through the budget manager.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/askmesh/internal/util"
	"github.com/hupe1980/askmesh/model"
)

// Tool defines one structured capability a model may invoke.
//
// Tool implementations should:
//   - Provide clear, descriptive names (snake_case) and descriptions
//   - Define proper JSON schema for parameters
//   - Return bounded text results
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description provided to the LLM
	// to help it understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool. Arguments are parsed from the model's JSON.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
}

// Error codes used across tool implementations.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "NOT_FOUND"
)

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// Definitions converts a tool set into the declarative form sent to models.
func Definitions(tools []Tool) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		}
	}
	return defs
}

// Dispatch resolves and runs one model-issued tool call against the given
// tool set. Failures come back as error text rather than an error value so
// the caller can feed them straight into a tool-result turn and let the
// model correct itself.
func Dispatch(ctx context.Context, tools []Tool, call model.ToolCall) string {
	var target Tool
	for _, t := range tools {
		if t.Name() == call.Name {
			target = t
			break
		}
	}
	if target == nil {
		return fmt.Sprintf("error: tool %q is not available to this worker", call.Name)
	}

	args := map[string]any{}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return fmt.Sprintf("error: invalid arguments: %v", err)
		}
	}
	if err := util.ValidateParameters(args, target.Parameters()); err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	result, err := target.Call(ctx, args)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return result
}

// stringArg extracts a required string argument or returns a validation error.
func stringArg(tool string, args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", NewToolError(tool, fmt.Sprintf("missing required argument %q", key), CodeValidation)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", NewToolError(tool, fmt.Sprintf("argument %q must be a non-empty string", key), CodeValidation)
	}
	return s, nil
}
