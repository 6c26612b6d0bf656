package tool

import (
	"context"
	"encoding/json"
	"fmt"

	ai "github.com/zPy52/taichat"
)

// Handler is a function that executes a tool call and returns a result.
// The context supports cancellation and timeout.
// The call contains the tool name, ID, and arguments as a JSON string.
// Returns the result content string, or an error if execution failed.
type Handler func(ctx context.Context, call ai.ToolCall) (string, error)

// TypedHandler is a function that executes a tool call with typed arguments.
// The args parameter is automatically unmarshaled from the tool call's JSON arguments.
type TypedHandler[T any] func(ctx context.Context, args T) (string, error)

// Typed wraps a TypedHandler into a Handler, unmarshaling the call's
// JSON arguments into T before invoking it. Empty arguments decode as
// the zero value of T.
func Typed[T any](h TypedHandler[T]) Handler {
	return func(ctx context.Context, call ai.ToolCall) (string, error) {
		var args T
		if raw := call.Arguments; raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return "", fmt.Errorf("invalid arguments for %s: %w", call.Name, err)
			}
		}
		return h(ctx, args)
	}
}
