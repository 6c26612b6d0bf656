package tool

import "fmt"

// ErrDuplicateTool indicates two registrations share a tool name.
type ErrDuplicateTool struct {
	Name string
}

func (e *ErrDuplicateTool) Error() string {
	return fmt.Sprintf("tool %q registered more than once", e.Name)
}

// ErrUnknownTool indicates a call referenced a tool the registry does not hold.
type ErrUnknownTool struct {
	Name string
}

func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// ErrHandlerPanic indicates a tool handler panicked during execution.
type ErrHandlerPanic struct {
	Tool  string
	Value any
}

func (e *ErrHandlerPanic) Error() string {
	return fmt.Sprintf("tool %s panicked: %v", e.Tool, e.Value)
}
