// Package event provides the typed event stream emitted during an agent
// run. Display layers consume these events to render streaming text,
// reasoning traces, and the tool call lifecycle; the event feed is
// advisory and append-only from the consumer's point of view.
package event

import (
	"time"

	ai "github.com/zPy52/taichat"
)

// Type identifies the kind of event.
type Type string

// Run lifecycle events
const (
	// RunStart fires when an agent run begins.
	RunStart Type = "run_start"

	// RunEnd fires when an agent run stops for any non-error reason
	// (completion, turn ceiling, cancellation, all calls denied).
	// Event.Message carries the termination reason.
	RunEnd Type = "run_end"

	// RunError fires when an unrecoverable stream or provider error occurs.
	RunError Type = "run_error"
)

// Turn lifecycle events
const (
	// TurnStart fires at the beginning of each model turn.
	TurnStart Type = "turn_start"

	// TurnEnd fires when a model turn completes.
	TurnEnd Type = "turn_end"
)

// Message lifecycle events
const (
	// MessageStart fires when an assistant message begins.
	MessageStart Type = "message_start"

	// MessageDelta fires for each streaming token.
	MessageDelta Type = "message_delta"

	// MessageEnd fires when an assistant message completes.
	MessageEnd Type = "message_end"
)

// Reasoning trace events (advisory model "thinking", never sent back)
const (
	ReasoningStart Type = "reasoning_start"
	ReasoningDelta Type = "reasoning_delta"
	ReasoningEnd   Type = "reasoning_end"
)

// Tool call lifecycle events
const (
	// ToolCallStart fires when the model requests a tool call.
	ToolCallStart Type = "tool_call_start"

	// ToolCallPending fires when a dangerous call is waiting on user approval.
	ToolCallPending Type = "tool_call_pending"

	// ToolCallApproved fires when a pending call is approved.
	ToolCallApproved Type = "tool_call_approved"

	// ToolCallDenied fires when a pending call is denied by the user.
	ToolCallDenied Type = "tool_call_denied"

	// ToolCallExecuting fires before the tool handler runs.
	ToolCallExecuting Type = "tool_call_executing"

	// ToolCallResult fires with the tool execution (or denial) result.
	ToolCallResult Type = "tool_call_result"
)

// Event represents an observable occurrence during an agent run.
type Event struct {
	// Type identifies the kind of event.
	Type Type

	// Turn is the current model turn number (1-indexed).
	Turn int

	// MessageID identifies the message for Start/Delta/End correlation.
	MessageID string

	// Delta contains streaming content for MessageDelta and ReasoningDelta events.
	Delta string

	// Response contains the complete response for MessageEnd and RunEnd events.
	Response *ai.Response

	// ToolCall contains the tool call for tool-related events.
	ToolCall *ai.ToolCall

	// ToolResult contains the result for ToolCallResult events.
	ToolResult *ai.ToolResult

	// Error contains the error for RunError events.
	Error error

	// Message contains additional context (e.g. termination reason).
	Message string

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Emit sends an event with timestamp to the channel (non-blocking).
func Emit(ch chan<- Event, e Event) {
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
		// Channel full - don't block the loop on a slow display layer
	}
}

// NewChannel creates a buffered event channel with standard capacity.
func NewChannel() chan Event {
	return make(chan Event, 256)
}
