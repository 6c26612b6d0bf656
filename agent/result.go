package agent

import (
	ai "github.com/zPy52/taichat"
	"github.com/zPy52/taichat/store"
)

// TerminationReason indicates why the agent stopped.
type TerminationReason string

const (
	// TerminationComplete indicates normal completion (a turn with no tool calls).
	TerminationComplete TerminationReason = "complete"

	// TerminationMaxTurns indicates the model turn ceiling was reached.
	TerminationMaxTurns TerminationReason = "max_turns"

	// TerminationCancelled indicates the run was cancelled via context.
	TerminationCancelled TerminationReason = "cancelled"

	// TerminationError indicates an unrecoverable provider or stream error.
	TerminationError TerminationReason = "error"
)

// Result is the outcome of an agent run.
type Result struct {
	// Response is the final model response, if one completed.
	Response *ai.Response

	// Turns is the number of model turns taken.
	Turns int

	// Termination explains why the run stopped.
	Termination TerminationReason

	// TotalUsage aggregates token usage across all turns.
	TotalUsage ai.Usage

	// Error is the fatal error for TerminationError results.
	Error error

	history *store.MessageStore
}

// Messages returns the full conversation history, including every
// message appended during the run.
func (r *Result) Messages() []ai.Message {
	if r.history == nil {
		return nil
	}
	return r.history.Messages()
}

// Content returns the final response text, or "" if the run produced none.
func (r *Result) Content() string {
	if r.Response == nil {
		return ""
	}
	return r.Response.Content
}
