package session

import (
	"time"

	ai "github.com/zPy52/taichat"
)

// DisplayRole classifies a display feed entry.
type DisplayRole string

const (
	// DisplayUser is text the user submitted.
	DisplayUser DisplayRole = "user"

	// DisplayAssistant is text the model produced.
	DisplayAssistant DisplayRole = "assistant"

	// DisplayToolCall records a tool call the model requested.
	DisplayToolCall DisplayRole = "tool-call"

	// DisplayToolResult records a tool execution or denial result.
	DisplayToolResult DisplayRole = "tool-result"

	// DisplayNotice records a non-content outcome: cancellation, the
	// turn ceiling, an all-denied turn, or a fatal error.
	DisplayNotice DisplayRole = "notice"
)

// DisplayMessage is one entry in the conversation display feed. The
// feed is what the terminal renders; it is derived from run events and
// never sent back to the model.
type DisplayMessage struct {
	Role       DisplayRole
	Content    string
	ToolCall   *ai.ToolCall
	ToolResult *ai.ToolResult
	Time       time.Time
}
