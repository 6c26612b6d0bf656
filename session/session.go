// Package session holds per-conversation state: the history store, the
// display feed, the busy flag, and the approve/deny/cancel entry
// points the frontend calls while a turn is in flight.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	ai "github.com/zPy52/taichat"
	"github.com/zPy52/taichat/agent"
	"github.com/zPy52/taichat/event"
	"github.com/zPy52/taichat/store"
	"github.com/zPy52/taichat/tool"
)

// ErrBusy indicates a turn is already in flight. The session accepts
// one submission at a time.
var ErrBusy = errors.New("a turn is already in flight")

// Session is one conversation. It owns the history (single writer: the
// run goroutine), derives the display feed from run events, and
// serializes submissions with a busy flag.
type Session struct {
	mu       sync.Mutex
	provider ai.ChatProvider
	registry *tool.Registry
	gate     *agent.Gate

	history *store.MessageStore
	display []DisplayMessage

	busy   bool
	cancel context.CancelFunc

	systemPrompt string
	chatOpts     []ai.Option
	maxTurns     int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSystemPrompt sets the system prompt prepended once per conversation.
func WithSystemPrompt(prompt string) SessionOption {
	return func(s *Session) {
		s.systemPrompt = prompt
	}
}

// WithChatOptions sets chat options forwarded to the provider
// (model, max tokens, temperature).
func WithChatOptions(opts ...ai.Option) SessionOption {
	return func(s *Session) {
		s.chatOpts = opts
	}
}

// WithMaxTurns sets the model turn ceiling per submission.
func WithMaxTurns(n int) SessionOption {
	return func(s *Session) {
		s.maxTurns = n
	}
}

// WithOnApprovalRequest sets the callback invoked when a dangerous tool
// call starts waiting for approval.
func WithOnApprovalRequest(fn func(call ai.ToolCall)) SessionOption {
	return func(s *Session) {
		s.gate = agent.NewGate(agent.WithOnRequest(fn))
	}
}

// New creates a Session.
func New(provider ai.ChatProvider, registry *tool.Registry, opts ...SessionOption) *Session {
	s := &Session{
		provider: provider,
		registry: registry,
		history:  store.NewMessageStore(),
		maxTurns: agent.DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gate == nil {
		s.gate = agent.NewGate()
	}
	if s.systemPrompt != "" {
		s.history.Append(ai.NewSystemMessage(s.systemPrompt))
	}
	return s
}

// Send submits user text and starts an agent run. It returns a channel
// of run events for rendering; the channel is closed when the run
// finishes and the session becomes idle again. Returns ErrBusy while a
// previous run is still in flight.
func (s *Session) Send(ctx context.Context, text string) (<-chan event.Event, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busy = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.history.Append(ai.NewUserMessage(text))
	s.appendDisplay(DisplayMessage{Role: DisplayUser, Content: text})

	ag := agent.New(s.provider, s.registry)
	sink := event.NewChannel()
	out := event.NewChannel()

	resultCh := make(chan *agent.Result, 1)
	go func() {
		result, _ := ag.Run(runCtx, s.history.Messages(),
			agent.WithEventSink(sink),
			agent.WithGate(s.gate),
			agent.WithMaxTurns(s.maxTurns),
			agent.WithChatOptions(s.chatOpts...),
		)
		resultCh <- result
	}()

	go func() {
		defer close(out)

		for ev := range sink {
			s.observe(ev)
			event.Emit(out, ev)
		}

		result := <-resultCh
		s.finish(result)
		cancel()

		s.mu.Lock()
		s.busy = false
		s.cancel = nil
		s.mu.Unlock()
	}()

	return out, nil
}

// observe derives display entries from run events.
func (s *Session) observe(ev event.Event) {
	switch ev.Type {
	case event.MessageEnd:
		if ev.Response != nil && ev.Response.Content != "" {
			s.appendDisplay(DisplayMessage{Role: DisplayAssistant, Content: ev.Response.Content})
		}

	case event.ToolCallStart:
		s.appendDisplay(DisplayMessage{Role: DisplayToolCall, ToolCall: ev.ToolCall})

	case event.ToolCallResult:
		s.appendDisplay(DisplayMessage{Role: DisplayToolResult, ToolCall: ev.ToolCall, ToolResult: ev.ToolResult})
	}
}

// finish syncs history with the run outcome and records terminal notices.
func (s *Session) finish(result *agent.Result) {
	if result == nil {
		return
	}

	// The run appended to its own copy of the history; adopt it.
	s.mu.Lock()
	s.history = store.NewMessageStoreFrom(result.Messages())
	s.mu.Unlock()

	switch result.Termination {
	case agent.TerminationComplete:
		// The assistant entry was recorded from MessageEnd.
	case agent.TerminationCancelled:
		s.appendDisplay(DisplayMessage{Role: DisplayNotice, Content: "Turn cancelled."})
	case agent.TerminationMaxTurns:
		s.appendDisplay(DisplayMessage{Role: DisplayNotice, Content: fmt.Sprintf("Stopped after %d model turns.", result.Turns)})
	case agent.TerminationError:
		s.appendDisplay(DisplayMessage{Role: DisplayNotice, Content: fmt.Sprintf("Error: %v", result.Error)})
	}
}

// Approve approves the pending tool call with the given ID.
// Duplicate or stale approvals are no-ops.
func (s *Session) Approve(callID string) bool {
	return s.gate.Approve(callID)
}

// Deny denies the pending tool call with the given ID.
// Duplicate or stale denials are no-ops.
func (s *Session) Deny(callID string) bool {
	return s.gate.Deny(callID)
}

// PendingToolCall returns the tool call awaiting approval, if any.
func (s *Session) PendingToolCall() (ai.ToolCall, bool) {
	return s.gate.Pending()
}

// Cancel aborts the in-flight turn. It is a no-op when idle.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Busy reports whether a turn is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Clear empties the conversation, keeping the system prompt.
// Returns ErrBusy while a turn is in flight.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}

	s.history = store.NewMessageStore()
	if s.systemPrompt != "" {
		s.history.Append(ai.NewSystemMessage(s.systemPrompt))
	}
	s.display = nil
	return nil
}

// SetProvider swaps the provider and chat options for subsequent turns.
// Returns ErrBusy while a turn is in flight.
func (s *Session) SetProvider(provider ai.ChatProvider, chatOpts ...ai.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.provider = provider
	s.chatOpts = chatOpts
	return nil
}

// Messages returns a copy of the conversation history.
func (s *Session) Messages() []ai.Message {
	s.mu.Lock()
	history := s.history
	s.mu.Unlock()
	return history.Messages()
}

// DisplayMessages returns a copy of the display feed.
func (s *Session) DisplayMessages() []DisplayMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DisplayMessage, len(s.display))
	copy(out, s.display)
	return out
}

func (s *Session) appendDisplay(m DisplayMessage) {
	m.Time = time.Now()
	s.mu.Lock()
	s.display = append(s.display, m)
	s.mu.Unlock()
}
