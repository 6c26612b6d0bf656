package agent

import (
	"context"
	"sync"

	ai "github.com/zPy52/taichat"
)

// Decision is the outcome of an approval request.
type Decision string

const (
	// DecisionApproved allows the tool call to execute.
	DecisionApproved Decision = "approved"

	// DecisionDenied blocks the tool call. The tool is never executed.
	DecisionDenied Decision = "denied"
)

// Gate mediates human approval of dangerous tool calls.
//
// The loop holds at most one approval open at a time: Request blocks
// until the call is resolved or the context is cancelled. Each call
// moves pending -> approved or pending -> denied exactly once;
// resolving an unknown or already-resolved call is a no-op, so
// duplicate decisions from a racy UI are harmless.
type Gate struct {
	mu        sync.Mutex
	pending   *pendingCall
	onRequest func(call ai.ToolCall)
}

type pendingCall struct {
	call     ai.ToolCall
	decision chan Decision
	resolved bool
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithOnRequest sets a callback invoked when a call starts waiting for
// approval. The UI uses this to prompt the user.
func WithOnRequest(fn func(call ai.ToolCall)) GateOption {
	return func(g *Gate) {
		g.onRequest = fn
	}
}

// NewGate creates a Gate.
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Request registers call as pending and blocks until it is resolved or
// ctx is cancelled. Returns ErrApprovalInFlight if another call is
// already pending; the loop processes calls one at a time, so hitting
// this indicates a caller bug.
func (g *Gate) Request(ctx context.Context, call ai.ToolCall) (Decision, error) {
	g.mu.Lock()
	if g.pending != nil {
		g.mu.Unlock()
		return "", ErrApprovalInFlight
	}
	p := &pendingCall{
		call:     call,
		decision: make(chan Decision, 1),
	}
	g.pending = p
	onRequest := g.onRequest
	g.mu.Unlock()

	if onRequest != nil {
		onRequest(call)
	}

	defer func() {
		g.mu.Lock()
		g.pending = nil
		g.mu.Unlock()
	}()

	select {
	case d := <-p.decision:
		return d, nil
	case <-ctx.Done():
		// Mark resolved so a late UI decision is ignored.
		g.mu.Lock()
		p.resolved = true
		g.mu.Unlock()
		return "", ctx.Err()
	}
}

// Resolve records the decision for the pending call with the given ID.
// Returns true if the decision was applied; false (a no-op) when no
// matching call is pending or it was already resolved.
func (g *Gate) Resolve(callID string, d Decision) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.pending
	if p == nil || p.call.ID != callID || p.resolved {
		return false
	}
	p.resolved = true
	p.decision <- d
	return true
}

// Approve resolves the pending call with approval.
func (g *Gate) Approve(callID string) bool {
	return g.Resolve(callID, DecisionApproved)
}

// Deny resolves the pending call with denial.
func (g *Gate) Deny(callID string) bool {
	return g.Resolve(callID, DecisionDenied)
}

// Pending returns the call currently awaiting approval, if any.
func (g *Gate) Pending() (ai.ToolCall, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil || g.pending.resolved {
		return ai.ToolCall{}, false
	}
	return g.pending.call, true
}
