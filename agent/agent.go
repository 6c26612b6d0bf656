// Package agent implements the tool-calling conversation loop with
// human-in-the-loop approval of dangerous tools.
//
// A run alternates model turns and tool execution: the model streams a
// response, any tool calls it makes are processed strictly in emission
// order (dangerous ones blocking on the approval gate), the results go
// back into the history, and the next turn begins. Denied calls feed a
// synthetic error result back to the model. The loop stops when a turn
// produces no tool calls, the turn ceiling is hit, the context is
// cancelled, or the provider fails.
package agent

import (
	"context"
	"strings"

	ai "github.com/zPy52/taichat"
	"github.com/zPy52/taichat/event"
	"github.com/zPy52/taichat/store"
	"github.com/zPy52/taichat/tool"
)

// Agent orchestrates tool-calling conversations against a single
// provider and tool registry.
type Agent struct {
	provider ai.ChatProvider
	registry *tool.Registry
}

// New creates an Agent.
func New(provider ai.ChatProvider, registry *tool.Registry) *Agent {
	return &Agent{
		provider: provider,
		registry: registry,
	}
}

// Run executes the agent loop and blocks until it finishes.
//
// The returned Result always carries the termination reason and the
// final history; the error return is non-nil only for provider/stream
// failures (TerminationError). Cancellation and the turn ceiling are
// soft stops, not errors.
//
// If an event sink was configured via WithEventSink it is closed before
// Run returns.
func (a *Agent) Run(ctx context.Context, messages []ai.Message, opts ...Option) (*Result, error) {
	options := ApplyOptions(opts...)
	if options.EventSink != nil {
		defer close(options.EventSink)
	}
	result := a.run(ctx, messages, options)
	return result, result.Error
}

// RunStream executes the agent loop in the background and returns a
// channel of events. The channel is closed when the run finishes.
func (a *Agent) RunStream(ctx context.Context, messages []ai.Message, opts ...Option) <-chan event.Event {
	options := ApplyOptions(opts...)
	eventCh := event.NewChannel()
	options.EventSink = eventCh

	go func() {
		defer close(eventCh)
		a.run(ctx, messages, options)
	}()

	return eventCh
}

func (a *Agent) run(ctx context.Context, messages []ai.Message, options *Options) *Result {
	history := store.NewMessageStoreFrom(messages)
	result := &Result{history: history}

	emit := func(e event.Event) {
		if options.EventSink != nil {
			event.Emit(options.EventSink, e)
		}
	}

	emit(event.Event{Type: event.RunStart})

	chatOpts := append([]ai.Option{ai.WithTools(a.registry.Tools())}, options.ChatOptions...)

	finish := func(reason TerminationReason, response *ai.Response) *Result {
		result.Termination = reason
		if response != nil {
			result.Response = response
		}
		emit(event.Event{
			Type:     event.RunEnd,
			Turn:     result.Turns,
			Response: result.Response,
			Message:  string(reason),
		})
		return result
	}

	for {
		if ctx.Err() != nil {
			return finish(TerminationCancelled, nil)
		}
		if result.Turns >= options.MaxTurns {
			return finish(TerminationMaxTurns, nil)
		}
		result.Turns++
		turn := result.Turns

		emit(event.Event{Type: event.TurnStart, Turn: turn})

		response, partial, err := a.streamTurn(ctx, history.Messages(), chatOpts, turn, emit)
		if err != nil {
			if ctx.Err() != nil {
				return finish(TerminationCancelled, nil)
			}
			// Keep whatever text arrived before the failure.
			if partial != "" {
				history.Append(ai.NewAssistantMessage(partial))
			}
			emit(event.Event{Type: event.RunError, Turn: turn, Error: err})
			result.Error = err
			result.Termination = TerminationError
			return result
		}

		result.TotalUsage.Add(response.Usage)
		emit(event.Event{Type: event.TurnEnd, Turn: turn, Response: response})

		if len(response.ToolCalls) == 0 {
			history.Append(ai.NewAssistantMessage(response.Content))
			return finish(TerminationComplete, response)
		}

		history.Append(ai.Message{
			ID:        ai.GenerateMessageID(),
			Role:      ai.RoleAssistant,
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})

		results, procErr := a.processToolCalls(ctx, response.ToolCalls, options, turn, emit)
		if len(results) > 0 {
			history.Append(ai.NewToolResultMessage(results...))
		}
		if procErr != nil {
			return finish(TerminationCancelled, response)
		}
	}
}

// streamTurn runs one model turn, forwarding deltas as events. It
// returns the accumulated text alongside any error so the caller can
// preserve partial output.
func (a *Agent) streamTurn(ctx context.Context, messages []ai.Message, chatOpts []ai.Option, turn int, emit func(event.Event)) (*ai.Response, string, error) {
	streamCh, err := a.provider.ChatStream(ctx, messages, chatOpts...)
	if err != nil {
		return nil, "", err
	}

	messageID := ai.GenerateMessageID()
	emit(event.Event{Type: event.MessageStart, Turn: turn, MessageID: messageID})

	var text strings.Builder
	reasoningStarted := false

	endReasoning := func() {
		if reasoningStarted {
			emit(event.Event{Type: event.ReasoningEnd, Turn: turn, MessageID: messageID})
			reasoningStarted = false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil, text.String(), ctx.Err()

		case ev, ok := <-streamCh:
			if !ok {
				return nil, text.String(), &ai.Error{
					Msg: "stream closed without a final response",
					Cat: ai.ErrorTransient,
				}
			}
			if ev.Err != nil {
				return nil, text.String(), ev.Err
			}

			if ev.Reasoning != "" {
				if !reasoningStarted {
					emit(event.Event{Type: event.ReasoningStart, Turn: turn, MessageID: messageID})
					reasoningStarted = true
				}
				emit(event.Event{Type: event.ReasoningDelta, Turn: turn, MessageID: messageID, Delta: ev.Reasoning})
			}

			if ev.Delta != "" {
				endReasoning()
				text.WriteString(ev.Delta)
				emit(event.Event{Type: event.MessageDelta, Turn: turn, MessageID: messageID, Delta: ev.Delta})
			}

			if ev.Done {
				endReasoning()
				emit(event.Event{Type: event.MessageEnd, Turn: turn, MessageID: messageID, Response: ev.Response})
				if ev.Response == nil {
					return nil, text.String(), &ai.Error{
						Msg: "stream finished without a response",
						Cat: ai.ErrorPermanent,
					}
				}
				return ev.Response, text.String(), nil
			}
		}
	}
}

// processToolCalls handles each call strictly in emission order, one at
// a time. Dangerous calls block on the gate; a nil gate denies them.
// Denial produces a synthetic error result so the model can react on
// the next turn. Returns the results gathered so far plus ctx.Err() if
// cancellation interrupted processing.
func (a *Agent) processToolCalls(ctx context.Context, calls []ai.ToolCall, options *Options, turn int, emit func(event.Event)) ([]ai.ToolResult, error) {
	results := make([]ai.ToolResult, 0, len(calls))

	for i := range calls {
		call := calls[i]

		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		emit(event.Event{Type: event.ToolCallStart, Turn: turn, ToolCall: &call})

		if a.registry.IsDangerous(call.Name) {
			emit(event.Event{Type: event.ToolCallPending, Turn: turn, ToolCall: &call})

			decision := DecisionDenied
			if options.Gate != nil {
				var err error
				decision, err = options.Gate.Request(ctx, call)
				if err != nil {
					return results, err
				}
			}

			if decision != DecisionApproved {
				emit(event.Event{Type: event.ToolCallDenied, Turn: turn, ToolCall: &call})
				denied := ai.ToolResult{
					ToolCallID: call.ID,
					Content:    DeniedResultContent,
					IsError:    true,
					Denied:     true,
				}
				results = append(results, denied)
				emit(event.Event{Type: event.ToolCallResult, Turn: turn, ToolCall: &call, ToolResult: &denied})
				continue
			}

			emit(event.Event{Type: event.ToolCallApproved, Turn: turn, ToolCall: &call})
		}

		emit(event.Event{Type: event.ToolCallExecuting, Turn: turn, ToolCall: &call})

		result := func() ai.ToolResult {
			execCtx := ctx
			if options.HandlerTimeout > 0 {
				var cancel context.CancelFunc
				execCtx, cancel = context.WithTimeout(ctx, options.HandlerTimeout)
				defer cancel()
			}
			return a.registry.Execute(execCtx, call)
		}()
		results = append(results, result)
		emit(event.Event{Type: event.ToolCallResult, Turn: turn, ToolCall: &call, ToolResult: &result})
	}

	return results, nil
}
