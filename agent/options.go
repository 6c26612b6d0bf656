package agent

import (
	"time"

	ai "github.com/zPy52/taichat"
	"github.com/zPy52/taichat/event"
)

// DefaultMaxTurns bounds how many model turns a single run may take.
const DefaultMaxTurns = 10

// DefaultHandlerTimeout bounds how long a single tool handler may run.
const DefaultHandlerTimeout = 30 * time.Second

// Options holds agent run configuration.
type Options struct {
	// MaxTurns is the model turn ceiling. Hitting it is a soft stop,
	// not an error.
	MaxTurns int

	// Gate mediates approval of dangerous tool calls. A nil Gate
	// denies every dangerous call.
	Gate *Gate

	// HandlerTimeout bounds each tool handler execution.
	HandlerTimeout time.Duration

	// ChatOptions are passed through to the provider on every turn.
	ChatOptions []ai.Option

	// EventSink receives run events when set. The sink is closed when
	// the run finishes, signaling consumers that no more events follow.
	EventSink chan<- event.Event
}

// Option configures an agent run.
type Option func(*Options)

// WithMaxTurns sets the model turn ceiling.
func WithMaxTurns(n int) Option {
	return func(o *Options) {
		o.MaxTurns = n
	}
}

// WithGate attaches the approval gate for dangerous tool calls.
func WithGate(g *Gate) Option {
	return func(o *Options) {
		o.Gate = g
	}
}

// WithHandlerTimeout sets the per-tool-handler timeout.
func WithHandlerTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.HandlerTimeout = d
	}
}

// WithChatOptions sets chat options forwarded to the provider each turn
// (model, max tokens, temperature).
func WithChatOptions(opts ...ai.Option) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, opts...)
	}
}

// WithEventSink directs run events to ch. The agent closes ch when the
// run finishes.
func WithEventSink(ch chan<- event.Event) Option {
	return func(o *Options) {
		o.EventSink = ch
	}
}

// ApplyOptions applies the given options to a default Options struct.
func ApplyOptions(opts ...Option) *Options {
	options := &Options{
		MaxTurns:       DefaultMaxTurns,
		HandlerTimeout: DefaultHandlerTimeout,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.MaxTurns <= 0 {
		options.MaxTurns = DefaultMaxTurns
	}
	return options
}
