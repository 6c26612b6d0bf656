package taichat

import "context"

// ChatProvider defines the interface for AI chat providers.
type ChatProvider interface {
	// Chat sends a conversation and returns a complete response.
	Chat(ctx context.Context, messages []Message, opts ...Option) (*Response, error)

	// ChatStream sends a conversation and returns a channel of streaming events.
	// The channel is closed when the stream is complete or an error occurs.
	// Callers should check StreamEvent.Err for any errors. Implementations
	// must stop streaming promptly when ctx is cancelled.
	ChatStream(ctx context.Context, messages []Message, opts ...Option) (<-chan StreamEvent, error)
}

// CollectStream drains a stream channel and returns the final response.
// Providers use it to implement Chat on top of ChatStream.
func CollectStream(ctx context.Context, ch <-chan StreamEvent) (*Response, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil, &Error{Msg: "stream closed without a final response", Cat: ErrorTransient}
			}
			if ev.Err != nil {
				return nil, ev.Err
			}
			if ev.Done {
				if ev.Response == nil {
					return nil, &Error{Msg: "stream finished without a response", Cat: ErrorPermanent}
				}
				return ev.Response, nil
			}
		}
	}
}
