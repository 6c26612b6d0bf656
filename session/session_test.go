package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ai "github.com/zPy52/taichat"
	"github.com/zPy52/taichat/tool"
)

// scriptedProvider streams canned responses in order.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*ai.Response
	calls     int
	block     chan struct{} // when set, the stream waits before finishing
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	ch, err := p.ChatStream(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return ai.CollectStream(ctx, ch)
}

func (p *scriptedProvider) ChatStream(ctx context.Context, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	p.mu.Lock()
	idx := p.calls
	p.calls++
	var resp *ai.Response
	if idx < len(p.responses) {
		resp = p.responses[idx]
	} else {
		resp = &ai.Response{Content: "ok", FinishReason: "stop"}
	}
	block := p.block
	p.mu.Unlock()

	ch := make(chan ai.StreamEvent, 4)
	go func() {
		defer close(ch)
		if block != nil {
			select {
			case <-block:
			case <-ctx.Done():
				ch <- ai.StreamEvent{Err: ctx.Err()}
				return
			}
		}
		if resp.Content != "" {
			ch <- ai.StreamEvent{Delta: resp.Content}
		}
		ch <- ai.StreamEvent{Done: true, Response: resp}
	}()
	return ch, nil
}

func emptyRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	return tool.Must()
}

func TestSessionSend(t *testing.T) {
	provider := &scriptedProvider{responses: []*ai.Response{
		{Content: "hi there", FinishReason: "stop"},
	}}
	sess := New(provider, emptyRegistry(t), WithSystemPrompt("be brief"))

	events, err := sess.Send(context.Background(), "hello")
	require.NoError(t, err)
	for range events {
	}

	msgs := sess.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, ai.RoleSystem, msgs[0].Role)
	assert.Equal(t, "be brief", msgs[0].Content)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.Equal(t, "hi there", msgs[2].Content)

	display := sess.DisplayMessages()
	require.Len(t, display, 2)
	assert.Equal(t, DisplayUser, display[0].Role)
	assert.Equal(t, DisplayAssistant, display[1].Role)
	assert.Equal(t, "hi there", display[1].Content)

	assert.False(t, sess.Busy())
}

func TestSessionBusy(t *testing.T) {
	block := make(chan struct{})
	provider := &scriptedProvider{block: block}
	sess := New(provider, emptyRegistry(t))

	events, err := sess.Send(context.Background(), "first")
	require.NoError(t, err)

	require.Eventually(t, sess.Busy, time.Second, time.Millisecond)

	_, err = sess.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	assert.ErrorIs(t, sess.Clear(), ErrBusy)
	assert.ErrorIs(t, sess.SetProvider(provider), ErrBusy)

	close(block)
	for range events {
	}
	assert.False(t, sess.Busy())
}

func TestSessionCancel(t *testing.T) {
	block := make(chan struct{})
	provider := &scriptedProvider{block: block}
	sess := New(provider, emptyRegistry(t))

	events, err := sess.Send(context.Background(), "long task")
	require.NoError(t, err)

	require.Eventually(t, sess.Busy, time.Second, time.Millisecond)
	sess.Cancel()

	for range events {
	}

	display := sess.DisplayMessages()
	require.NotEmpty(t, display)
	last := display[len(display)-1]
	assert.Equal(t, DisplayNotice, last.Role)
	assert.Contains(t, last.Content, "cancelled")
	assert.False(t, sess.Busy())
}

func TestSessionClear(t *testing.T) {
	provider := &scriptedProvider{}
	sess := New(provider, emptyRegistry(t), WithSystemPrompt("sys"))

	events, err := sess.Send(context.Background(), "hello")
	require.NoError(t, err)
	for range events {
	}

	require.NoError(t, sess.Clear())

	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, ai.RoleSystem, msgs[0].Role)
	assert.Empty(t, sess.DisplayMessages())
}

func TestSessionApprovalFromCallback(t *testing.T) {
	var executed atomic.Int32
	registry := tool.Must(tool.Registration{
		Tool:      ai.Tool{Name: "wipe"},
		Dangerous: true,
		Handler: func(ctx context.Context, call ai.ToolCall) (string, error) {
			executed.Add(1)
			return `{"done":true}`, nil
		},
	})
	provider := &scriptedProvider{responses: []*ai.Response{
		{ToolCalls: []ai.ToolCall{{ID: "c1", Name: "wipe", Arguments: `{}`}}},
		{Content: "wiped", FinishReason: "stop"},
	}}

	// Approve directly from the request callback, the way the REPL does.
	var sess *Session
	sess = New(provider, registry, WithOnApprovalRequest(func(call ai.ToolCall) {
		sess.Approve(call.ID)
	}))

	events, err := sess.Send(context.Background(), "wipe it")
	require.NoError(t, err)
	for range events {
	}

	assert.Equal(t, int32(1), executed.Load())
	assert.False(t, sess.Busy())

	display := sess.DisplayMessages()
	last := display[len(display)-1]
	assert.Equal(t, DisplayAssistant, last.Role)
	assert.Equal(t, "wiped", last.Content)
}

func TestSessionToolDisplay(t *testing.T) {
	registry := tool.Must(tool.Registration{
		Tool: ai.Tool{Name: "echo"},
		Handler: func(ctx context.Context, call ai.ToolCall) (string, error) {
			return call.Arguments, nil
		},
	})
	provider := &scriptedProvider{responses: []*ai.Response{
		{ToolCalls: []ai.ToolCall{{ID: "c1", Name: "echo", Arguments: `{"v":1}`}}},
		{Content: "done", FinishReason: "stop"},
	}}
	sess := New(provider, registry)

	events, err := sess.Send(context.Background(), "use the tool")
	require.NoError(t, err)
	for range events {
	}

	var roles []DisplayRole
	for _, d := range sess.DisplayMessages() {
		roles = append(roles, d.Role)
	}
	assert.Equal(t, []DisplayRole{DisplayUser, DisplayToolCall, DisplayToolResult, DisplayAssistant}, roles)
}
