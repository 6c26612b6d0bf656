package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ai "github.com/zPy52/taichat"
	"github.com/zPy52/taichat/tool"
)

// cannedProvider replays responses in order.
type cannedProvider struct {
	responses []*ai.Response
	calls     atomic.Int32
	requests  [][]ai.Message
}

func (p *cannedProvider) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	ch, err := p.ChatStream(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return ai.CollectStream(ctx, ch)
}

func (p *cannedProvider) ChatStream(ctx context.Context, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	idx := int(p.calls.Add(1)) - 1
	p.requests = append(p.requests, messages)

	resp := &ai.Response{Content: "hello from the model", FinishReason: "stop"}
	if idx < len(p.responses) {
		resp = p.responses[idx]
	}

	ch := make(chan ai.StreamEvent, 4)
	go func() {
		defer close(ch)
		if resp.Content != "" {
			ch <- ai.StreamEvent{Delta: resp.Content}
		}
		ch <- ai.StreamEvent{Done: true, Response: resp}
	}()
	return ch, nil
}

func newTestServer(t *testing.T, provider ai.ChatProvider, registry *tool.Registry, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithToken("test-token")}, opts...)
	return New(provider, registry, opts...)
}

func postChat(t *testing.T, handler http.Handler, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestNewToken(t *testing.T) {
	a, b := NewToken(), NewToken()
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestChatRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t, &cannedProvider{}, tool.Must())
	handler := srv.Handler()

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := postChat(t, handler, "", `{"messages":[{"role":"user","content":"hi"}]}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "unauthorized")
	})

	t.Run("wrong token", func(t *testing.T) {
		rec := postChat(t, handler, "nope", `{"messages":[{"role":"user","content":"hi"}]}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := postChat(t, handler, "test-token", `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty messages", func(t *testing.T) {
		rec := postChat(t, handler, "test-token", `{"messages":[]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported role", func(t *testing.T) {
		rec := postChat(t, handler, "test-token", `{"messages":[{"role":"tool","content":"x"}]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unsupported role")
	})
}

func TestChatStreamsEvents(t *testing.T) {
	provider := &cannedProvider{responses: []*ai.Response{
		{Content: "streamed reply", FinishReason: "stop"},
	}}
	srv := newTestServer(t, provider, tool.Must())

	rec := postChat(t, srv.Handler(), "test-token", `{"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	assert.Contains(t, text, "event: run_start")
	assert.Contains(t, text, "event: message_delta")
	assert.Contains(t, text, "streamed reply")
	assert.Contains(t, text, "event: run_end")
	assert.Contains(t, text, `"message":"complete"`)
}

func TestChatPrependsSystemPrompt(t *testing.T) {
	provider := &cannedProvider{}
	srv := newTestServer(t, provider, tool.Must(), WithSystemPrompt("be helpful"))

	rec := postChat(t, srv.Handler(), "test-token", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotEmpty(t, provider.requests)
	first := provider.requests[0]
	require.NotEmpty(t, first)
	assert.Equal(t, ai.RoleSystem, first[0].Role)
	assert.Equal(t, "be helpful", first[0].Content)

	// A caller-supplied system message wins.
	provider2 := &cannedProvider{}
	srv2 := newTestServer(t, provider2, tool.Must(), WithSystemPrompt("be helpful"))
	rec = postChat(t, srv2.Handler(), "test-token",
		`{"messages":[{"role":"system","content":"custom"},{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "custom", provider2.requests[0][0].Content)
}

func TestChatDeniesDangerousTools(t *testing.T) {
	var executed atomic.Int32
	registry := tool.Must(tool.Registration{
		Tool:      ai.Tool{Name: "remove_file"},
		Dangerous: true,
		Handler: func(ctx context.Context, call ai.ToolCall) (string, error) {
			executed.Add(1)
			return "removed", nil
		},
	})
	provider := &cannedProvider{responses: []*ai.Response{
		{ToolCalls: []ai.ToolCall{{ID: "c1", Name: "remove_file", Arguments: `{"filePath":"/tmp/x"}`}}},
		{Content: "the file was not removed", FinishReason: "stop"},
	}}
	srv := newTestServer(t, provider, registry)

	rec := postChat(t, srv.Handler(), "test-token", `{"messages":[{"role":"user","content":"rm it"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	assert.Contains(t, text, "event: tool_call_denied")
	assert.Equal(t, int32(0), executed.Load())

	// The denial goes back to the model, which completes on the next turn.
	assert.Contains(t, text, "the file was not removed")
	assert.Contains(t, text, `"message":"complete"`)
	assert.Equal(t, int32(2), provider.calls.Load())
}
