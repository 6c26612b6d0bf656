// Package server exposes the agent over a loopback HTTP endpoint.
// POST /api/chat streams run events as Server-Sent Events. Requests
// authenticate with a random per-process token; without an approval
// gate on this surface, every dangerous tool call is denied.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	ai "github.com/zPy52/taichat"
	"github.com/zPy52/taichat/agent"
	"github.com/zPy52/taichat/event"
	"github.com/zPy52/taichat/tool"
)

// DefaultAddr is the loopback address the server binds by default.
const DefaultAddr = "127.0.0.1:8377"

// TokenHeader carries the per-process access token.
const TokenHeader = "X-Chat-Token"

// Server serves the chat endpoint.
type Server struct {
	provider ai.ChatProvider
	registry *tool.Registry

	addr         string
	token        string
	systemPrompt string
	chatOpts     []ai.Option
	maxTurns     int
}

// Option configures the Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithToken overrides the random access token. Used in tests.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// WithSystemPrompt prepends a system message to every conversation
// that does not carry its own.
func WithSystemPrompt(prompt string) Option {
	return func(s *Server) {
		s.systemPrompt = prompt
	}
}

// WithChatOptions sets chat options forwarded to the provider.
func WithChatOptions(opts ...ai.Option) Option {
	return func(s *Server) {
		s.chatOpts = opts
	}
}

// WithMaxTurns sets the model turn ceiling per request.
func WithMaxTurns(n int) Option {
	return func(s *Server) {
		s.maxTurns = n
	}
}

// New creates a Server with a freshly minted token.
func New(provider ai.ChatProvider, registry *tool.Registry, opts ...Option) *Server {
	s := &Server{
		provider: provider,
		registry: registry,
		addr:     DefaultAddr,
		token:    NewToken(),
		maxTurns: agent.DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewToken mints a random 32-byte hex access token.
func NewToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("failed to generate token: %v", err))
	}
	return hex.EncodeToString(buf)
}

// Token returns the access token clients must present.
func (s *Server) Token() string {
	return s.token
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the HTTP handler serving the chat API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	return mux
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if r.Header.Get(TokenHeader) != s.token {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages required")
		return
	}

	messages, err := s.buildMessages(req.Messages)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ag := agent.New(s.provider, s.registry)
	events := ag.RunStream(r.Context(), messages,
		agent.WithMaxTurns(s.maxTurns),
		agent.WithChatOptions(s.chatOpts...),
	)

	for ev := range events {
		writeSSE(w, flusher, ev)
	}
}

func (s *Server) buildMessages(in []chatMessage) ([]ai.Message, error) {
	var messages []ai.Message
	hasSystem := false

	for _, m := range in {
		switch ai.Role(m.Role) {
		case ai.RoleSystem:
			hasSystem = true
			messages = append(messages, ai.NewSystemMessage(m.Content))
		case ai.RoleUser:
			messages = append(messages, ai.NewUserMessage(m.Content))
		case ai.RoleAssistant:
			messages = append(messages, ai.NewAssistantMessage(m.Content))
		default:
			return nil, fmt.Errorf("unsupported role %q", m.Role)
		}
	}

	if s.systemPrompt != "" && !hasSystem {
		messages = append([]ai.Message{ai.NewSystemMessage(s.systemPrompt)}, messages...)
	}
	return messages, nil
}

// wireEvent is the SSE payload shape.
type wireEvent struct {
	Type       string         `json:"type"`
	Turn       int            `json:"turn,omitempty"`
	MessageID  string         `json:"messageId,omitempty"`
	Delta      string         `json:"delta,omitempty"`
	Content    string         `json:"content,omitempty"`
	ToolCall   *ai.ToolCall   `json:"toolCall,omitempty"`
	ToolResult *ai.ToolResult `json:"toolResult,omitempty"`
	Error      string         `json:"error,omitempty"`
	Message    string         `json:"message,omitempty"`
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev event.Event) {
	wire := wireEvent{
		Type:       string(ev.Type),
		Turn:       ev.Turn,
		MessageID:  ev.MessageID,
		Delta:      ev.Delta,
		ToolCall:   ev.ToolCall,
		ToolResult: ev.ToolResult,
		Message:    ev.Message,
	}
	if ev.Response != nil {
		wire.Content = ev.Response.Content
	}
	if ev.Error != nil {
		wire.Error = ev.Error.Error()
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	flusher.Flush()
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
