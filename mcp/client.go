// Package mcp folds tools from Model Context Protocol servers into the
// local tool registry. Every remote tool is registered as dangerous:
// the process has no way to know what side effects a server performs,
// so each call goes through the approval gate.
package mcp

import (
	"context"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	ai "github.com/zPy52/taichat"
	"github.com/zPy52/taichat/config"
	"github.com/zPy52/taichat/tool"
)

// Server is a live connection to one MCP server and the tools it offers.
type Server struct {
	name   string
	client *client.Client
	tools  []ai.Tool
}

// Connect starts a connection for the given declaration. Command/Args
// select stdio transport; URL selects SSE.
func Connect(ctx context.Context, name string, decl config.MCPServer) (*Server, error) {
	var c *client.Client
	var err error

	switch {
	case decl.URL != "":
		c, err = client.NewSSEMCPClient(decl.URL)
	case decl.Command != "":
		env := make([]string, 0, len(decl.Env))
		for k, v := range decl.Env {
			env = append(env, k+"="+v)
		}
		sort.Strings(env)
		c, err = client.NewStdioMCPClient(decl.Command, env, decl.Args...)
	default:
		return nil, fmt.Errorf("mcp server %s: neither command nor url configured", name)
	}
	if err != nil {
		return nil, fmt.Errorf("mcp server %s: %w", name, err)
	}

	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("mcp server %s: failed to start: %w", name, err)
	}

	_, err = c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "taichat",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("mcp server %s: failed to initialize: %w", name, err)
	}

	listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("mcp server %s: failed to list tools: %w", name, err)
	}

	s := &Server{name: name, client: c}
	for _, t := range listed.Tools {
		s.tools = append(s.tools, fromMCPTool(t))
	}
	return s, nil
}

// Name returns the configured server name.
func (s *Server) Name() string {
	return s.name
}

// Tools returns the tool declarations the server offers.
func (s *Server) Tools() []ai.Tool {
	out := make([]ai.Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

// Registrations returns the server's tools as registry registrations.
// All remote tools are dangerous.
func (s *Server) Registrations() []tool.Registration {
	regs := make([]tool.Registration, 0, len(s.tools))
	for _, t := range s.tools {
		regs = append(regs, tool.Registration{
			Tool:      t,
			Dangerous: true,
			Handler:   s.handler(),
		})
	}
	return regs
}

func (s *Server) handler() tool.Handler {
	return func(ctx context.Context, call ai.ToolCall) (string, error) {
		result, err := s.client.CallTool(ctx, toCallRequest(call))
		if err != nil {
			return "", fmt.Errorf("mcp server %s: %w", s.name, err)
		}
		text, isError := resultText(result)
		if isError {
			return "", fmt.Errorf("mcp server %s: %s", s.name, text)
		}
		return text, nil
	}
}

// Close releases the server connection.
func (s *Server) Close() error {
	return s.client.Close()
}

// ConnectAll connects every configured server. Unreachable servers are
// skipped and reported through onError; a partial set is normal.
func ConnectAll(ctx context.Context, servers map[string]config.MCPServer, onError func(name string, err error)) []*Server {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	var connected []*Server
	for _, name := range names {
		s, err := Connect(ctx, name, servers[name])
		if err != nil {
			if onError != nil {
				onError(name, err)
			}
			continue
		}
		connected = append(connected, s)
	}
	return connected
}
