// Command taichat is a terminal chat client with an agent tool loop.
// Dangerous tool calls (file writes, shell commands) pause for a y/n
// approval before executing.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	ai "github.com/zPy52/taichat"
	"github.com/zPy52/taichat/agent"
	"github.com/zPy52/taichat/config"
	"github.com/zPy52/taichat/event"
	"github.com/zPy52/taichat/mcp"
	"github.com/zPy52/taichat/provider"
	"github.com/zPy52/taichat/server"
	"github.com/zPy52/taichat/session"
	"github.com/zPy52/taichat/tool"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	serve := flag.Bool("serve", false, "run the local chat server instead of the REPL")
	addr := flag.String("addr", server.DefaultAddr, "chat server listen address")
	modelFlag := flag.String("model", "", "model to use, as <provider>:<model>")
	flag.Parse()

	// A missing .env is fine.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if !cfg.HasAnyAPIKey() {
		fmt.Println("No API keys configured.")
		fmt.Println("Set one of OPENAI_API_KEY, ANTHROPIC_API_KEY, GOOGLE_API_KEY,")
		fmt.Println("DEEPSEEK_API_KEY, or KIMI_API_KEY, or use /config set inside taichat.")
		return nil
	}

	modelID := *modelFlag
	if modelID == "" {
		modelID = cfg.DefaultModel
	}
	if modelID == "" {
		modelID = provider.DefaultModelID
	}

	chatProvider, err := provider.Resolve(modelID, cfg)
	if err != nil {
		return err
	}

	registry, closers := buildRegistry(cfg)
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	if *serve {
		return runServer(chatProvider, registry, *addr)
	}
	return runREPL(chatProvider, registry, cfg, modelID)
}

// buildRegistry combines the built-in catalog with tools from any
// configured MCP servers. Unreachable servers are reported and skipped.
func buildRegistry(cfg *config.AppConfig) (*tool.Registry, []*mcp.Server) {
	catalog := tool.Catalog(
		tool.WithCatalogSearch(tool.WithExaAPIKey(cfg.GetAPIKey("exa"))),
	)

	if len(cfg.MCPServers) == 0 {
		return catalog, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	servers := mcp.ConnectAll(ctx, cfg.MCPServers, func(name string, err error) {
		fmt.Fprintf(os.Stderr, "warning: skipping MCP server %s: %v\n", name, err)
	})

	regs := catalog.Registrations()
	for _, s := range servers {
		regs = append(regs, s.Registrations()...)
	}

	combined, err := tool.New(regs...)
	if err != nil {
		// An MCP tool collides with a built-in; fall back to built-ins.
		fmt.Fprintf(os.Stderr, "warning: %v; MCP tools disabled\n", err)
		for _, s := range servers {
			s.Close()
		}
		return catalog, nil
	}
	return combined, servers
}

func runServer(chatProvider ai.ChatProvider, registry *tool.Registry, addr string) error {
	srv := server.New(chatProvider, registry,
		server.WithAddr(addr),
		server.WithSystemPrompt(systemPrompt()),
	)
	fmt.Printf("chat server listening on http://%s\n", addr)
	fmt.Printf("token: %s\n", srv.Token())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Start(ctx)
}

func systemPrompt() string {
	cwd, _ := os.Getwd()
	return fmt.Sprintf(
		"You are TaiChat, a helpful AI assistant running in the user's terminal. "+
			"The current working directory is %s. "+
			"You can read and write files, list directories, run shell commands, and search the web using your tools. "+
			"Be concise: your output is rendered in a terminal.", cwd)
}

func runREPL(chatProvider ai.ChatProvider, registry *tool.Registry, cfg *config.AppConfig, modelID string) error {
	stdin := bufio.NewReader(os.Stdin)

	var sess *session.Session
	sess = session.New(chatProvider, registry,
		session.WithSystemPrompt(systemPrompt()),
		session.WithOnApprovalRequest(func(call ai.ToolCall) {
			// Runs on the agent goroutine while the main goroutine is
			// draining events, so reading stdin here does not race.
			fmt.Printf("\n[approval] %s %s\n", call.Name, call.Arguments)
			fmt.Print("allow? [y/N] ")
			answer, err := stdin.ReadString('\n')
			if err == nil && strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
				sess.Approve(call.ID)
			} else {
				sess.Deny(call.ID)
			}
		}),
	)

	// Ctrl-C cancels the in-flight turn; a second one at the prompt exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		for range sigCh {
			if sess.Busy() {
				sess.Cancel()
			} else {
				fmt.Println("\nbye")
				os.Exit(0)
			}
		}
	}()

	fmt.Printf("taichat — %s. Type /help for commands.\n", modelID)

	for {
		fmt.Print("> ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			exit, err := handleCommand(line, sess, cfg, &modelID)
			if err != nil {
				fmt.Println(err)
			}
			if exit {
				return nil
			}
			continue
		}

		if err := sendTurn(sess, line); err != nil {
			fmt.Println(err)
		}
	}
}

func sendTurn(sess *session.Session, text string) error {
	events, err := sess.Send(context.Background(), text)
	if err != nil {
		return err
	}

	assistantStarted := false
	for ev := range events {
		switch ev.Type {
		case event.MessageDelta:
			if !assistantStarted {
				assistantStarted = true
			}
			fmt.Print(ev.Delta)

		case event.MessageEnd:
			if assistantStarted {
				fmt.Println()
				assistantStarted = false
			}

		case event.ToolCallStart:
			if ev.ToolCall != nil {
				fmt.Printf("[tool] %s %s\n", ev.ToolCall.Name, ev.ToolCall.Arguments)
			}

		case event.ToolCallDenied:
			fmt.Println("[tool] denied")

		case event.ToolCallResult:
			if ev.ToolResult != nil && ev.ToolResult.IsError && !ev.ToolResult.Denied {
				fmt.Printf("[tool] error: %s\n", ev.ToolResult.Content)
			}

		case event.RunError:
			fmt.Printf("\n[error] %v\n", ev.Error)

		case event.RunEnd:
			if ev.Message != "" && ev.Message != string(agent.TerminationComplete) {
				fmt.Printf("[%s]\n", ev.Message)
			}
		}
	}
	return nil
}

func handleCommand(line string, sess *session.Session, cfg *config.AppConfig, modelID *string) (exit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/exit", "/quit":
		return true, nil

	case "/help":
		fmt.Println("/model [id|number]  list models or switch")
		fmt.Println("/clear              clear the conversation")
		fmt.Println("/config             show configuration")
		fmt.Println("/config set <provider> <key>  store an API key")
		fmt.Println("/help               this help")
		fmt.Println("/exit               quit")
		return false, nil

	case "/clear":
		if err := sess.Clear(); err != nil {
			return false, err
		}
		fmt.Println("conversation cleared")
		return false, nil

	case "/model":
		return false, handleModel(fields[1:], sess, cfg, modelID)

	case "/config":
		return false, handleConfig(fields[1:], cfg)

	default:
		return false, fmt.Errorf("unknown command %s, try /help", fields[0])
	}
}

func handleModel(args []string, sess *session.Session, cfg *config.AppConfig, modelID *string) error {
	models := provider.Models()

	if len(args) == 0 {
		for i, m := range models {
			marker := "  "
			if m.ID == *modelID {
				marker = "* "
			}
			fmt.Printf("%s%2d. %-36s %s\n", marker, i+1, m.ID, m.Name)
		}
		fmt.Println("switch with /model <id|number>")
		return nil
	}

	selected := args[0]
	if n, err := strconv.Atoi(selected); err == nil {
		if n < 1 || n > len(models) {
			return fmt.Errorf("model number out of range")
		}
		selected = models[n-1].ID
	}

	chatProvider, err := provider.Resolve(selected, cfg)
	if err != nil {
		return err
	}
	if err := sess.SetProvider(chatProvider); err != nil {
		return err
	}

	*modelID = selected
	cfg.DefaultModel = selected
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("model switched but config not saved: %w", err)
	}
	fmt.Printf("model set to %s\n", selected)
	return nil
}

func handleConfig(args []string, cfg *config.AppConfig) error {
	if len(args) == 0 {
		path, _ := config.Path()
		fmt.Printf("config: %s\n", path)
		fmt.Printf("default model: %s\n", cfg.DefaultModel)

		providers := make([]string, 0, len(config.EnvKeys))
		for p := range config.EnvKeys {
			providers = append(providers, p)
		}
		sort.Strings(providers)
		for _, p := range providers {
			status := "not set"
			if os.Getenv(config.EnvKeys[p]) != "" {
				status = "set (env)"
			} else if cfg.GetAPIKey(p) != "" {
				status = "set (config)"
			}
			fmt.Printf("%-10s %s\n", p, status)
		}
		return nil
	}

	if args[0] == "set" {
		if len(args) != 3 {
			return fmt.Errorf("usage: /config set <provider> <key>")
		}
		providerName := args[1]
		if _, ok := config.EnvKeys[providerName]; !ok {
			return fmt.Errorf("unknown provider %s", providerName)
		}
		cfg.SetAPIKey(providerName, args[2])
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("%s key saved\n", providerName)
		return nil
	}

	return fmt.Errorf("usage: /config [set <provider> <key>]")
}
