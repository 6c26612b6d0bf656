package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
	"unicode/utf8"

	ai "github.com/zPy52/taichat"
)

// OutputLimit is the maximum number of characters captured from each of
// stdout and stderr. Output beyond the limit is dropped and the result
// is flagged as truncated.
const OutputLimit = 24000

// DefaultCommandTimeout bounds how long a shell command may run.
const DefaultCommandTimeout = 30 * time.Second

type executeCommandArgs struct {
	Command string `json:"command" desc:"Shell command to execute" required:"true"`
	Cwd     string `json:"cwd" desc:"Working directory for the command. Defaults to the current directory."`
}

// ExecuteCommandTool declares the execute_command tool.
func ExecuteCommandTool() ai.Tool {
	return ai.Tool{
		Name:        "execute_command",
		Description: "Execute a shell command and return its stdout, stderr, and exit code.",
		Parameters:  ai.MustSchemaFor[executeCommandArgs](),
	}
}

// ExecuteCommandHandler returns the handler for execute_command.
// Commands run under sh -c with the process environment, bounded by
// timeout (DefaultCommandTimeout if zero or negative).
func ExecuteCommandHandler(timeout time.Duration) Handler {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	return Typed(func(ctx context.Context, args executeCommandArgs) (string, error) {
		if args.Cwd != "" {
			info, err := os.Stat(args.Cwd)
			if err != nil || !info.IsDir() {
				return "", fmt.Errorf("Directory not found: %s", args.Cwd)
			}
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, "sh", "-c", args.Command)
		cmd.Dir = args.Cwd
		cmd.Env = os.Environ()

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		runErr := cmd.Run()

		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("command timed out after %s", timeout)
		}

		exitCode := 0
		if runErr != nil {
			var exitErr *exec.ExitError
			if errors.As(runErr, &exitErr) {
				exitCode = exitErr.ExitCode()
			} else {
				// The command never started (e.g. sh missing).
				return "", fmt.Errorf("failed to execute command: %w", runErr)
			}
		}

		outText, outTruncated := capOutput(stdout.String())
		errText, errTruncated := capOutput(stderr.String())

		cwd := args.Cwd
		if cwd == "" {
			cwd, _ = os.Getwd()
		}

		return marshalResult(map[string]any{
			"cwd":       cwd,
			"stdout":    outText,
			"stderr":    errText,
			"exitCode":  exitCode,
			"truncated": outTruncated || errTruncated,
		})
	})
}

func capOutput(s string) (string, bool) {
	if len(s) <= OutputLimit {
		return s, false
	}
	// Back off to a rune boundary so the cut never leaves invalid UTF-8.
	end := OutputLimit
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end], true
}
