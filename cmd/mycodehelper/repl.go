package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Franzferdinan51/MyCodingHelper/pkg/agent"
	loggerpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/logger"
	"github.com/Franzferdinan51/MyCodingHelper/pkg/provider"
)

const replPrompt = "You: "

// replOptions configures REPL behavior.
type replOptions struct {
	Stream  bool
	Verbose bool
	Logger  loggerpkg.Logger
}

// runREPL starts an interactive session for the given agent.
func runREPL(ctx context.Context, app *agent.Agent, opts replOptions, in lineReader, out io.Writer) error {
	if app == nil {
		return fmt.Errorf("agent is required")
	}
	if in == nil {
		return fmt.Errorf("input reader is required")
	}
	if out == nil {
		out = io.Discard
	}

	loggerpkg.Debug(opts.Verbose, opts.Logger, "repl start", map[string]any{"stream": opts.Stream})
	printWelcome(out, app.Provider())

	for ctx.Err() == nil {
		line, err := readLine(ctx, in, replPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ctx.Err()) {
				break
			}
			return fmt.Errorf("read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		handled, shouldQuit := handleCommand(ctx, input, app, opts, out)
		if shouldQuit {
			break
		}
		if handled {
			continue
		}

		name := app.Provider().Name()
		ask(out, name, opts.Stream, func() (provider.Response, error) {
			return app.Ask(ctx, input)
		})
	}

	_, _ = fmt.Fprintln(out, "\nGoodbye!")
	return nil
}

type readResult struct {
	line string
	err  error
}

// readLine waits for the next line or for ctx to be cancelled. A read still
// blocked at cancellation is abandoned; the session is ending anyway.
func readLine(ctx context.Context, in lineReader, prompt string) (string, error) {
	done := make(chan readResult, 1)
	go func() {
		line, err := in.ReadLine(prompt)
		done <- readResult{line: line, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.line, r.err
	}
}

// ask prints "{Provider}: " and the reply. With streaming the prefix is
// written first so chunks follow it.
func ask(out io.Writer, name string, stream bool, call func() (provider.Response, error)) {
	if stream {
		_, _ = fmt.Fprintf(out, "\n%s: ", name)
	}
	resp, err := call()
	if err != nil {
		if stream {
			_, _ = fmt.Fprintln(out)
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		_, _ = fmt.Fprintf(out, "Error: %v\n\n", err)
		return
	}
	switch {
	case resp.Streamed:
		_, _ = fmt.Fprint(out, "\n\n")
	case stream:
		_, _ = fmt.Fprintf(out, "%s\n\n", resp.Text)
	default:
		_, _ = fmt.Fprintf(out, "\n%s: %s\n\n", name, resp.Text)
	}
}

func printWelcome(out io.Writer, client provider.Client) {
	_, _ = fmt.Fprintf(out, "=== MyCodeHelper v%s - Interactive Mode ===\n", version)
	_, _ = fmt.Fprintf(out, "Using %s: %s\n", client.Name(), client.Model())
	_, _ = fmt.Fprintln(out, `Type your message and press Enter. Type "help" for commands.`)
	_, _ = fmt.Fprintln(out)
}

// handleCommand runs a session command. Commands are case-insensitive and
// may start with "/". It reports whether input was a command and whether
// the session should end.
func handleCommand(ctx context.Context, input string, app *agent.Agent, opts replOptions, out io.Writer) (bool, bool) {
	word, arg, _ := strings.Cut(input, " ")
	slash := strings.HasPrefix(word, "/")
	cmd := strings.ToLower(strings.TrimPrefix(word, "/"))
	arg = strings.TrimSpace(arg)

	switch {
	case cmd == "exit" || cmd == "quit" || (slash && cmd == "q"):
		return true, true
	case cmd == "help" && arg == "":
		printHelp(out)
		return true, false
	case cmd == "clear" && arg == "":
		app.Reset()
		_, _ = fmt.Fprintln(out, "Conversation history cleared.")
		_, _ = fmt.Fprintln(out)
		return true, false
	case cmd == "status" && arg == "":
		printStatus(out, app.Status())
		return true, false
	case cmd == "analyze" && arg == "":
		runAnalyze(ctx, app, opts, out)
		return true, false
	case cmd == "file":
		if arg == "" {
			_, _ = fmt.Fprintln(out, "Usage: file <path>")
			_, _ = fmt.Fprintln(out)
			return true, false
		}
		_, _ = fmt.Fprintf(out, "Reading %s...\n", arg)
		ask(out, app.Provider().Name(), opts.Stream, func() (provider.Response, error) {
			_, resp, err := app.AskAboutFile(ctx, arg)
			return resp, err
		})
		return true, false
	case slash:
		_, _ = fmt.Fprintf(out, "Unknown command: %s. Type help for available commands.\n\n", input)
		return true, false
	default:
		return false, false
	}
}

func runAnalyze(ctx context.Context, app *agent.Agent, opts replOptions, out io.Writer) {
	_, _ = fmt.Fprintln(out, "Analyzing codebase...")
	ask(out, app.Provider().Name(), opts.Stream, func() (provider.Response, error) {
		summary, resp, err := app.AnalyzeProject(ctx)
		if err == nil && summary != nil {
			loggerpkg.Debug(opts.Verbose, opts.Logger, "codebase summary", summary)
		}
		return resp, err
	})
}

func printStatus(out io.Writer, s agent.Status) {
	_, _ = fmt.Fprintln(out, "Session status:")
	_, _ = fmt.Fprintf(out, "  Provider:          %s\n", s.Provider)
	_, _ = fmt.Fprintf(out, "  Model:             %s\n", s.Model)
	_, _ = fmt.Fprintf(out, "  Messages:          %d\n", s.Messages)
	_, _ = fmt.Fprintf(out, "  Temperature:       %g\n", s.Temperature)
	_, _ = fmt.Fprintf(out, "  Max tokens:        %d\n", s.MaxTokens)
	_, _ = fmt.Fprintf(out, "  Context window:    %d\n", s.ContextWindow)
	_, _ = fmt.Fprintf(out, "  Streaming:         %t\n", s.Streaming)
	if s.ProjectContext {
		_, _ = fmt.Fprintf(out, "  Project context:   loaded (%d files)\n", s.ProjectFiles)
	} else {
		_, _ = fmt.Fprintln(out, "  Project context:   not loaded")
	}
	_, _ = fmt.Fprintf(out, "  Working directory: %s\n", s.WorkingDir)
	_, _ = fmt.Fprintln(out)
}

func printHelp(out io.Writer) {
	_, _ = fmt.Fprintln(out, "Commands:")
	_, _ = fmt.Fprintln(out, "  help         - Show this help message")
	_, _ = fmt.Fprintln(out, "  clear        - Clear conversation history")
	_, _ = fmt.Fprintln(out, "  status       - Show provider, model and session settings")
	_, _ = fmt.Fprintln(out, "  analyze      - Analyze the current codebase")
	_, _ = fmt.Fprintln(out, "  file <path>  - Ask about a specific file")
	_, _ = fmt.Fprintln(out, "  exit, quit   - Exit the program")
	_, _ = fmt.Fprintln(out)
}
