// Package launcher prepares and runs the Node.js distribution of the helper.
package launcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sort"
	"time"
)

// Command describes one external process.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env is added on top of the current process environment.
	Env     map[string]string
	Timeout time.Duration
}

// Result captures command execution metadata and output.
type Result struct {
	Command    string   `json:"command"`
	Args       []string `json:"args,omitempty"`
	WorkingDir string   `json:"working_dir,omitempty"`
	ExitCode   int      `json:"exit_code"`
	Stdout     string   `json:"stdout,omitempty"`
	Stderr     string   `json:"stderr,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`

	Err error `json:"-"`
}

// Stdio is the terminal an interactive command is attached to.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Runner executes external commands.
type Runner interface {
	// Output runs cmd to completion and captures stdout and stderr.
	Output(ctx context.Context, cmd Command) Result
	// Interactive runs cmd attached to stdio and waits for it to exit.
	Interactive(ctx context.Context, cmd Command, stdio Stdio) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Output executes a command with timeout and captures stdout/stderr.
func (ExecRunner) Output(ctx context.Context, c Command) Result {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
	execCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, c.Name, c.Args...)
	cmd.Env = mergeEnv(os.Environ(), c.Env)
	cmd.Dir = c.Dir

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start).Milliseconds()

	exitCode := 0
	errText := ""
	if err != nil {
		errText = err.Error()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		errText = "command timed out"
		exitCode = -1
	}

	return Result{
		Command:    c.Name,
		Args:       c.Args,
		WorkingDir: c.Dir,
		ExitCode:   exitCode,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: duration,
		Error:      errText,
		Err:        err,
	}
}

// Interactive runs the command in the foreground. The child shares the
// terminal and receives Ctrl-C itself, so ctx is only checked before start.
func (ExecRunner) Interactive(ctx context.Context, c Command, stdio Stdio) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Env = mergeEnv(os.Environ(), c.Env)
	cmd.Dir = c.Dir
	cmd.Stdin = stdio.In
	cmd.Stdout = stdio.Out
	cmd.Stderr = stdio.Err
	return cmd.Run()
}

// mergeEnv appends overrides to base in a stable order; later entries win.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := append([]string{}, base...)
	for _, k := range keys {
		out = append(out, k+"="+overrides[k])
	}
	return out
}
