package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Franzferdinan51/MyCodingHelper/pkg/agent"
	configpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/config"
	loggerpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/logger"
	"github.com/Franzferdinan51/MyCodingHelper/pkg/output"
	"github.com/Franzferdinan51/MyCodingHelper/pkg/prompt"
	"github.com/Franzferdinan51/MyCodingHelper/pkg/provider"
	"github.com/Franzferdinan51/MyCodingHelper/pkg/workspace"
)

const version = "0.1.13"

// stdio groups the streams commands read from and write to.
type stdio struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// session is everything a root command run needs.
type session struct {
	cfg    configpkg.Config
	logger loggerpkg.Logger
	agent  *agent.Agent
}

func newRootCommand(s stdio) *cobra.Command {
	var opts cliOptions
	cmd := &cobra.Command{
		Use:           "mycodehelper [prompt...]",
		Short:         "AI coding assistant for Local AI and Hugging Face",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd.Context(), opts, args, s)
		},
	}
	cmd.SetIn(s.in)
	cmd.SetOut(s.out)
	cmd.SetErr(s.err)
	opts.registerPersistent(cmd.PersistentFlags())
	opts.register(cmd.Flags())

	cmd.AddCommand(
		newSetupCommand(&opts, s),
		newInstallCommand(&opts, s),
		newStandaloneCommand(&opts, s),
		newLaunchCommand(&opts, s),
	)
	return cmd
}

func runRoot(ctx context.Context, opts cliOptions, args []string, s stdio) error {
	if ctx == nil {
		ctx = context.Background()
	}
	question := strings.TrimSpace(strings.Join(args, " "))
	singleShot := !opts.Interactive && (opts.File != "" || opts.Analyze || question != "")

	cfg, err := loadCLIConfig(opts)
	if err != nil {
		return err
	}
	// Rendered output and saved files need the whole reply at once.
	if singleShot && (opts.Output != "" || cfg.OutputFormat != configpkg.DefaultOutputFormat) {
		cfg.Streaming = false
	}

	sess, err := newSession(cfg, opts, s)
	if err != nil {
		return err
	}

	switch {
	case opts.Interactive || !singleShot:
		reader := newLineReader(s.in, s.out)
		defer reader.Close()
		return runREPL(ctx, sess.agent, replOptions{
			Stream:  cfg.Streaming,
			Verbose: cfg.Verbose,
			Logger:  sess.logger,
		}, reader, s.out)
	case opts.File != "":
		file, resp, err := sess.agent.ReviewFile(ctx, opts.File, question)
		if err != nil {
			return err
		}
		if question == "" {
			question = prompt.DefaultFilePrompt(file.Extension)
		}
		return sess.emit(opts, s.out, question, file.Path, resp)
	case question != "":
		resp, err := sess.agent.Prompt(ctx, question)
		if err != nil {
			return err
		}
		return sess.emit(opts, s.out, question, "", resp)
	default:
		_, _ = fmt.Fprintln(s.err, "Analyzing codebase...")
		summary, resp, err := sess.agent.AnalyzeProject(ctx)
		if err != nil {
			return err
		}
		loggerpkg.Info(sess.logger, "codebase analyzed", summary)
		return sess.emit(opts, s.out, prompt.ProjectAnalysis, cfg.ProjectRoot, resp)
	}
}

func newSession(cfg configpkg.Config, opts cliOptions, s stdio) (*session, error) {
	appLogger, err := loggerpkg.New(s.err, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	client, err := provider.New(cfg, provider.WithLogger(appLogger))
	if err != nil {
		return nil, err
	}
	app, err := agent.New(cfg, client,
		agent.WithLogger(appLogger),
		agent.WithStreamWriter(s.out),
		agent.WithProjectContext(opts.Codebase),
	)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: appLogger, agent: app}, nil
}

// emit prints a single-shot answer or saves it to opts.Output.
func (s *session) emit(opts cliOptions, out io.Writer, question, source string, resp provider.Response) error {
	client := s.agent.Provider()
	result := output.Result{
		Provider:  client.Name(),
		Model:     client.Model(),
		Prompt:    question,
		Source:    source,
		Response:  resp.Text,
		CreatedAt: time.Now().UTC(),
	}

	if opts.Output != "" {
		var buf bytes.Buffer
		if err := output.Render(&buf, s.cfg.OutputFormat, result); err != nil {
			return err
		}
		if err := workspace.WriteFile(opts.Output, buf.String()); err != nil {
			return fmt.Errorf("save response: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Response saved to %s\n", opts.Output)
		return nil
	}
	if resp.Streamed {
		_, _ = fmt.Fprintln(out)
		return nil
	}
	return output.Render(out, s.cfg.OutputFormat, result)
}
