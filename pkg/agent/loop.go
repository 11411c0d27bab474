package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	configpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/config"
	loggerpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/logger"
	"github.com/Franzferdinan51/MyCodingHelper/pkg/prompt"
	"github.com/Franzferdinan51/MyCodingHelper/pkg/provider"
	"github.com/Franzferdinan51/MyCodingHelper/pkg/workspace"
)

// Limits on what is sent alongside a prompt.
const (
	HistoryLimit           = 10
	FileHistoryLimit       = 5
	ProjectAttachmentLimit = 10
)

// Agent holds chat session state.
type Agent struct {
	config       configpkg.Config
	client       provider.Client
	SystemPrompt string
	conversation []provider.Message
	project      *workspace.Summary

	streamWriter io.Writer
	logger       loggerpkg.Logger
	verbose      bool
}

// Status is a snapshot of the session for the status command.
type Status struct {
	Provider       string
	Model          string
	Messages       int
	Temperature    float64
	MaxTokens      int
	ContextWindow  int
	Streaming      bool
	ProjectContext bool
	ProjectFiles   int
	WorkingDir     string
}

// New initializes an Agent with the provided config, provider client, and dependencies.
func New(cfg configpkg.Config, client provider.Client, opts ...AgentOption) (*Agent, error) {
	cfg = configpkg.Normalize(cfg)
	deps := agentDeps{logger: loggerpkg.NopLogger{}, streamWriter: io.Discard}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}
	if client == nil {
		return nil, errors.New("provider client is required")
	}

	a := &Agent{
		config:       cfg,
		client:       client,
		SystemPrompt: prompt.System(),
		streamWriter: deps.streamWriter,
		logger:       deps.logger,
		verbose:      cfg.Verbose,
	}
	if a.streamWriter == nil {
		a.streamWriter = io.Discard
	}
	loggerpkg.Debug(a.verbose, a.logger, "agent init", map[string]any{
		"provider":     client.Kind(),
		"model":        client.Model(),
		"streaming":    cfg.Streaming,
		"project_root": cfg.ProjectRoot,
	})

	if deps.projectContext {
		if _, err := a.LoadProjectContext(); err != nil {
			return nil, fmt.Errorf("load project context: %w", err)
		}
	}
	return a, nil
}

// Provider returns the selected provider client.
func (a *Agent) Provider() provider.Client {
	return a.client
}

// Ask sends one chat turn. The recent conversation is sent as history and
// the exchange is recorded only when the provider call succeeds.
func (a *Agent) Ask(ctx context.Context, input string) (provider.Response, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return provider.Response{}, errors.New("user input is required")
	}

	history := tail(a.conversation, HistoryLimit)
	previousLen := len(a.conversation)
	a.conversation = append(a.conversation, provider.Message{Role: provider.RoleUser, Content: input})

	resp, err := a.generate(ctx, provider.Request{
		Prompt:       input,
		SystemPrompt: a.chatSystemPrompt(),
		History:      history,
	})
	if err != nil {
		a.conversation = a.conversation[:previousLen]
		return provider.Response{}, err
	}

	a.conversation = append(a.conversation, provider.Message{Role: provider.RoleAssistant, Content: resp.Text})
	return resp, nil
}

// AskAboutFile loads path into the conversation and asks for insights on it.
func (a *Agent) AskAboutFile(ctx context.Context, path string) (*workspace.File, provider.Response, error) {
	file, err := workspace.ReadFile(path)
	if err != nil {
		return nil, provider.Response{}, fmt.Errorf("could not read file %s: %w", path, err)
	}

	resp, err := a.generate(ctx, provider.Request{
		Prompt:       prompt.InteractiveFilePrompt(path),
		SystemPrompt: prompt.InteractiveFile(a.SystemPrompt),
		Attachments:  []provider.Attachment{attachment(file)},
		History:      tail(a.conversation, FileHistoryLimit),
	})
	if err != nil {
		return file, provider.Response{}, err
	}

	a.conversation = append(a.conversation,
		provider.Message{Role: provider.RoleUser, Content: fmt.Sprintf("[File: %s]", path)},
		provider.Message{Role: provider.RoleAssistant, Content: resp.Text},
	)
	return file, resp, nil
}

// ReviewFile analyzes a single file outside the conversation. An empty
// question falls back to a generic review prompt for the file type.
func (a *Agent) ReviewFile(ctx context.Context, path, question string) (*workspace.File, provider.Response, error) {
	file, err := workspace.ReadFile(path)
	if err != nil {
		return nil, provider.Response{}, fmt.Errorf("could not read file %s: %w", path, err)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		question = prompt.DefaultFilePrompt(file.Extension)
	}

	resp, err := a.generate(ctx, provider.Request{
		Prompt:       question,
		SystemPrompt: prompt.FileReview(),
		Attachments:  []provider.Attachment{attachment(file)},
	})
	return file, resp, err
}

// Prompt answers a single question outside the conversation.
func (a *Agent) Prompt(ctx context.Context, question string) (provider.Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return provider.Response{}, errors.New("prompt is required")
	}
	return a.generate(ctx, provider.Request{
		Prompt:       question,
		SystemPrompt: a.chatSystemPrompt(),
	})
}

// AnalyzeProject scans the project root and asks for an architecture review.
// The conversation is left untouched.
func (a *Agent) AnalyzeProject(ctx context.Context) (*workspace.Summary, provider.Response, error) {
	files, err := workspace.Scan(a.config.ProjectRoot, workspace.DefaultMaxFiles)
	if err != nil {
		return nil, provider.Response{}, err
	}
	summary, err := workspace.Summarize(a.config.ProjectRoot)
	if err != nil {
		return nil, provider.Response{}, err
	}

	attachments := make([]provider.Attachment, 0, ProjectAttachmentLimit)
	for _, f := range files {
		if len(attachments) == ProjectAttachmentLimit {
			break
		}
		attachments = append(attachments, attachment(f))
	}
	loggerpkg.Debug(a.verbose, a.logger, "project analysis", map[string]any{
		"files":       summary.TotalFiles,
		"attachments": len(attachments),
	})

	resp, err := a.generate(ctx, provider.Request{
		Prompt:       prompt.ProjectAnalysis,
		SystemPrompt: prompt.Architect(summary),
		Attachments:  attachments,
	})
	return summary, resp, err
}

// LoadProjectContext summarizes the project root and adds it to chat prompts.
func (a *Agent) LoadProjectContext() (*workspace.Summary, error) {
	summary, err := workspace.Summarize(a.config.ProjectRoot)
	if err != nil {
		return nil, err
	}
	a.project = summary
	loggerpkg.Debug(a.verbose, a.logger, "project context loaded", map[string]any{
		"files":     summary.TotalFiles,
		"languages": summary.LanguageList(),
	})
	return summary, nil
}

// ProjectContext returns the loaded project summary, if any.
func (a *Agent) ProjectContext() *workspace.Summary {
	return a.project
}

// Conversation returns a copy of the recorded messages.
func (a *Agent) Conversation() []provider.Message {
	return append([]provider.Message(nil), a.conversation...)
}

// Reset clears conversation history.
func (a *Agent) Reset() {
	a.conversation = nil
}

// Status reports the current session settings.
func (a *Agent) Status() Status {
	s := Status{
		Provider:       a.client.Name(),
		Model:          a.client.Model(),
		Messages:       len(a.conversation),
		Temperature:    a.config.Temperature,
		MaxTokens:      a.config.MaxTokens,
		ContextWindow:  a.config.ContextWindow,
		Streaming:      a.config.Streaming,
		ProjectContext: a.project != nil,
		WorkingDir:     a.config.ProjectRoot,
	}
	if a.project != nil {
		s.ProjectFiles = a.project.TotalFiles
	}
	return s
}

func (a *Agent) generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req.Stream = a.config.Streaming
	req.StreamWriter = a.streamWriter
	loggerpkg.Debug(a.verbose, a.logger, "generate", map[string]any{
		"provider": a.client.Kind(),
		"history":  len(req.History),
		"files":    len(req.Attachments),
		"stream":   req.Stream,
	})
	resp, err := a.client.Generate(ctx, req)
	if err != nil {
		loggerpkg.Debug(a.verbose, a.logger, "generate failed", map[string]any{
			"provider": a.client.Kind(),
			"error":    err.Error(),
		})
		return provider.Response{}, err
	}
	return resp, nil
}

func (a *Agent) chatSystemPrompt() string {
	return prompt.WithProject(a.SystemPrompt, a.project)
}

func attachment(f *workspace.File) provider.Attachment {
	return provider.Attachment{Path: f.Path, Extension: f.Extension, Content: f.Content}
}

func tail(messages []provider.Message, n int) []provider.Message {
	if len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	return append([]provider.Message(nil), messages...)
}
