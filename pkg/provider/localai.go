package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	configpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/config"
	loggerpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/logger"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	localAIName       = "Local AI"
	noLocalAIResponse = "No response from Local AI"
)

// LocalAI talks to an OpenAI-compatible server such as LM Studio, Ollama or llama.cpp.
type LocalAI struct {
	client      openai.Client
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	streaming   bool

	logger  loggerpkg.Logger
	verbose bool
}

func newLocalAI(cfg configpkg.Config, o options) *LocalAI {
	baseURL := strings.TrimRight(cfg.LocalAI.BaseURL, "/") + "/v1/"
	return &LocalAI{
		client:      newOpenAIClient(baseURL, cfg.LocalAI.APIKey, o),
		model:       cfg.LocalAI.Model,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		streaming:   cfg.Streaming,
		logger:      o.logger,
		verbose:     o.verbose,
	}
}

func newOpenAIClient(baseURL, apiKey string, o options) openai.Client {
	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if o.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(o.httpClient))
	}
	return openai.NewClient(opts...)
}

func (c *LocalAI) Kind() Kind    { return KindLocalAI }
func (c *LocalAI) Name() string  { return localAIName }
func (c *LocalAI) Model() string { return c.model }

// Generate posts one chat completion request.
func (c *LocalAI) Generate(ctx context.Context, req Request) (Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    buildMessages(req),
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
	}
	loggerpkg.Debug(c.verbose, c.logger, "local ai request", map[string]any{
		"base_url":    c.baseURL,
		"model":       c.model,
		"messages":    len(params.Messages),
		"attachments": len(req.Attachments),
		"stream":      req.Stream && c.streaming,
	})

	if req.Stream && c.streaming {
		return c.generateStream(ctx, params, writerOrDiscard(req.StreamWriter))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, c.wrapError(err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return Response{Text: noLocalAIResponse}, nil
	}
	return Response{Text: completion.Choices[0].Message.Content}, nil
}

func (c *LocalAI) generateStream(ctx context.Context, params openai.ChatCompletionNewParams, w io.Writer) (Response, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var text strings.Builder
	streamed := false
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		_, _ = io.WriteString(w, delta)
		text.WriteString(delta)
		streamed = true
	}
	if err := stream.Err(); err != nil {
		return Response{Text: text.String(), Streamed: streamed}, c.wrapError(err)
	}
	if text.Len() == 0 {
		_, _ = io.WriteString(w, noLocalAIResponse)
		return Response{Text: noLocalAIResponse, Streamed: true}, nil
	}
	return Response{Text: text.String(), Streamed: streamed}, nil
}

func (c *LocalAI) wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &StatusError{
			Provider:   localAIName,
			StatusCode: apiErr.StatusCode,
			Body:       apiErr.Message,
		}
	}
	return fmt.Errorf("%s request: %w", localAIName, err)
}

// buildMessages orders the system prompt, attached files, history and the prompt.
func buildMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+3)
	if req.SystemPrompt != "" {
		out = append(out, openai.SystemMessage(req.SystemPrompt))
	}
	if len(req.Attachments) > 0 {
		blocks := make([]string, 0, len(req.Attachments))
		for _, a := range req.Attachments {
			blocks = append(blocks, fmt.Sprintf("File: %s\n```%s\n%s\n```", a.Path, strings.TrimPrefix(a.Extension, "."), a.Content))
		}
		out = append(out, openai.SystemMessage("Here are the relevant files for context:\n\n"+strings.Join(blocks, "\n\n")))
	}
	for _, msg := range req.History {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return append(out, openai.UserMessage(req.Prompt))
}
