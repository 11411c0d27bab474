// Package provider talks to the text-generation endpoints the helper supports.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	configpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/config"
	loggerpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/logger"
)

// Kind identifies a provider variant.
type Kind string

const (
	KindLocalAI     Kind = configpkg.ProviderLocalAI
	KindHuggingFace Kind = configpkg.ProviderHuggingFace
)

// Role is the role for a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is the provider-agnostic chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Attachment is a file sent alongside a prompt.
type Attachment struct {
	Path      string
	Extension string
	Content   string
}

// Request describes one generation call.
type Request struct {
	Prompt       string
	SystemPrompt string
	Attachments  []Attachment
	History      []Message

	// Stream asks the provider to write text to StreamWriter as it arrives.
	Stream       bool
	StreamWriter io.Writer
}

// Response is the normalized reply of a provider.
type Response struct {
	Text     string
	Streamed bool
}

// Client is implemented by every provider.
type Client interface {
	Kind() Kind
	Name() string
	Model() string
	Generate(ctx context.Context, req Request) (Response, error)
}

// ErrNoProvider is returned when neither provider has an API key.
var ErrNoProvider = errors.New("no AI provider configured: set HUGGING_FACE_API_KEY or LOCAL_AI_API_KEY")

// StatusError reports a non-2xx reply from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API error: %d %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s API error: %d %s", e.Provider, e.StatusCode, e.Body)
}

// Option configures optional dependencies of a provider client.
type Option func(*options)

type options struct {
	httpClient  *http.Client
	logger      loggerpkg.Logger
	streamDelay time.Duration
	verbose     bool
}

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger injects a logger dependency.
func WithLogger(l loggerpkg.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithStreamDelay sets the pause between words when a provider replays a
// finished reply as a stream.
func WithStreamDelay(d time.Duration) Option {
	return func(o *options) {
		o.streamDelay = d
	}
}

// New selects a provider from cfg. A Hugging Face key takes precedence over
// the local server key.
func New(cfg configpkg.Config, opts ...Option) (Client, error) {
	o := options{
		httpClient:  http.DefaultClient,
		logger:      loggerpkg.NopLogger{},
		streamDelay: 50 * time.Millisecond,
		verbose:     cfg.Verbose,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.httpClient == nil {
		o.httpClient = http.DefaultClient
	}

	var client Client
	switch {
	case cfg.HuggingFace.APIKey != "":
		client = newHuggingFace(cfg, o)
	case cfg.LocalAI.APIKey != "":
		client = newLocalAI(cfg, o)
	default:
		return nil, ErrNoProvider
	}

	if cfg.DefaultProvider != "" && Kind(cfg.DefaultProvider) != client.Kind() {
		loggerpkg.Debug(o.verbose, o.logger, "default provider ignored, selected by API key", map[string]any{
			"default_provider": cfg.DefaultProvider,
			"selected":         client.Kind(),
		})
	}
	loggerpkg.Debug(o.verbose, o.logger, "provider selected", map[string]any{
		"provider": client.Kind(),
		"model":    client.Model(),
	})
	return client, nil
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
