package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	configpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/config"
	loggerpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/logger"
	"github.com/tidwall/gjson"
)

const huggingFaceName = "Hugging Face"

// HuggingFace talks to the hosted inference API.
type HuggingFace struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	streaming   bool
	streamDelay time.Duration

	logger  loggerpkg.Logger
	verbose bool
}

func newHuggingFace(cfg configpkg.Config, o options) *HuggingFace {
	return &HuggingFace{
		httpClient:  o.httpClient,
		endpoint:    strings.TrimRight(cfg.HuggingFace.BaseURL, "/") + "/" + cfg.HuggingFace.Model,
		apiKey:      cfg.HuggingFace.APIKey,
		model:       cfg.HuggingFace.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		streaming:   cfg.Streaming,
		streamDelay: o.streamDelay,
		logger:      o.logger,
		verbose:     o.verbose,
	}
}

func (c *HuggingFace) Kind() Kind    { return KindHuggingFace }
func (c *HuggingFace) Name() string  { return huggingFaceName }
func (c *HuggingFace) Model() string { return c.model }

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfParameters struct {
	Temperature    float64 `json:"temperature"`
	MaxNewTokens   int     `json:"max_new_tokens"`
	ReturnFullText bool    `json:"return_full_text"`
	DoSample       bool    `json:"do_sample"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
	UseCache     bool `json:"use_cache"`
}

// Generate posts the flattened transcript and normalizes the reply.
func (c *HuggingFace) Generate(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: buildTranscript(req),
		Parameters: hfParameters{
			Temperature:    c.temperature,
			MaxNewTokens:   c.maxTokens,
			ReturnFullText: false,
			DoSample:       true,
		},
		Options: hfOptions{WaitForModel: true, UseCache: false},
	})
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	loggerpkg.Debug(c.verbose, c.logger, "hugging face request", map[string]any{
		"endpoint":    c.endpoint,
		"bytes":       len(body),
		"attachments": len(req.Attachments),
	})

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("%s request: %w", huggingFaceName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read %s response: %w", huggingFaceName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, &StatusError{
			Provider:   huggingFaceName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	text, err := ParseGeneratedText(raw)
	if err != nil {
		return Response{}, err
	}

	if req.Stream && c.streaming {
		if err := writeWords(ctx, writerOrDiscard(req.StreamWriter), text, c.streamDelay); err != nil {
			return Response{Text: text}, err
		}
		return Response{Text: text, Streamed: true}, nil
	}
	return Response{Text: text}, nil
}

// ParseGeneratedText extracts generated_text from either reply shape the
// inference API uses: a list of generations or a single object.
func ParseGeneratedText(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("%s returned invalid JSON", huggingFaceName)
	}
	doc := gjson.ParseBytes(raw)
	if doc.IsObject() {
		if e := doc.Get("error"); e.Exists() {
			return "", fmt.Errorf("%s API error: %s", huggingFaceName, e.String())
		}
	}

	var text gjson.Result
	switch {
	case doc.IsArray():
		text = doc.Get("0.generated_text")
	case doc.IsObject():
		text = doc.Get("generated_text")
	}
	if text.String() == "" {
		return "No response", nil
	}
	return text.String(), nil
}

// buildTranscript flattens the request into the Human/Assistant text format.
func buildTranscript(req Request) string {
	var b strings.Builder
	if req.SystemPrompt != "" {
		fmt.Fprintf(&b, "System: %s\n\n", req.SystemPrompt)
	}
	if len(req.Attachments) > 0 {
		b.WriteString("Files for context:\n")
		for _, a := range req.Attachments {
			fmt.Fprintf(&b, "\n%s:\n%s\n", a.Path, a.Content)
		}
		b.WriteString("\n")
	}
	for _, msg := range req.History {
		speaker := "Assistant"
		if msg.Role == RoleUser {
			speaker = "Human"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, msg.Content)
	}
	fmt.Fprintf(&b, "Human: %s\nAssistant:", req.Prompt)
	return b.String()
}

// writeWords replays text one word at a time.
func writeWords(ctx context.Context, w io.Writer, text string, delay time.Duration) error {
	words := strings.Split(text, " ")
	for i, word := range words {
		if i > 0 {
			if delay > 0 {
				t := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					t.Stop()
					return ctx.Err()
				case <-t.C:
				}
			}
			_, _ = io.WriteString(w, " ")
		}
		if _, err := io.WriteString(w, word); err != nil {
			return err
		}
	}
	return nil
}
