package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	configpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/config"
)

func testConfig() configpkg.Config {
	cfg := configpkg.DefaultConfig()
	cfg.MaxTokens = 256
	cfg.Temperature = 0.3
	return cfg
}

// TestNewSelectsProviderByKey verifies Hugging Face wins when both keys are present.
func TestNewSelectsProviderByKey(t *testing.T) {
	cfg := testConfig()
	cfg.HuggingFace.APIKey = "hf_x"
	client, err := New(cfg)
	require.NoError(t, err)
	require.Equal(t, KindHuggingFace, client.Kind())
	require.Equal(t, configpkg.DefaultHuggingFaceModel, client.Model())

	cfg.HuggingFace.APIKey = ""
	client, err = New(cfg)
	require.NoError(t, err)
	require.Equal(t, KindLocalAI, client.Kind())
	require.Equal(t, "Local AI", client.Name())

	cfg.LocalAI.APIKey = ""
	_, err = New(cfg)
	require.ErrorIs(t, err, ErrNoProvider)
}

// TestLocalAIGenerate verifies the chat completion request and reply.
func TestLocalAIGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"tiny",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Use a map."}}]}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.LocalAI = configpkg.LocalAIConfig{APIKey: "secret", BaseURL: srv.URL + "/", Model: "tiny"}
	client, err := New(cfg)
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), Request{
		Prompt:       "How do I dedupe?",
		SystemPrompt: "be brief",
		Attachments:  []Attachment{{Path: "a.go", Extension: ".go", Content: "package a"}},
		History: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Use a map.", resp.Text)
	require.False(t, resp.Streamed)

	require.Equal(t, "tiny", got["model"])
	require.EqualValues(t, 256, got["max_tokens"])
	require.InDelta(t, 0.3, got["temperature"], 1e-9)
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 5)
	files := messages[1].(map[string]any)
	require.Equal(t, "system", files["role"])
	require.Contains(t, files["content"], "File: a.go\n```go\npackage a\n```")
	last := messages[4].(map[string]any)
	require.Equal(t, "user", last["role"])
	require.Equal(t, "How do I dedupe?", last["content"])
}

// TestLocalAIEmptyChoices verifies the placeholder reply.
func TestLocalAIEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"tiny","choices":[]}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.LocalAI.BaseURL = srv.URL
	client, err := New(cfg)
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	require.Equal(t, "No response from Local AI", resp.Text)
}

// TestLocalAIStreaming verifies deltas are written as they arrive.
func TestLocalAIStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "lo", " there"} {
			_, _ = fmt.Fprintf(w, "data: {\"id\":\"s1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"tiny\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.LocalAI.BaseURL = srv.URL
	client, err := New(cfg)
	require.NoError(t, err)

	var out bytes.Buffer
	resp, err := client.Generate(context.Background(), Request{Prompt: "hi", Stream: true, StreamWriter: &out})
	require.NoError(t, err)
	require.True(t, resp.Streamed)
	require.Equal(t, "Hello there", resp.Text)
	require.Equal(t, "Hello there", out.String())
}

// TestLocalAIEmptyStream verifies a stream without content still yields the placeholder reply.
func TestLocalAIEmptyStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"id\":\"s1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"tiny\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.LocalAI.BaseURL = srv.URL
	client, err := New(cfg)
	require.NoError(t, err)

	var out bytes.Buffer
	resp, err := client.Generate(context.Background(), Request{Prompt: "hi", Stream: true, StreamWriter: &out})
	require.NoError(t, err)
	require.True(t, resp.Streamed)
	require.Equal(t, "No response from Local AI", resp.Text)
	require.Equal(t, "No response from Local AI", out.String())
}

// TestLocalAIStatusError verifies non-2xx replies surface as StatusError without retries.
func TestLocalAIStatusError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"model crashed"}}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.LocalAI.BaseURL = srv.URL
	client, err := New(cfg)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{Prompt: "hi"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "got %v", err)
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	require.Equal(t, 1, calls)
}

// TestHuggingFaceGenerate verifies the inference request body and array reply.
func TestHuggingFaceGenerate(t *testing.T) {
	var got hfRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/org/model", r.URL.Path)
		require.Equal(t, "Bearer hf_x", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `[{"generated_text":" Sure thing."}]`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.HuggingFace = configpkg.HuggingFaceConfig{APIKey: "hf_x", Model: "org/model", BaseURL: srv.URL + "/models"}
	client, err := New(cfg)
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), Request{
		Prompt:       "help",
		SystemPrompt: "sys",
		History:      []Message{{Role: RoleUser, Content: "q"}, {Role: RoleAssistant, Content: "a"}},
	})
	require.NoError(t, err)
	require.Equal(t, " Sure thing.", resp.Text)

	require.Equal(t, "System: sys\n\nHuman: q\nAssistant: a\nHuman: help\nAssistant:", got.Inputs)
	require.Equal(t, 256, got.Parameters.MaxNewTokens)
	require.False(t, got.Parameters.ReturnFullText)
	require.True(t, got.Parameters.DoSample)
	require.True(t, got.Options.WaitForModel)
	require.False(t, got.Options.UseCache)
}

// TestHuggingFaceSimulatedStreaming verifies the finished text is replayed to the writer.
func TestHuggingFaceSimulatedStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"generated_text":"one two three"}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.HuggingFace = configpkg.HuggingFaceConfig{APIKey: "hf_x", Model: "m", BaseURL: srv.URL}
	client, err := New(cfg, WithStreamDelay(time.Millisecond))
	require.NoError(t, err)

	var out bytes.Buffer
	resp, err := client.Generate(context.Background(), Request{Prompt: "count", Stream: true, StreamWriter: &out})
	require.NoError(t, err)
	require.True(t, resp.Streamed)
	require.Equal(t, "one two three", out.String())
}

// TestHuggingFaceStatusError verifies the body is carried in the error.
func TestHuggingFaceStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"Model is loading"}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.HuggingFace = configpkg.HuggingFaceConfig{APIKey: "hf_x", Model: "m", BaseURL: srv.URL}
	client, err := New(cfg)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{Prompt: "x"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	require.Contains(t, err.Error(), "Model is loading")
}

// TestParseGeneratedText covers both reply shapes and the fallbacks.
func TestParseGeneratedText(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "array", raw: `[{"generated_text":"a"}]`, want: "a"},
		{name: "object", raw: `{"generated_text":"b"}`, want: "b"},
		{name: "empty array", raw: `[]`, want: "No response"},
		{name: "missing field", raw: `{"other":1}`, want: "No response"},
		{name: "scalar", raw: `"text"`, want: "No response"},
		{name: "error object", raw: `{"error":"bad token"}`, wantErr: true},
		{name: "invalid", raw: `not json`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseGeneratedText([]byte(tc.raw))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// TestBuildTranscriptIncludesFiles verifies the files block layout.
func TestBuildTranscriptIncludesFiles(t *testing.T) {
	got := buildTranscript(Request{
		Prompt:      "review",
		Attachments: []Attachment{{Path: "main.py", Content: "print(1)"}},
	})
	require.True(t, strings.HasPrefix(got, "Files for context:\n\nmain.py:\nprint(1)\n\n"))
	require.True(t, strings.HasSuffix(got, "Human: review\nAssistant:"))
}

// TestWriteWordsStopsOnCancel verifies cancellation interrupts the replay.
func TestWriteWordsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	err := writeWords(ctx, &out, "a b c", time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, "a", out.String())
}
