// Package output renders single-shot answers in the formats accepted by --format.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Result is one answer produced outside the interactive session.
type Result struct {
	Provider  string    `json:"provider" yaml:"provider"`
	Model     string    `json:"model" yaml:"model"`
	Prompt    string    `json:"prompt" yaml:"prompt"`
	Source    string    `json:"source,omitempty" yaml:"source,omitempty"`
	Response  string    `json:"response" yaml:"response"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Render writes r to w in the given format: text, markdown, json or yaml.
func Render(w io.Writer, format string, r Result) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		_, err := io.WriteString(w, ensureNewline(r.Response))
		return err
	case "markdown", "md":
		return renderMarkdown(w, r)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func renderMarkdown(w io.Writer, r Result) error {
	var sb strings.Builder
	sb.WriteString("# MyCodeHelper Response\n\n")
	fmt.Fprintf(&sb, "- **Provider:** %s\n", r.Provider)
	fmt.Fprintf(&sb, "- **Model:** %s\n", r.Model)
	if r.Source != "" {
		fmt.Fprintf(&sb, "- **Source:** `%s`\n", r.Source)
	}
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Generated:** %s\n", r.CreatedAt.Format(time.RFC3339))
	}
	if r.Prompt != "" {
		sb.WriteString("\n## Prompt\n\n")
		sb.WriteString(ensureNewline(r.Prompt))
	}
	sb.WriteString("\n## Response\n\n")
	sb.WriteString(ensureNewline(r.Response))
	_, err := io.WriteString(w, sb.String())
	return err
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
