// System prompt assembly for coding conversations.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Franzferdinan51/MyCodingHelper/pkg/workspace"
)

// ProjectAnalysis is the user prompt sent when analyzing a whole codebase.
const ProjectAnalysis = "Analyze this codebase structure and provide insights about the architecture, patterns, and potential improvements."

// System returns the assistant persona used for chat turns.
func System() string {
	var sb strings.Builder
	sb.WriteString("You are MyCodeHelper, an expert AI coding assistant. You help with:\n")
	sb.WriteString("- Code analysis and debugging\n")
	sb.WriteString("- Architecture and design patterns\n")
	sb.WriteString("- Best practices and optimization\n")
	sb.WriteString("- Documentation and explanations\n")
	sb.WriteString("- Problem solving and algorithms\n\n")
	sb.WriteString("Provide clear, actionable, and helpful responses. When analyzing code, be specific about improvements and potential issues.")
	return sb.String()
}

// WithProject appends the project summary to a system prompt.
func WithProject(base string, summary *workspace.Summary) string {
	if summary == nil {
		return base
	}
	return base + "\n\nProject Context: " + marshalSummary(summary)
}

// FileReview is the system prompt for single-shot file analysis.
func FileReview() string {
	return "You are an expert code analyst. Provide detailed insights about the provided file."
}

// InteractiveFile is the system prompt for files loaded during a chat session.
func InteractiveFile(base string) string {
	return base + "\n\nThe user has provided a file for analysis."
}

// Architect is the system prompt for codebase analysis.
func Architect(summary *workspace.Summary) string {
	return "You are a senior software architect. Analyze this codebase and provide insights about architecture, code quality, and recommendations.\n\nProject Summary: " + marshalSummary(summary)
}

// DefaultFilePrompt is used when a file is analyzed without an explicit question.
func DefaultFilePrompt(extension string) string {
	return fmt.Sprintf("Analyze this %s file and provide insights:", extension)
}

// InteractiveFilePrompt asks for insights about a file loaded in chat.
func InteractiveFilePrompt(path string) string {
	return fmt.Sprintf("Please analyze the file %s and provide insights.", path)
}

func marshalSummary(summary *workspace.Summary) string {
	b, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
