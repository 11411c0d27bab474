package agent

import (
	"io"

	loggerpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/logger"
)

// AgentOption configures optional runtime dependencies for Agent.
type AgentOption func(*agentDeps)

type agentDeps struct {
	logger         loggerpkg.Logger
	streamWriter   io.Writer
	projectContext bool
}

// WithLogger injects a logger dependency.
func WithLogger(l loggerpkg.Logger) AgentOption {
	return func(d *agentDeps) {
		d.logger = l
	}
}

// WithStreamWriter sets where streamed replies are written as they arrive.
func WithStreamWriter(w io.Writer) AgentOption {
	return func(d *agentDeps) {
		d.streamWriter = w
	}
}

// WithProjectContext loads a project summary at startup and adds it to chat prompts.
func WithProjectContext(enabled bool) AgentOption {
	return func(d *agentDeps) {
		d.projectContext = enabled
	}
}
