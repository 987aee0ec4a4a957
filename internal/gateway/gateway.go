// Package gateway provides the agent-invocation interface backing chat turns
// and session analysis, implemented over the Eino framework.
package gateway

import (
	"context"

	"github.com/polychat-ai/polychat/internal/agent"
)

// ChatMessage is one turn of the prompt sent to a model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest carries the prompt and per-call options for a generation.
type GenerateRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// GenerateResult is the non-streaming generation output.
type GenerateResult struct {
	Text string `json:"text"`
}

// Stream yields text deltas until io.EOF. A stream is finite and not
// restartable.
type Stream interface {
	Recv() (string, error)
	Close()
}

// Gateway is the abstract agent-invocation capability. Implementations
// resolve agentID to a persona and invoke the underlying model.
type Gateway interface {
	// IsRunning reports whether the gateway can serve generation requests.
	IsRunning() bool

	// GetAgent resolves a named agent persona.
	GetAgent(ctx context.Context, name string) (*agent.Agent, error)

	// Generate produces a complete response for the request.
	Generate(ctx context.Context, agentID string, req *GenerateRequest) (*GenerateResult, error)

	// StreamGenerate produces a streaming response for the request.
	StreamGenerate(ctx context.Context, agentID string, req *GenerateRequest) (Stream, error)
}
