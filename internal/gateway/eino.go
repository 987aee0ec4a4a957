package gateway

import (
	"context"
	"fmt"
	"os"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/polychat-ai/polychat/internal/agent"
	"github.com/polychat-ai/polychat/internal/logging"
)

// Config holds configuration for the Eino-backed gateway.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// EinoGateway implements Gateway over an Eino OpenAI chat model. Per-agent
// system prompts and model settings come from the agent registry.
type EinoGateway struct {
	registry  *agent.Registry
	chatModel model.ToolCallingChatModel
}

// NewEinoGateway creates a gateway backed by the OpenAI chat model.
func NewEinoGateway(ctx context.Context, cfg *Config, registry *agent.Registry) (*EinoGateway, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = "gpt-4o-mini"
	}

	modelCfg := &openai.ChatModelConfig{
		APIKey:              apiKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	}
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return &EinoGateway{
		registry:  registry,
		chatModel: chatModel,
	}, nil
}

// IsRunning reports whether the gateway has a usable chat model.
func (g *EinoGateway) IsRunning() bool {
	return g != nil && g.chatModel != nil
}

// GetAgent resolves a named agent from the registry.
func (g *EinoGateway) GetAgent(ctx context.Context, name string) (*agent.Agent, error) {
	return g.registry.Get(name)
}

// Generate produces a complete response, retrying transient model failures.
func (g *EinoGateway) Generate(ctx context.Context, agentID string, req *GenerateRequest) (*GenerateResult, error) {
	if !g.IsRunning() {
		return nil, fmt.Errorf("gateway is not running")
	}

	messages, opts := g.prepare(agentID, req)

	var out *schema.Message
	operation := func() error {
		var err error
		out, err = g.chatModel.Generate(ctx, messages, opts...)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("generate failed: %w", err)
	}

	return &GenerateResult{Text: out.Content}, nil
}

// StreamGenerate produces a streaming response.
func (g *EinoGateway) StreamGenerate(ctx context.Context, agentID string, req *GenerateRequest) (Stream, error) {
	if !g.IsRunning() {
		return nil, fmt.Errorf("gateway is not running")
	}

	messages, opts := g.prepare(agentID, req)

	reader, err := g.chatModel.Stream(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("stream failed: %w", err)
	}

	return &einoStream{reader: reader}, nil
}

// prepare resolves the agent persona and converts the request into Eino
// messages and options. An unknown agentID falls through to a bare prompt.
func (g *EinoGateway) prepare(agentID string, req *GenerateRequest) ([]*schema.Message, []model.Option) {
	var persona *agent.Agent
	if g.registry != nil {
		if a, err := g.registry.Get(agentID); err == nil {
			persona = a
		} else {
			log := logging.For("gateway")
			log.Debug().Str("agent", agentID).Msg("no persona for agent, using bare prompt")
		}
	}

	messages := toSchemaMessages(req.Messages, persona)

	var opts []model.Option
	switch {
	case req.Temperature != nil:
		opts = append(opts, model.WithTemperature(float32(*req.Temperature)))
	case persona != nil && persona.Settings != nil && persona.Settings.Temperature != nil:
		opts = append(opts, model.WithTemperature(float32(*persona.Settings.Temperature)))
	}
	if persona != nil && persona.Settings != nil && persona.Settings.Model != "" {
		opts = append(opts, model.WithModel(persona.Settings.Model))
	}

	return messages, opts
}

// toSchemaMessages converts chat messages to Eino schema messages. When the
// persona defines a system prompt and the request has no system message of
// its own, the persona prompt is prepended.
func toSchemaMessages(messages []ChatMessage, persona *agent.Agent) []*schema.Message {
	hasSystem := false
	for _, m := range messages {
		if m.Role == "system" {
			hasSystem = true
			break
		}
	}

	result := make([]*schema.Message, 0, len(messages)+1)
	if !hasSystem && persona != nil && persona.Prompt != "" {
		result = append(result, &schema.Message{Role: schema.System, Content: persona.Prompt})
	}

	for _, m := range messages {
		role := schema.Assistant
		switch m.Role {
		case "user":
			role = schema.User
		case "system":
			role = schema.System
		}
		result = append(result, &schema.Message{Role: role, Content: m.Content})
	}

	return result
}

// einoStream adapts an Eino stream reader to the Stream interface.
type einoStream struct {
	reader *schema.StreamReader[*schema.Message]
}

func (s *einoStream) Recv() (string, error) {
	msg, err := s.reader.Recv()
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (s *einoStream) Close() {
	s.reader.Close()
}
