// Package types provides the core data types for the Polychat server.
package types

// Session represents a conversation thread shared by one or more agents.
type Session struct {
	ID             string                   `json:"id"`
	Title          string                   `json:"title"`
	AgentIDs       []string                 `json:"agentIds"`
	DefaultAgentID string                   `json:"defaultAgentId"`
	AgentContexts  map[string]*AgentContext `json:"agentContexts,omitempty"`
	Messages       []Message                `json:"messages"`
	CreatedAt      int64                    `json:"createdAt"`
	UpdatedAt      int64                    `json:"updatedAt"`
}

// AgentContext holds per-session overrides for a participating agent.
// An entry may exist for an agent that is not (yet) in AgentIDs: context can
// be staged before enrollment.
type AgentContext struct {
	SystemPrompt  string         `json:"systemPrompt,omitempty"`
	ModelSettings *ModelSettings `json:"modelSettings,omitempty"`
}

// ModelSettings configures model invocation for a single agent.
type ModelSettings struct {
	Model       string   `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	TopP        *float64 `json:"topP,omitempty" yaml:"topP,omitempty"`
}

// HasAgent reports whether agentID is a member of the session.
func (s *Session) HasAgent(agentID string) bool {
	for _, id := range s.AgentIDs {
		if id == agentID {
			return true
		}
	}
	return false
}

// EnsureAgentContext returns the context entry for agentID, creating it if
// absent. Entries are never pre-populated at session creation.
func (s *Session) EnsureAgentContext(agentID string) *AgentContext {
	if s.AgentContexts == nil {
		s.AgentContexts = make(map[string]*AgentContext)
	}
	actx, ok := s.AgentContexts[agentID]
	if !ok {
		actx = &AgentContext{}
		s.AgentContexts[agentID] = actx
	}
	return actx
}

// Clone creates a deep copy of the session.
func (s *Session) Clone() *Session {
	clone := &Session{
		ID:             s.ID,
		Title:          s.Title,
		DefaultAgentID: s.DefaultAgentID,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}

	clone.AgentIDs = make([]string, len(s.AgentIDs))
	copy(clone.AgentIDs, s.AgentIDs)

	clone.Messages = make([]Message, len(s.Messages))
	copy(clone.Messages, s.Messages)

	if s.AgentContexts != nil {
		clone.AgentContexts = make(map[string]*AgentContext, len(s.AgentContexts))
		for id, actx := range s.AgentContexts {
			copied := &AgentContext{SystemPrompt: actx.SystemPrompt}
			if actx.ModelSettings != nil {
				settings := *actx.ModelSettings
				if actx.ModelSettings.Temperature != nil {
					temp := *actx.ModelSettings.Temperature
					settings.Temperature = &temp
				}
				if actx.ModelSettings.TopP != nil {
					topP := *actx.ModelSettings.TopP
					settings.TopP = &topP
				}
				copied.ModelSettings = &settings
			}
			clone.AgentContexts[id] = copied
		}
	}

	return clone
}
