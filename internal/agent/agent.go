// Package agent provides named agent personas and their registry.
package agent

import "github.com/polychat-ai/polychat/pkg/types"

// AnalystName is the agent preferred for running session analysis prompts.
const AnalystName = "analyst"

// Agent is a named LLM persona with its own instructions and model settings.
type Agent struct {
	Name        string               `json:"name" yaml:"name"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Prompt      string               `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Settings    *types.ModelSettings `json:"settings,omitempty" yaml:"settings,omitempty"`
	BuiltIn     bool                 `json:"builtIn" yaml:"-"`
}

// Clone creates a deep copy of the agent.
func (a *Agent) Clone() *Agent {
	clone := &Agent{
		Name:        a.Name,
		Description: a.Description,
		Prompt:      a.Prompt,
		BuiltIn:     a.BuiltIn,
	}
	if a.Settings != nil {
		settings := *a.Settings
		if a.Settings.Temperature != nil {
			temp := *a.Settings.Temperature
			settings.Temperature = &temp
		}
		if a.Settings.TopP != nil {
			topP := *a.Settings.TopP
			settings.TopP = &topP
		}
		clone.Settings = &settings
	}
	return clone
}

const analystPrompt = `你是一个专业的会话分析师，擅长从对话中提取关键信息和洞见。`

// BuiltInAgents returns the default agent configurations.
func BuiltInAgents() map[string]*Agent {
	return map[string]*Agent{
		"assistant": {
			Name:        "assistant",
			Description: "General-purpose conversational agent",
			BuiltIn:     true,
		},
		AnalystName: {
			Name:        AnalystName,
			Description: "Session analysis agent for extracting insights from transcripts",
			Prompt:      analystPrompt,
			BuiltIn:     true,
		},
	}
}
