package types

// SessionAnalysis is the structured result of analyzing a session transcript.
// Fields derived from model output may be empty when generation or parsing
// fails; the deterministic fields are always populated.
type SessionAnalysis struct {
	Summary           string         `json:"summary"`
	KeyPoints         []string       `json:"keyPoints"`
	NextSteps         []string       `json:"nextSteps"`
	RelatedTopics     []string       `json:"relatedTopics"`
	MessageCount      int            `json:"messageCount"`
	AgentContribution map[string]int `json:"agentContribution"`
	SentimentScore    *float64       `json:"sentimentScore,omitempty"`
	Complexity        *float64       `json:"complexity,omitempty"`
}

// AnalysisOptions controls which sections the analysis prompt requests and
// how much of the transcript is sent to the model. The section toggles are
// pointers so that partially-specified options merge over the defaults: a nil
// toggle means enabled, only an explicit false disables a section.
type AnalysisOptions struct {
	IncludeSummary       *bool `json:"includeSummary,omitempty"`
	IncludeKeyPoints     *bool `json:"includeKeyPoints,omitempty"`
	IncludeNextSteps     *bool `json:"includeNextSteps,omitempty"`
	IncludeRelatedTopics *bool `json:"includeRelatedTopics,omitempty"`
	// MaxMessages caps how many of the most recent non-system messages are
	// analyzed. Values <= 0 fall back to the default.
	MaxMessages int `json:"maxMessages,omitempty"`
}

// Bool returns a pointer to v, for building AnalysisOptions literals.
func Bool(v bool) *bool { return &v }

// AgentContribution is one agent's share of a session's assistant messages.
type AgentContribution struct {
	AgentID      string `json:"agentId"`
	AgentName    string `json:"agentName"`
	MessageCount int    `json:"messageCount"`
}

// CollaborationReport describes how evenly message volume is distributed
// across the agents active in a session.
type CollaborationReport struct {
	TotalAgents        int                 `json:"totalAgents"`
	ActiveAgents       int                 `json:"activeAgents"`
	Contributions      []AgentContribution `json:"contributions"`
	CollaborationScore float64             `json:"collaborationScore"`
}
