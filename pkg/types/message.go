package types

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a single turn in a session.
// AgentID and AgentName are set only on assistant messages attributable to a
// specific participating agent.
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	AgentID   string `json:"agentId,omitempty"`
	AgentName string `json:"agentName,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// MessageDraft is a message before the manager assigns its ID and timestamp.
type MessageDraft struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	AgentID   string `json:"agentId,omitempty"`
	AgentName string `json:"agentName,omitempty"`
}

// MessagePatch describes a partial update to an existing message.
// Nil fields are left untouched.
type MessagePatch struct {
	Content   *string `json:"content,omitempty"`
	AgentID   *string `json:"agentId,omitempty"`
	AgentName *string `json:"agentName,omitempty"`
}
