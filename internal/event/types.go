package event

import "github.com/polychat-ai/polychat/pkg/types"

// SessionData is the payload for session.created/updated/deleted events.
type SessionData struct {
	Info *types.Session `json:"info"`
}

// MessageData is the payload for message.created/updated events.
type MessageData struct {
	SessionID string         `json:"sessionId"`
	Info      *types.Message `json:"info"`
}

// AnalysisData is the payload for analysis.completed events.
type AnalysisData struct {
	SessionID string                 `json:"sessionId"`
	Analysis  *types.SessionAnalysis `json:"analysis"`
}
