package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/polychat-ai/polychat/internal/gateway"
	"github.com/polychat-ai/polychat/pkg/types"
)

// ChatRequest represents one chat turn: the user content plus an optional
// agent override. The session default agent answers when agentId is empty.
type ChatRequest struct {
	Content string `json:"content"`
	AgentID string `json:"agentId,omitempty"`
	Stream  bool   `json:"stream,omitempty"`
}

// chat handles POST /session/{sessionID}/chat
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "content is required")
		return
	}

	sess := s.manager.Get(sessionID)
	if sess == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	if s.gw == nil {
		writeError(w, http.StatusBadGateway, ErrCodeGatewayError, "Generation gateway is not configured")
		return
	}

	agentID := req.AgentID
	if agentID == "" {
		agentID = sess.DefaultAgentID
	}

	if _, err := s.manager.AddMessage(r.Context(), sessionID, types.MessageDraft{
		Role:    types.RoleUser,
		Content: req.Content,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Re-read so the prompt includes the turn just appended.
	sess = s.manager.Get(sessionID)
	genReq := s.buildGenerateRequest(sess, agentID)

	if req.Stream {
		s.streamChat(w, r, sessionID, agentID, genReq)
		return
	}

	result, err := s.gw.Generate(r.Context(), agentID, genReq)
	if err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeGatewayError, err.Error())
		return
	}

	reply, err := s.manager.AddMessage(r.Context(), sessionID, types.MessageDraft{
		Role:      types.RoleAssistant,
		Content:   result.Text,
		AgentID:   agentID,
		AgentName: s.agentDisplayName(r, agentID),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// streamChat streams deltas over SSE, then records the full reply.
func (s *Server) streamChat(w http.ResponseWriter, r *http.Request, sessionID, agentID string, genReq *gateway.GenerateRequest) {
	stream, err := s.gw.StreamGenerate(r.Context(), agentID, genReq)
	if err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeGatewayError, err.Error())
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	var full []byte
	for {
		chunk, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug().Err(err).Str("session", sessionID).Msg("chat stream interrupted")
			}
			break
		}
		full = append(full, chunk...)
		if err := sse.writeEvent("delta", map[string]string{"text": chunk}); err != nil {
			return
		}
	}

	reply, err := s.manager.AddMessage(r.Context(), sessionID, types.MessageDraft{
		Role:      types.RoleAssistant,
		Content:   string(full),
		AgentID:   agentID,
		AgentName: s.agentDisplayName(r, agentID),
	})
	if err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("failed to record streamed reply")
		return
	}

	sse.writeEvent("done", reply)
}

// buildGenerateRequest maps the session transcript into a prompt, applying
// the per-session agent context when one is set.
func (s *Server) buildGenerateRequest(sess *types.Session, agentID string) *gateway.GenerateRequest {
	req := &gateway.GenerateRequest{}

	if agentCtx, ok := sess.AgentContexts[agentID]; ok {
		if agentCtx.SystemPrompt != "" {
			req.Messages = append(req.Messages, gateway.ChatMessage{
				Role:    types.RoleSystem,
				Content: agentCtx.SystemPrompt,
			})
		}
		if agentCtx.ModelSettings != nil {
			req.Temperature = agentCtx.ModelSettings.Temperature
		}
	}

	for i := range sess.Messages {
		msg := &sess.Messages[i]
		req.Messages = append(req.Messages, gateway.ChatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return req
}

// agentDisplayName resolves an agent's display name, falling back to the id.
func (s *Server) agentDisplayName(r *http.Request, agentID string) string {
	persona, err := s.gw.GetAgent(r.Context(), agentID)
	if err != nil || persona == nil {
		return agentID
	}
	return persona.Name
}
