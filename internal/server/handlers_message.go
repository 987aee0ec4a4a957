package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/polychat-ai/polychat/internal/session"
	"github.com/polychat-ai/polychat/pkg/types"
)

// AddMessageRequest represents the request body for appending a message.
type AddMessageRequest struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	AgentID   string `json:"agentId,omitempty"`
	AgentName string `json:"agentName,omitempty"`
}

// listMessages handles GET /session/{sessionID}/message
func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess := s.manager.Get(sessionID)
	if sess == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	messages := sess.Messages
	if messages == nil {
		messages = []types.Message{}
	}

	writeJSON(w, http.StatusOK, messages)
}

// addMessage handles POST /session/{sessionID}/message
func (s *Server) addMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req AddMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Role == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "role and content are required")
		return
	}

	msg, err := s.manager.AddMessage(r.Context(), sessionID, types.MessageDraft{
		Role:      req.Role,
		Content:   req.Content,
		AgentID:   req.AgentID,
		AgentName: req.AgentName,
	})
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// getMessage handles GET /session/{sessionID}/message/{messageID}
func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	messageID := chi.URLParam(r, "messageID")

	msg := s.manager.GetMessage(sessionID, messageID)
	if msg == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Message not found")
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// updateMessage handles PATCH /session/{sessionID}/message/{messageID}
func (s *Server) updateMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	messageID := chi.URLParam(r, "messageID")

	var patch types.MessagePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if err := s.manager.UpdateMessage(r.Context(), sessionID, messageID, patch); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	if msg := s.manager.GetMessage(sessionID, messageID); msg != nil {
		writeJSON(w, http.StatusOK, msg)
		return
	}

	writeSuccess(w)
}
