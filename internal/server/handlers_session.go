package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/polychat-ai/polychat/pkg/types"
)

// CreateSessionRequest represents the request body for creating a session.
// A single agentId creates a plain session; agentIds creates a multi-agent
// one. agentIds wins when both are set.
type CreateSessionRequest struct {
	AgentID  string   `json:"agentId,omitempty"`
	AgentIDs []string `json:"agentIds,omitempty"`
	Title    string   `json:"title,omitempty"`
}

// listSessions handles GET /session
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.manager.List()

	// Ensure we return an empty array [] instead of null
	if sessions == nil {
		sessions = []*types.Session{}
	}

	writeJSON(w, http.StatusOK, sessions)
}

// createSession handles POST /session
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	var (
		session *types.Session
		err     error
	)
	if len(req.AgentIDs) > 0 {
		session, err = s.manager.CreateMultiAgent(r.Context(), req.AgentIDs, req.Title)
	} else if req.AgentID != "" {
		session, err = s.manager.Create(r.Context(), req.AgentID, req.Title)
	} else {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "agentId or agentIds is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// getSession handles GET /session/{sessionID}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session := s.manager.Get(sessionID)
	if session == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// renameSession handles PATCH /session/{sessionID}
func (s *Server) renameSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	session, err := s.manager.Rename(r.Context(), sessionID, req.Title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// deleteSession handles DELETE /session/{sessionID}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if s.manager.Get(sessionID) == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	if err := s.manager.Delete(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeSuccess(w)
}

// clearMessages handles POST /session/{sessionID}/clear
func (s *Server) clearMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if s.manager.Get(sessionID) == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	if err := s.manager.ClearMessages(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeSuccess(w)
}

// getActiveSession handles GET /session/active
func (s *Server) getActiveSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.manager.ActiveSession(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "No active session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// setActiveSession handles PUT /session/active
func (s *Server) setActiveSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if s.manager.Get(req.SessionID) == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	if err := s.manager.SetActiveSession(r.Context(), req.SessionID); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeSuccess(w)
}

// exportSessions handles GET /session/export
func (s *Server) exportSessions(w http.ResponseWriter, r *http.Request) {
	data, err := s.manager.Export(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// importSessions handles POST /session/import
func (s *Server) importSessions(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Failed to read body")
		return
	}

	if err := s.manager.Import(r.Context(), data); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	writeSuccess(w)
}
