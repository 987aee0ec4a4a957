package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/polychat-ai/polychat/internal/agent"
	"github.com/polychat-ai/polychat/pkg/types"
)

// listAgents handles GET /agent
func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	agents := s.registry.List()
	if agents == nil {
		agents = []*agent.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

// addSessionAgent handles POST /session/{sessionID}/agent
func (s *Server) addSessionAgent(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		AgentID string `json:"agentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AgentID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "agentId is required")
		return
	}

	s.mutateSessionAgents(w, r, sessionID, func() error {
		return s.manager.AddAgent(r.Context(), sessionID, req.AgentID)
	})
}

// removeSessionAgent handles DELETE /session/{sessionID}/agent/{agentID}
//
// Removing the default agent is deliberately a no-op; the response carries
// the unchanged session.
func (s *Server) removeSessionAgent(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	agentID := chi.URLParam(r, "agentID")

	s.mutateSessionAgents(w, r, sessionID, func() error {
		return s.manager.RemoveAgent(r.Context(), sessionID, agentID)
	})
}

// setDefaultAgent handles PUT /session/{sessionID}/agent/default
func (s *Server) setDefaultAgent(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		AgentID string `json:"agentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AgentID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "agentId is required")
		return
	}

	s.mutateSessionAgents(w, r, sessionID, func() error {
		return s.manager.SetDefaultAgent(r.Context(), sessionID, req.AgentID)
	})
}

// setAgentSystemPrompt handles PUT /session/{sessionID}/agent/{agentID}/prompt
func (s *Server) setAgentSystemPrompt(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	agentID := chi.URLParam(r, "agentID")

	var req struct {
		SystemPrompt string `json:"systemPrompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	s.mutateSessionAgents(w, r, sessionID, func() error {
		return s.manager.SetAgentSystemPrompt(r.Context(), sessionID, agentID, req.SystemPrompt)
	})
}

// setAgentModelSettings handles PUT /session/{sessionID}/agent/{agentID}/model
func (s *Server) setAgentModelSettings(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	agentID := chi.URLParam(r, "agentID")

	var settings types.ModelSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	s.mutateSessionAgents(w, r, sessionID, func() error {
		return s.manager.SetAgentModelSettings(r.Context(), sessionID, agentID, &settings)
	})
}

// mutateSessionAgents runs a membership mutation and responds with the
// resulting session, or 404 when the session does not exist.
func (s *Server) mutateSessionAgents(w http.ResponseWriter, r *http.Request, sessionID string, fn func() error) {
	if s.manager.Get(sessionID) == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	if err := fn(); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.manager.Get(sessionID))
}
