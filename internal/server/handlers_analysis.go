package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/polychat-ai/polychat/internal/session"
	"github.com/polychat-ai/polychat/pkg/types"
)

// analyzeSession handles POST /session/{sessionID}/analyze
//
// The body is an optional AnalysisOptions document; an empty body analyzes
// with defaults. Analysis is best-effort and always returns 200 with
// whatever could be derived.
func (s *Server) analyzeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess := s.manager.Get(sessionID)
	if sess == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	// An empty body means default options; ContentLength is not checked so
	// chunked requests work too.
	opts := &types.AnalysisOptions{}
	if err := json.NewDecoder(r.Body).Decode(opts); err != nil {
		if !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
			return
		}
		opts = nil
	}

	analysis := s.analyzer.AnalyzeSession(r.Context(), sess, opts)
	writeJSON(w, http.StatusOK, analysis)
}

// quickSummary handles GET /session/{sessionID}/summary
func (s *Server) quickSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess := s.manager.Get(sessionID)
	if sess == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	summary := s.analyzer.QuickSummary(r.Context(), sess)
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// getCollaboration handles GET /session/{sessionID}/collaboration
func (s *Server) getCollaboration(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess := s.manager.Get(sessionID)
	if sess == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
		return
	}

	report := session.AnalyzeCollaboration(sess)
	writeJSON(w, http.StatusOK, report)
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"gateway": s.gw != nil && s.gw.IsRunning(),
	})
}
