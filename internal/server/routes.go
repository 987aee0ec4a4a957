package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Session routes
	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)

		r.Get("/active", s.getActiveSession)
		r.Put("/active", s.setActiveSession)

		r.Get("/export", s.exportSessions)
		r.Post("/import", s.importSessions)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Patch("/", s.renameSession)
			r.Delete("/", s.deleteSession)
			r.Post("/clear", s.clearMessages)

			// Messages
			r.Get("/message", s.listMessages)
			r.Post("/message", s.addMessage)
			r.Get("/message/{messageID}", s.getMessage)
			r.Patch("/message/{messageID}", s.updateMessage)

			// Chat turns
			r.Post("/chat", s.chat)

			// Agent membership
			r.Post("/agent", s.addSessionAgent)
			r.Delete("/agent/{agentID}", s.removeSessionAgent)
			r.Put("/agent/default", s.setDefaultAgent)
			r.Put("/agent/{agentID}/prompt", s.setAgentSystemPrompt)
			r.Put("/agent/{agentID}/model", s.setAgentModelSettings)

			// Analysis
			r.Post("/analyze", s.analyzeSession)
			r.Get("/summary", s.quickSummary)
			r.Get("/collaboration", s.getCollaboration)
		})
	})

	// Agent registry
	r.Get("/agent", s.listAgents)

	// Event streaming (SSE)
	r.Get("/event", s.allEvents)

	// Liveness
	r.Get("/health", s.health)
}
