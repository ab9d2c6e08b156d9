package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jacksnnn/fabublox-process-selector/internal/session"
)

// NewRouter creates a chi router with all API routes mounted. Every route
// requires an authenticated session. eventsHandler, if non-nil, is
// mounted at GET /events inside the auth group.
func NewRouter(h *Handler, sessions session.Provider, eventsHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(RequireSession(sessions))

	// Credential + passthrough proxy.
	r.Get("/token", h.Token)
	r.Post("/proxy", h.Proxy)

	// Process metadata via the secure proxy.
	r.Get("/processes", h.UserProcesses)
	r.Get("/processes/{id}", h.ProcessByID)
	r.Get("/processes/{id}/svg", h.ProcessSVG)

	// Topic custom-field lifecycle.
	r.Get("/topics/{id}/fields", h.TopicFields)
	r.Put("/topics/{id}/fields", h.CommitTopicFields)

	// Field-commit event stream (protected by same auth middleware).
	if eventsHandler != nil {
		r.Get("/events", eventsHandler.ServeHTTP)
	}

	return r
}
