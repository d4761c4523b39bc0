package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", handleSwaggerUI())

	r.Route("/api/sessions", func(r chi.Router) {
		r.With(hostKeyMiddleware(deps.HostKeyHash)).Post("/", handleCreateSession(logger, deps.Sessions))

		r.Route("/{sessionID}", func(r chi.Router) {
			// Viewers may watch without an identity.
			r.Get("/events", handleEvents(deps.Sessions, deps.Broker))
			r.Get("/ws", handleWS(logger, deps.Sessions, deps.Broker))
			r.Get("/leaderboard", handleLeaderboard(deps.Sessions))

			r.Group(func(r chi.Router) {
				r.Use(playerMiddleware)
				r.Get("/", handleInit(deps.Sessions))
				r.Post("/join", handleJoin(deps.Sessions))
				r.Post("/shapes", handlePlace(deps.Sessions))
			})
		})
	})
}
