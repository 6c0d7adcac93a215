// Package server wires HTTP handlers into a chi router for the pixelplace
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRoutes configures and returns a router with all application routes.
// The WebSocket, health, stats and board endpoints are registered first;
// every other path is served from staticDir when it is set.
func SetupRoutes(h *Hub, staticDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.HandleFunc("/ws", h.WebSocketHandler)
	r.Get("/health", HealthHandler)
	r.Get("/stats", h.StatsHandler)
	r.Get("/board.json", h.BoardHandler)

	if staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	} else {
		r.Get("/", HealthHandler)
	}

	return r
}
