// Package server exposes the HTTP surface: a small JSON API for sessions and
// room lookups, and the websocket endpoint everything else flows through.
package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lucasmv/wordclash-backend/internal/auth"
	"github.com/lucasmv/wordclash-backend/internal/config"
	"github.com/lucasmv/wordclash-backend/internal/game"
	"github.com/lucasmv/wordclash-backend/internal/stats"
)

type Server struct {
	cfg      *config.Config
	registry *game.Registry
	sessions *auth.Sessions
	stats    *stats.PostgresRecorder // nil when persistence is disabled
	log      zerolog.Logger

	upgrader websocket.Upgrader
}

func New(cfg *config.Config, registry *game.Registry, sessions *auth.Sessions, rec *stats.PostgresRecorder, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		sessions: sessions,
		stats:    rec,
		log:      log.With().Str("component", "server").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HTTPServer binds the router to the configured address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr(),
		Handler:      s.RegisterRoutes(),
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
		WriteTimeout: 30 * time.Second,
	}
}
