// Package devserver is a stub word-game server: enough of the real
// backend's message contract to exercise the client end-to-end (and to give
// integration tests a live socket) without the production service.
package devserver

import (
	"context"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Server struct {
	hub *Hub
	log *zap.Logger
}

func New(ctx context.Context, clk clock.Clock, log *zap.Logger, archive *Archive) *Server {
	return &Server{
		hub: NewHub(ctx, clk, log.Named("hub"), archive),
		log: log,
	}
}

// Routes builds the router with the hub injected.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/ws", wsHandler(s.hub, s.log.Named("ws")))
	return r
}

// Shutdown stops every room and the hub.
func (s *Server) Shutdown() {
	s.hub.Inbox() <- ShutdownHub{}
}
