package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Post("/sessions", c.createSession)
		r.Get("/stats", c.getStats)
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", c.listRooms)
			r.With(c.authMw).Post("/", c.createRoom)
			r.Route("/{room-name}", func(r chi.Router) {
				r.Get("/state", c.getRoomState)
				r.Get("/ws", c.joinRoom)
			})
		})
	})

	return r
}
