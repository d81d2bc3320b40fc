// Package server assembles the HTTP router of the code service.
package server

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/go-qr-expiry/internal/app/handler"
	"github.com/atinyakov/go-qr-expiry/internal/app/service"
	"github.com/atinyakov/go-qr-expiry/internal/middleware"
)

// Init builds the router. The audit listing is only reachable from trusted.
func Init(svc service.CodeServiceIface, arts service.Artifacts, logger *zap.Logger, trusted *net.IPNet) *chi.Mux {
	post := handler.NewPost(svc, logger)
	get := handler.NewGet(svc, arts, logger)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	r.With(middleware.WithGzipRequest).Post("/generate", post.Generate)
	r.Get("/validate", get.Validate)
	r.Get(service.ArtifactRoute+"{name}", get.Artifact)
	r.Get("/ping", get.PingDB)

	r.Route("/api/internal", func(r chi.Router) {
		r.Use(middleware.WithSubnet(trusted))
		r.Use(middleware.WithGzipResponse)
		r.Get("/codes", get.ActiveCodes)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Route not found", http.StatusNotFound)
	})

	return r
}
