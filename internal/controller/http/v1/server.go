package v1

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kurochkinivan/docuextract/internal/config"
)

const (
	BasePath    = "/api/v1"
	PreviewPath = BasePath + "/previews"
)

type Server struct {
	httpServer *http.Server
}

func NewServer(log *slog.Logger, cfg config.HTTP, service DocumentService, previews PreviewStore) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			Handler:      NewRouter(log, cfg.MaxUploadSize, service, previews),
		},
	}
}

func NewRouter(log *slog.Logger, maxUploadSize int64, service DocumentService, previews PreviewStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := NewDocumentsHandler(log, service, previews, maxUploadSize)
	r.Route(BasePath, func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", h.UploadDocuments)
			r.Get("/", h.ListDocuments)
			r.Get("/{id}", h.GetDocument)
			r.Delete("/{id}", h.DeleteDocument)
			r.Post("/{id}/retry", h.RetryDocument)
		})

		r.Get("/selection", h.GetSelection)
		r.Put("/selection/{id}", h.PutSelection)

		r.Get("/export", h.Export)
		r.Get("/previews/{handle}", h.GetPreview)
	})

	return r
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
