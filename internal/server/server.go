package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"transitmon/internal/config"
	"transitmon/internal/coordinator"
	"transitmon/internal/handler"
	"transitmon/internal/storage"
	"transitmon/web"
)

// Server is the HTTP server for transitmon.
type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a new Server with all routes registered.
func New(cfg *config.Config, db *storage.DB, manager *coordinator.Manager, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	staticFS, _ := fs.Sub(web.StaticFiles, "static")
	h := handler.New(db, manager, cfg, staticFS, logger)

	s := &Server{mux: mux, cfg: cfg, logger: logger}

	// Static files, served from the embedded FS; versioned URLs get immutable caching
	fileServer := http.FileServer(http.FS(staticFS))
	mux.Handle("GET /static/", http.StripPrefix("/static/", staticCacheHandler(fileServer)))

	// API
	mux.HandleFunc("GET /api/providers", h.Providers)
	mux.HandleFunc("POST /api/search/sessions", h.CreateSearchSession)
	mux.HandleFunc("GET /api/search/sessions/{id}", h.SearchStops)
	mux.HandleFunc("GET /api/entries", h.ListEntries)
	mux.HandleFunc("POST /api/entries", h.CreateEntry)
	mux.HandleFunc("GET /api/entries/{id}", h.GetEntry)
	mux.HandleFunc("DELETE /api/entries/{id}", h.DeleteEntry)
	mux.HandleFunc("GET /api/entries/{id}/board", h.Board)
	mux.HandleFunc("POST /api/entries/{id}/refresh", h.Refresh)
	mux.HandleFunc("GET /api/entries/{id}/diagnostics", h.Diagnostics)

	// Pages
	mux.HandleFunc("GET /", h.Home)
	mux.HandleFunc("GET /boards/{id}", h.BoardPage)

	// SSE
	mux.HandleFunc("GET /sse/boards/{id}", h.SSEBoard)

	return s
}

// Handler returns the routes wrapped in middleware.
func (s *Server) Handler() http.Handler {
	return withMiddleware(s.mux, s.logger, s.cfg.CORSOrigins)
}

// ListenAndServe serves HTTP until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
