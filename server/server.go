// Package server exposes the search service over HTTP and serves the corpus
// for previews.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"docsearch/config"
)

// Server wraps the HTTP server and its router.
type Server struct {
	cfg     *config.Config
	handler *Handler
	logger  zerolog.Logger
	http    *http.Server
}

// New creates a server for cfg backed by searcher.
func New(cfg *config.Config, searcher Searcher, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		handler: NewHandler(searcher, cfg.CorpusRoot, logger),
		logger:  logger,
	}
	s.http = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Router(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// Full-text scans of a large corpus can take a while.
		WriteTimeout: 2 * time.Minute,
	}
	return s
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	// Routes
	r.Get("/healthz", s.handler.HandleHealth)
	r.Get("/api/search", s.handler.HandleSearch)

	prefix := s.cfg.PreviewPrefix
	files := http.StripPrefix(prefix, corpusOnly(s.cfg.IncludeHidden, http.FileServer(http.Dir(s.cfg.CorpusRoot))))
	r.Get(prefix+"/*", files.ServeHTTP)
	r.Head(prefix+"/*", files.ServeHTTP)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Listen).Str("corpus", s.cfg.CorpusRoot).Msg("starting API server")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info().Msg("shutting down the server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("shut down gracefully")
	return nil
}
