// Package statusapi exposes the notifier and session state over a small
// local HTTP surface, and accepts visibility signals from an embedding shell.
package statusapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andjpython/Estacionamento-Free/internal/logging"
	"github.com/andjpython/Estacionamento-Free/internal/notifier"
	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

// Notifier is the part of the notifier the API reads and drives.
type Notifier interface {
	Status() notifier.Snapshot
	SetVisibility(hidden bool)
}

// Session exposes the current SessionState.
type Session interface {
	State() model.SessionState
}

// Server is the local status API.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	notifier  Notifier
	session   Session
	startTime time.Time
}

// New creates a Server with all routes registered. session and logger may
// be nil.
func New(n Notifier, session Session, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logging.Component(logger, "statusapi"),
		notifier:  n,
		session:   session,
		startTime: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(traceRequests(s.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, RequestIDFromContext(r.Context()), http.StatusNotFound,
			&model.APIError{Code: model.ErrNotFound, Message: "route not found"})
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/alerts", s.handleAlerts)
	r.Post("/visibility", s.handleVisibility)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
