// Package mockbackend is an in-process stand-in for the parking backend. It
// serves the login, logout and exceeded-time endpoints with the same bodies
// and status codes, and is used by the tests and by `estacionamento
// mock-backend` for local runs.
package mockbackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andjpython/Estacionamento-Free/internal/clock"
	"github.com/andjpython/Estacionamento-Free/internal/config"
	"github.com/andjpython/Estacionamento-Free/internal/logging"
	"github.com/andjpython/Estacionamento-Free/internal/store"
	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

// Options configures a Server.
type Options struct {
	// SupervisorPassword is either plain text or a bcrypt hash.
	SupervisorPassword string
	JWTSecret          string
	TokenTTL           time.Duration
	// CSRFToken, when set, is published on the landing page and required
	// in X-CSRFToken on every POST.
	CSRFToken string
	// Staff maps badge numbers to operator names.
	Staff map[string]string
	// Store records logged-in operators. Defaults to a MemoryStore.
	Store  store.Store
	Clock  clock.Clock
	Logger *slog.Logger
}

// OptionsFromConfig maps the mock_backend config section onto Options.
func OptionsFromConfig(cfg config.MockConfig) Options {
	return Options{
		SupervisorPassword: cfg.SupervisorPassword,
		JWTSecret:          cfg.JWTSecret,
		TokenTTL:           cfg.TokenTTL,
		CSRFToken:          cfg.CSRFToken,
		Staff:              ParseStaff(cfg.Badges),
	}
}

// ParseStaff turns "1234" or "1234=Maria" entries into a badge directory.
func ParseStaff(entries []string) map[string]string {
	staff := make(map[string]string, len(entries))
	for _, e := range entries {
		badge, name, ok := strings.Cut(strings.TrimSpace(e), "=")
		badge = strings.TrimSpace(badge)
		if badge == "" {
			continue
		}
		if !ok || strings.TrimSpace(name) == "" {
			name = "Operador " + badge
		}
		staff[badge] = strings.TrimSpace(name)
	}
	return staff
}

// Server is the mock backend.
type Server struct {
	router   chi.Router
	logger   *slog.Logger
	clock    clock.Clock
	store    store.Store
	tokens   *tokenIssuer
	password string
	csrf     string
	staff    map[string]string

	mu        sync.Mutex
	exceeded  []model.ExceededVehicle
	failPolls int
	revoked   map[string]bool
}

// New creates a Server with all routes registered.
func New(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.Staff == nil {
		opts.Staff = map[string]string{}
	}
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logging.Component(opts.Logger, "mockbackend"),
		clock:    opts.Clock,
		store:    opts.Store,
		tokens:   newTokenIssuer(opts.JWTSecret, opts.TokenTTL, opts.Clock),
		password: opts.SupervisorPassword,
		csrf:     opts.CSRFToken,
		staff:    opts.Staff,
		revoked:  map[string]bool{},
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
	r.Use(s.logRequests)

	r.Get("/", s.handleLanding)
	r.Get("/tempo-excedido", s.handleExceeded)

	r.Group(func(r chi.Router) {
		r.Use(s.requireCSRF)
		r.Post("/login-funcionario", s.handleStaffLogin)
		r.Post("/logout-funcionario", s.handleStaffLogout)
		r.Post("/login-supervisor", s.handleSupervisorLogin)
		r.With(s.requireSupervisor).Post("/logout-supervisor", s.handleSupervisorLogout)
	})
}

// SetExceeded replaces the vehicles reported by /tempo-excedido.
func (s *Server) SetExceeded(vehicles []model.ExceededVehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exceeded = append([]model.ExceededVehicle(nil), vehicles...)
}

// FailPolls makes the next n /tempo-excedido requests answer 500.
func (s *Server) FailPolls(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPolls = n
}

// IssueToken signs a supervisor token the way a successful login does.
func (s *Server) IssueToken(name string) (string, error) {
	token, _, err := s.tokens.issue(name)
	return token, err
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
		s.logger.Info("mock backend listening", "addr", addr, "staff", len(s.staff))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
