// Package session attaches, validates and expires the supervisor credential
// on every backend call, and owns the process-wide SessionState.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/andjpython/Estacionamento-Free/internal/auth"
	"github.com/andjpython/Estacionamento-Free/internal/clock"
	"github.com/andjpython/Estacionamento-Free/internal/logging"
	"github.com/andjpython/Estacionamento-Free/internal/store"
	"github.com/andjpython/Estacionamento-Free/internal/transport"
	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

// Fetcher is the transport the gateway sends through.
type Fetcher interface {
	// Send retries failed attempts; Do makes exactly one.
	Send(ctx context.Context, req transport.Request) (*transport.Response, error)
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Options configures a Gateway.
type Options struct {
	Fetcher   Fetcher
	Store     store.Store
	Validator *auth.Validator
	Navigator Navigator
	// Clock times credential expiry. It should be the clock the
	// Validator compares against. Defaults to the real clock.
	Clock clock.Clock
	// CSRFToken pre-seeds the anti-forgery token; when empty it is read
	// from the landing page on first use.
	CSRFToken string
	Logger    *slog.Logger
}

// Gateway is the single entry point for authenticated backend calls.
type Gateway struct {
	fetcher   Fetcher
	creds     *auth.CredentialStore
	identity  *auth.IdentityStore
	validator *auth.Validator
	nav       Navigator
	clock     clock.Clock
	csrf      *csrfCache
	logger    *slog.Logger

	mu      sync.Mutex
	state   model.SessionState
	subs    []subscriber
	nextSub int

	// expiry invalidates the session when the stored credential's exp
	// passes; expirySeq drops callbacks of disarmed timers.
	expiry    *clock.Timer
	expirySeq uint64
}

type subscriber struct {
	id int
	fn func(model.SessionState)
}

// New creates a Gateway.
func New(opts Options) *Gateway {
	nav := opts.Navigator
	if nav == nil {
		nav = NavigatorFunc(func(string) {})
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	validator := opts.Validator
	if validator == nil {
		validator = auth.NewValidator(clk)
	}
	return &Gateway{
		fetcher:   opts.Fetcher,
		creds:     auth.NewCredentialStore(opts.Store),
		identity:  auth.NewIdentityStore(opts.Store),
		validator: validator,
		nav:       nav,
		clock:     clk,
		csrf:      newCSRFCache(opts.CSRFToken),
		logger:    logging.Component(opts.Logger, "session"),
	}
}

// AuthenticatedCall sends a JSON request carrying the stored credential.
//
// It returns nil when the session is invalid: the stored token was expired
// before the call (no request is made) or the backend answered 401. In both
// cases the credential is cleared and the user is sent to the landing route.
// Every other failure, including retry exhaustion and a non-JSON body,
// comes back as an envelope with OK=false and a "connection error" message.
func (g *Gateway) AuthenticatedCall(ctx context.Context, method, path string, body any) *model.Envelope {
	logger := g.logger.With("method", method, "path", path)

	token, hasToken, err := g.creds.Get(ctx)
	if err != nil {
		logger.Error("read credential", "error", err)
		return connectionError(err)
	}
	if hasToken && g.validator.IsExpired(token) {
		g.invalidate(ctx, "credential expired")
		return nil
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if hasToken {
		header.Set("Authorization", "Bearer "+token)
	}
	if csrf, err := g.csrf.get(ctx, g.fetcher); err != nil {
		logger.Debug("csrf token unavailable", "error", err)
	} else if csrf != "" {
		header.Set("X-CSRFToken", csrf)
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return connectionError(fmt.Errorf("marshal request: %w", err))
		}
	}

	resp, err := g.fetcher.Send(ctx, transport.Request{
		Method:   method,
		Path:     path,
		Header:   header,
		Body:     payload,
		Terminal: []int{http.StatusUnauthorized},
	})
	if err != nil {
		logger.Warn("request failed", "error", err)
		return connectionError(err)
	}

	data, decodeErr := decodeBody(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized {
		g.invalidate(ctx, "backend returned 401")
		return nil
	}
	if decodeErr != nil {
		logger.Warn("decode response", "status", resp.StatusCode, "error", decodeErr)
		return connectionError(decodeErr)
	}
	return &model.Envelope{OK: resp.OK(), Data: data}
}

// plainCall sends one unauthenticated JSON request without retries, the way
// the login and staff endpoints are called.
func (g *Gateway) plainCall(ctx context.Context, method, path string, body any) *model.Envelope {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if csrf, err := g.csrf.get(ctx, g.fetcher); err == nil && csrf != "" {
		header.Set("X-CSRFToken", csrf)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return connectionError(fmt.Errorf("marshal request: %w", err))
		}
	}

	resp, err := g.fetcher.Do(ctx, transport.Request{Method: method, Path: path, Header: header, Body: payload})
	if err != nil {
		g.logger.Warn("request failed", "method", method, "path", path, "error", err)
		return connectionError(err)
	}
	data, err := decodeBody(resp.Body)
	if err != nil {
		return connectionError(err)
	}
	return &model.Envelope{OK: resp.OK(), Data: data}
}

// invalidate clears the credential and supervisor flag, then navigates to
// the landing route.
func (g *Gateway) invalidate(ctx context.Context, reason string) {
	g.logger.Info("session invalidated", "reason", reason, "error", ErrSessionInvalid)
	g.disarmExpiry()
	if err := g.creds.Clear(ctx); err != nil {
		g.logger.Error("clear credential", "error", err)
	}
	g.update(func(s *model.SessionState) {
		s.SupervisorActive = false
		s.TokenExpiry = time.Time{}
	})
	g.nav.Navigate(model.LandingRoute)
}

// armExpiry schedules the end of the supervisor session at expiry,
// replacing any earlier schedule.
func (g *Gateway) armExpiry(expiry time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expiry.Stop()
	g.expirySeq++
	seq := g.expirySeq
	g.expiry = g.clock.AfterFunc(expiry.Sub(g.clock.Now()), func() { g.expire(seq) })
}

func (g *Gateway) disarmExpiry() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expiry.Stop()
	g.expiry = nil
	g.expirySeq++
}

// expire runs when the armed credential's exp passes.
func (g *Gateway) expire(seq uint64) {
	g.mu.Lock()
	current := seq == g.expirySeq && g.state.SupervisorActive
	g.mu.Unlock()
	if current {
		g.invalidate(context.Background(), "credential expired")
	}
}

// decodeBody parses a JSON response body. Objects decode as-is; any other
// JSON value is placed under "value".
func decodeBody(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if obj, ok := v.(map[string]any); ok {
		return obj, nil
	}
	return map[string]any{"value": v}, nil
}
