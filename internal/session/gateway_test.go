package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/andjpython/Estacionamento-Free/internal/auth"
	"github.com/andjpython/Estacionamento-Free/internal/clock"
	"github.com/andjpython/Estacionamento-Free/internal/store"
	"github.com/andjpython/Estacionamento-Free/internal/transport"
	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

const landingPage = `<!DOCTYPE html><html><head>
<meta charset="utf-8"><meta name="csrf-token" content="csrf-abc">
</head><body></body></html>`

// recorder is a scripted backend that records what it receives.
type recorder struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	handle   func(w http.ResponseWriter, r *http.Request)
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" && r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, landingPage)
		return
	}
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	rec.mu.Lock()
	rec.requests = append(rec.requests, r)
	rec.bodies = append(rec.bodies, string(body))
	rec.mu.Unlock()
	rec.handle(w, r)
}

func (rec *recorder) count() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.requests)
}

func (rec *recorder) last() (*http.Request, string) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	n := len(rec.requests)
	return rec.requests[n-1], rec.bodies[n-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type harness struct {
	gw    *Gateway
	rec   *recorder
	store *store.MemoryStore
	nav   *recordingNavigator
	clock *clock.FakeClock
}

func newHarness(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) *harness {
	t.Helper()
	rec := &recorder{handle: handle}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewFake(now)
	// Zero base delay keeps retries instantaneous.
	cfg := transport.DefaultConfig(srv.URL).WithRetries(3, 0)
	h := &harness{
		rec:   rec,
		store: store.NewMemoryStore(),
		nav:   &recordingNavigator{},
		clock: clk,
	}
	h.gw = New(Options{
		Fetcher:   transport.NewFetcher(cfg, logger, clk),
		Store:     h.store,
		Validator: auth.NewValidator(clk),
		Navigator: h.nav,
		Clock:     clk,
		Logger:    logger,
	})
	return h
}

// recordingNavigator remembers every route it was sent to.
type recordingNavigator struct {
	mu     sync.Mutex
	routes []string
}

// Navigate records route.
func (r *recordingNavigator) Navigate(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

// Routes returns the recorded routes in order.
func (r *recordingNavigator) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}

// Last returns the most recent route, or "" if none.
func (r *recordingNavigator) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}

func mustToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"is_supervisor": true,
		"exp":           exp.Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (h *harness) storeToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := mustToken(t, exp)
	h.store.Put(context.Background(), model.KeyAuthToken, tok)
	return tok
}

func (h *harness) tokenStored() bool {
	_, ok, _ := h.store.Get(context.Background(), model.KeyAuthToken)
	return ok
}

func TestAuthenticatedCall_ExpiredTokenSkipsNetwork(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	h.storeToken(t, now.Add(-time.Minute))

	if env := h.gw.AuthenticatedCall(context.Background(), http.MethodGet, "/historico", nil); env != nil {
		t.Fatalf("env = %+v, want nil", env)
	}
	if h.rec.count() != 0 {
		t.Errorf("requests = %d, want 0", h.rec.count())
	}
	if h.tokenStored() {
		t.Error("expired credential should be cleared")
	}
	if h.nav.Last() != "/" {
		t.Errorf("navigated to %q, want /", h.nav.Last())
	}
}

func TestAuthenticatedCall_MalformedTokenIsInvalid(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	h.store.Put(context.Background(), model.KeyAuthToken, "garbage")

	if env := h.gw.AuthenticatedCall(context.Background(), http.MethodGet, "/historico", nil); env != nil {
		t.Fatalf("env = %+v, want nil", env)
	}
	if h.tokenStored() {
		t.Error("undecodable credential should be cleared")
	}
}

func TestAuthenticatedCall_401ClearsCredential(t *testing.T) {
	bodies := []string{`{"mensagem":"Token inválido"}`, `not json`, ``}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				io.WriteString(w, body)
			})
			h.storeToken(t, now.Add(time.Hour))

			if env := h.gw.AuthenticatedCall(context.Background(), http.MethodPost, "/logout-supervisor", nil); env != nil {
				t.Fatalf("env = %+v, want nil", env)
			}
			if h.rec.count() != 1 {
				t.Errorf("requests = %d, want 1 (401 is not retried)", h.rec.count())
			}
			if h.tokenStored() {
				t.Error("credential should be cleared after 401")
			}
			if h.nav.Last() != "/" {
				t.Errorf("navigated to %q, want /", h.nav.Last())
			}
		})
	}
}

func TestAuthenticatedCall_AttachesHeaders(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"mensagem": "ok", "total": 2})
	})
	tok := h.storeToken(t, now.Add(time.Hour))

	env := h.gw.AuthenticatedCall(context.Background(), http.MethodPost, "/vagas", map[string]string{"placa": "ABC1234"})
	if env == nil || !env.OK {
		t.Fatalf("env = %+v, want OK", env)
	}
	if env.Message() != "ok" {
		t.Errorf("Message() = %q", env.Message())
	}
	if n, ok := env.Data["total"].(json.Number); !ok || n.String() != "2" {
		t.Errorf("total = %#v", env.Data["total"])
	}

	req, body := h.rec.last()
	if got := req.Header.Get("Authorization"); got != "Bearer "+tok {
		t.Errorf("Authorization = %q", got)
	}
	if got := req.Header.Get("X-CSRFToken"); got != "csrf-abc" {
		t.Errorf("X-CSRFToken = %q, want csrf-abc", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if body != `{"placa":"ABC1234"}` {
		t.Errorf("body = %s", body)
	}
}

func TestAuthenticatedCall_NoCredential(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	env := h.gw.AuthenticatedCall(context.Background(), http.MethodGet, "/tempo-excedido", nil)
	if env == nil || !env.OK {
		t.Fatalf("env = %+v", env)
	}
	req, _ := h.rec.last()
	if req.Header.Get("Authorization") != "" {
		t.Error("Authorization should be absent without a credential")
	}
}

func TestAuthenticatedCall_ExhaustionBecomesEnvelope(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	h.storeToken(t, now.Add(time.Hour))

	env := h.gw.AuthenticatedCall(context.Background(), http.MethodGet, "/historico", nil)
	if env == nil || env.OK {
		t.Fatalf("env = %+v, want failure envelope", env)
	}
	if !strings.HasPrefix(env.Message(), "connection error: ") {
		t.Errorf("Message() = %q", env.Message())
	}
	if h.rec.count() != 3 {
		t.Errorf("requests = %d, want 3", h.rec.count())
	}
	if !h.tokenStored() {
		t.Error("a 500 must not clear the credential")
	}
}

func TestAuthenticatedCall_MalformedBody(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>oops</html>")
	})
	env := h.gw.AuthenticatedCall(context.Background(), http.MethodGet, "/historico", nil)
	if env == nil || env.OK {
		t.Fatalf("env = %+v, want failure envelope", env)
	}
	if !strings.Contains(env.Message(), ErrMalformedResponse.Error()) {
		t.Errorf("Message() = %q", env.Message())
	}
}

func TestAuthenticatedCall_NonObjectBody(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[1,2]`)
	})
	env := h.gw.AuthenticatedCall(context.Background(), http.MethodGet, "/list", nil)
	if env == nil || !env.OK {
		t.Fatalf("env = %+v", env)
	}
	if _, ok := env.Data["value"].([]any); !ok {
		t.Errorf("value = %#v", env.Data["value"])
	}
}

func TestFindMetaContent(t *testing.T) {
	got, err := findMetaContent([]byte(landingPage), "csrf-token")
	if err != nil || got != "csrf-abc" {
		t.Errorf("findMetaContent = %q, %v", got, err)
	}
	got, _ = findMetaContent([]byte(`<html><head><title>x</title></head></html>`), "csrf-token")
	if got != "" {
		t.Errorf("findMetaContent without tag = %q", got)
	}
}

func TestCSRF_ConfiguredTokenSkipsDiscovery(t *testing.T) {
	var landingHits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			landingHits++
		}
		if got := r.Header.Get("X-CSRFToken"); r.URL.Path != "/" && got != "configured" {
			t.Errorf("X-CSRFToken = %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	defer srv.Close()

	gw := New(Options{
		Fetcher:   transport.NewFetcher(transport.DefaultConfig(srv.URL), nil, nil),
		Store:     store.NewMemoryStore(),
		CSRFToken: "configured",
	})
	gw.AuthenticatedCall(context.Background(), http.MethodGet, "/x", nil)
	if landingHits != 0 {
		t.Errorf("landing page fetched %d times", landingHits)
	}
}

func TestSubscribe(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {})
	var got []model.SessionState
	cancel := h.gw.Subscribe(func(s model.SessionState) { got = append(got, s) })

	h.gw.update(func(s *model.SessionState) { s.Operator = "1234" })
	h.gw.update(func(s *model.SessionState) { s.Operator = "1234" }) // unchanged
	cancel()
	h.gw.update(func(s *model.SessionState) { s.Operator = "" })

	if len(got) != 1 || got[0].Operator != "1234" {
		t.Errorf("notifications = %+v, want one with operator 1234", got)
	}
}

func TestConnectionError(t *testing.T) {
	env := connectionError(errors.New("dial tcp: refused"))
	if env.OK || env.Message() != "connection error: dial tcp: refused" {
		t.Errorf("env = %+v", env)
	}
}
