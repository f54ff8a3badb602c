package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

func TestLoginStaff(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		var req model.StaffLoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, map[string]string{"mensagem": "Funcionário logado com sucesso"})
	})
	ctx := context.Background()

	env, err := h.gw.LoginStaff(ctx, "1234")
	if err != nil || env == nil || !env.OK {
		t.Fatalf("LoginStaff = %+v, %v", env, err)
	}
	_, body := h.rec.last()
	if body != `{"matricula":"1234"}` {
		t.Errorf("body = %s", body)
	}
	if badge, _, _ := h.store.Get(ctx, model.KeyOperatorBadge); badge != "1234" {
		t.Errorf("stored badge = %q", badge)
	}
	if h.gw.State().Operator != "1234" {
		t.Errorf("State().Operator = %q", h.gw.State().Operator)
	}
}

func TestLoginStaff_InvalidBadge(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := h.gw.LoginStaff(context.Background(), "12a4"); !errors.Is(err, ErrInvalidBadge) {
		t.Errorf("err = %v, want ErrInvalidBadge", err)
	}
}

func TestLoginStaff_UnknownBadge(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"mensagem": "Funcionário não encontrado!"})
	})
	env, err := h.gw.LoginStaff(context.Background(), "9999")
	if err != nil {
		t.Fatal(err)
	}
	if env.OK || env.Message() != "Funcionário não encontrado!" {
		t.Errorf("env = %+v", env)
	}
	if h.rec.count() != 1 {
		t.Errorf("requests = %d, want 1 (no retry on plain calls)", h.rec.count())
	}
	if _, ok, _ := h.store.Get(context.Background(), model.KeyOperatorBadge); ok {
		t.Error("badge should not be stored after a failed login")
	}
}

func TestLogoutStaff(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"mensagem": "Funcionário deslogado com sucesso"})
	})
	ctx := context.Background()

	if _, err := h.gw.LogoutStaff(ctx); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}

	h.store.Put(ctx, model.KeyOperatorBadge, "5678")
	env, err := h.gw.LogoutStaff(ctx)
	if err != nil || !env.OK {
		t.Fatalf("LogoutStaff = %+v, %v", env, err)
	}
	if _, ok, _ := h.store.Get(ctx, model.KeyOperatorBadge); ok {
		t.Error("badge should be cleared")
	}
}

func TestLoginSupervisor(t *testing.T) {
	exp := now.Add(time.Hour)
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		var req model.SupervisorLoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "admin123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"mensagem": "Senha incorreta!"})
			return
		}
		writeJSON(w, http.StatusOK, model.SupervisorLoginResponse{
			Message:  "Login confirmado com sucesso!",
			Token:    token,
			Redirect: "/sistema",
		})
	})
	ctx := context.Background()

	var notified []model.SessionState
	h.gw.Subscribe(func(s model.SessionState) { notified = append(notified, s) })

	env, err := h.gw.LoginSupervisor(ctx, "wrong")
	if err != nil {
		t.Fatal(err)
	}
	if env.OK || env.Message() != "Senha incorreta!" {
		t.Errorf("wrong password env = %+v", env)
	}
	if h.tokenStored() || len(h.nav.Routes()) != 0 {
		t.Error("failed login must not store a token or navigate")
	}

	env, err = h.gw.LoginSupervisor(ctx, "admin123")
	if err != nil || !env.OK {
		t.Fatalf("LoginSupervisor = %+v, %v", env, err)
	}
	if stored, _, _ := h.store.Get(ctx, model.KeyAuthToken); stored != token {
		t.Error("token not stored")
	}
	state := h.gw.State()
	if !state.SupervisorActive || !state.TokenExpiry.Equal(time.Unix(exp.Unix(), 0)) {
		t.Errorf("state = %+v", state)
	}
	if h.nav.Last() != "/sistema" {
		t.Errorf("navigated to %q, want /sistema", h.nav.Last())
	}
	if len(notified) != 1 || !notified[0].SupervisorActive {
		t.Errorf("notifications = %+v", notified)
	}
}

func TestLoginSupervisor_RejectsUnusableToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"unreadable", "not-a-jwt"},
		{"already expired", "a.eyJleHAiOjF9.c"},
		{"expired signed", mustToken(t, now.Add(-time.Minute))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, model.SupervisorLoginResponse{
					Message:  "Login confirmado com sucesso!",
					Token:    tt.token,
					Redirect: "/sistema",
				})
			})
			env, err := h.gw.LoginSupervisor(context.Background(), "admin123")
			if err != nil {
				t.Fatal(err)
			}
			if env.OK {
				t.Errorf("env = %+v, want rejection", env)
			}
			if h.tokenStored() {
				t.Error("unusable token must not be stored")
			}
			if h.gw.State().SupervisorActive {
				t.Error("SupervisorActive must stay false")
			}
			if routes := h.nav.Routes(); len(routes) != 0 {
				t.Errorf("navigated to %v", routes)
			}
		})
	}
}

func TestLoginSupervisor_ExpiresOnSchedule(t *testing.T) {
	token := mustToken(t, now.Add(10*time.Minute))
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.SupervisorLoginResponse{Token: token, Redirect: "/sistema"})
	})
	ctx := context.Background()
	if env, err := h.gw.LoginSupervisor(ctx, "admin123"); err != nil || !env.OK {
		t.Fatalf("LoginSupervisor = %+v, %v", env, err)
	}

	h.clock.Advance(9 * time.Minute)
	if !h.gw.State().SupervisorActive {
		t.Fatal("session ended before expiry")
	}
	h.clock.Advance(time.Minute)
	if h.gw.State().SupervisorActive || h.tokenStored() {
		t.Error("session must end at token expiry")
	}
	if h.nav.Last() != model.LandingRoute {
		t.Errorf("navigated to %q, want %q", h.nav.Last(), model.LandingRoute)
	}
}

func TestState_RecomputesExpiry(t *testing.T) {
	token := mustToken(t, now.Add(time.Minute))
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.SupervisorLoginResponse{Token: token, Redirect: "/sistema"})
	})
	if env, err := h.gw.LoginSupervisor(context.Background(), "admin123"); err != nil || !env.OK {
		t.Fatalf("LoginSupervisor = %+v, %v", env, err)
	}
	// Without the timer only the read path can notice the expiry.
	h.gw.disarmExpiry()
	h.clock.Advance(time.Hour)

	if h.gw.State().SupervisorActive {
		t.Error("State must report an expired supervisor session as inactive")
	}
	if h.tokenStored() {
		t.Error("expired credential must be cleared")
	}
}

func TestLogoutSupervisor(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"mensagem": "Supervisor deslogado com sucesso!"})
	})
	ctx := context.Background()
	h.storeToken(t, now.Add(time.Hour))
	if _, err := h.gw.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	if !h.gw.State().SupervisorActive {
		t.Fatal("Restore should activate the supervisor")
	}

	env, err := h.gw.LogoutSupervisor(ctx)
	if err != nil || env == nil || !env.OK {
		t.Fatalf("LogoutSupervisor = %+v, %v", env, err)
	}
	if h.tokenStored() || h.gw.State().SupervisorActive {
		t.Error("logout should clear the credential and the supervisor flag")
	}
	if h.nav.Last() != "/" {
		t.Errorf("navigated to %q", h.nav.Last())
	}
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("expired token discarded", func(t *testing.T) {
		h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {})
		h.storeToken(t, now.Add(-time.Hour))
		h.store.Put(ctx, model.KeyOperatorBadge, "1234")

		state, err := h.gw.Restore(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if state.SupervisorActive || h.tokenStored() {
			t.Errorf("state = %+v, token stored = %v", state, h.tokenStored())
		}
		if state.Operator != "1234" {
			t.Errorf("Operator = %q", state.Operator)
		}
	})

	t.Run("supervisor active only until expiry", func(t *testing.T) {
		h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		h.storeToken(t, now.Add(time.Minute))
		if state, _ := h.gw.Restore(ctx); !state.SupervisorActive {
			t.Fatal("valid token should activate the supervisor")
		}

		var notified []model.SessionState
		h.gw.Subscribe(func(s model.SessionState) { notified = append(notified, s) })

		h.clock.Advance(2 * time.Minute)
		if h.tokenStored() {
			t.Error("expired credential must be cleared without a request")
		}
		if len(notified) != 1 || notified[0].SupervisorActive {
			t.Errorf("notifications = %+v", notified)
		}
		if h.nav.Last() != model.LandingRoute {
			t.Errorf("navigated to %q, want %q", h.nav.Last(), model.LandingRoute)
		}
		if h.gw.State().SupervisorActive {
			t.Error("SupervisorActive must drop with the expired credential")
		}
		if env := h.gw.AuthenticatedCall(ctx, http.MethodGet, "/historico", nil); env != nil {
			t.Fatalf("env = %+v, want nil", env)
		}
	})
}
