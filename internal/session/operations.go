package session

import (
	"context"
	"net/http"
	"time"

	"github.com/andjpython/Estacionamento-Free/internal/auth"
	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

// Restore rebuilds SessionState from persisted slots at startup. A stored
// credential that is already expired is discarded.
func (g *Gateway) Restore(ctx context.Context) (model.SessionState, error) {
	token, hasToken, err := g.creds.Get(ctx)
	if err != nil {
		return g.State(), err
	}
	badge, _, err := g.identity.Get(ctx)
	if err != nil {
		return g.State(), err
	}

	next := model.SessionState{Operator: badge}
	if hasToken {
		if g.validator.IsExpired(token) {
			g.logger.Info("discarding expired credential")
			if err := g.creds.Clear(ctx); err != nil {
				return g.State(), err
			}
		} else {
			next.SupervisorActive = true
			next.TokenExpiry, _ = g.validator.Expiry(token)
		}
	}
	g.update(func(s *model.SessionState) { *s = next })
	if next.SupervisorActive {
		g.armExpiry(next.TokenExpiry)
	} else {
		g.disarmExpiry()
	}
	return next, nil
}

// LoginStaff logs an operator in by badge and remembers the badge locally.
func (g *Gateway) LoginStaff(ctx context.Context, badge string) (*model.Envelope, error) {
	if !model.ValidateBadge(badge) {
		return nil, ErrInvalidBadge
	}
	env := g.plainCall(ctx, http.MethodPost, "/login-funcionario", model.StaffLoginRequest{Badge: badge})
	if !env.OK {
		return env, nil
	}
	if err := g.identity.Set(ctx, badge); err != nil {
		return env, err
	}
	g.update(func(s *model.SessionState) { s.Operator = badge })
	g.logger.Info("operator logged in", "badge", badge)
	return env, nil
}

// LogoutStaff logs the remembered operator out.
func (g *Gateway) LogoutStaff(ctx context.Context) (*model.Envelope, error) {
	badge, ok, err := g.identity.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotLoggedIn
	}
	env := g.plainCall(ctx, http.MethodPost, "/logout-funcionario", model.StaffLoginRequest{Badge: badge})
	if !env.OK {
		return env, nil
	}
	if err := g.identity.Clear(ctx); err != nil {
		return env, err
	}
	g.update(func(s *model.SessionState) { s.Operator = "" })
	g.logger.Info("operator logged out", "badge", badge)
	return env, nil
}

// LoginSupervisor exchanges the supervisor password for a bearer token. On
// success the token is stored and the user is sent to the returned route.
// A token that is already expired, or whose expiry cannot be read, is
// refused: nothing is stored and the returned envelope is a failure.
func (g *Gateway) LoginSupervisor(ctx context.Context, password string) (*model.Envelope, error) {
	env := g.plainCall(ctx, http.MethodPost, "/login-supervisor", model.SupervisorLoginRequest{Password: password})
	redirect := env.Field("redirect")
	token := env.Field("token")
	if !env.OK || redirect == "" || token == "" {
		return env, nil
	}
	if g.validator.IsExpired(token) {
		g.logger.Warn("refusing supervisor token", "error", ErrSessionInvalid)
		return rejectedToken(), nil
	}
	expiry, _ := g.validator.Expiry(token)

	if err := g.creds.Set(ctx, token); err != nil {
		return env, err
	}
	g.update(func(s *model.SessionState) {
		s.SupervisorActive = true
		s.TokenExpiry = expiry
	})
	g.armExpiry(expiry)
	g.logger.Info("supervisor logged in", "redirect", redirect, "expires_at", expiry)
	g.nav.Navigate(redirect)
	return env, nil
}

// LogoutSupervisor ends the supervisor session. A nil envelope means the
// session had already been invalidated.
func (g *Gateway) LogoutSupervisor(ctx context.Context) (*model.Envelope, error) {
	env := g.AuthenticatedCall(ctx, http.MethodPost, "/logout-supervisor", nil)
	if env == nil || !env.OK {
		return env, nil
	}
	g.disarmExpiry()
	if err := g.creds.Clear(ctx); err != nil {
		return env, err
	}
	g.update(func(s *model.SessionState) {
		s.SupervisorActive = false
		s.TokenExpiry = time.Time{}
	})
	g.logger.Info("supervisor logged out")
	g.nav.Navigate(model.LandingRoute)
	return env, nil
}

// Token returns the stored credential for display purposes.
func (g *Gateway) Token(ctx context.Context) (string, bool, error) {
	return g.creds.Get(ctx)
}

// Validator returns the gateway's token validator.
func (g *Gateway) Validator() *auth.Validator {
	return g.validator
}
