package mockbackend

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/andjpython/Estacionamento-Free/internal/auth"
	"github.com/andjpython/Estacionamento-Free/internal/clock"
)

// tokenIssuer signs and verifies HS256 supervisor tokens.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func newTokenIssuer(secret string, ttl time.Duration, clk clock.Clock) *tokenIssuer {
	return &tokenIssuer{secret: []byte(secret), ttl: ttl, clock: clk}
}

func (ti *tokenIssuer) issue(name string) (string, time.Time, error) {
	now := ti.clock.Now()
	expiresAt := now.Add(ti.ttl)
	claims := &auth.Claims{
		Name:         name,
		IsSupervisor: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (ti *tokenIssuer) verify(token string) (*auth.Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &auth.Claims{}, func(t *jwt.Token) (any, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*auth.Claims)
	if !ok || !parsed.Valid || !claims.IsSupervisor {
		return nil, errors.New("not a supervisor token")
	}
	return claims, nil
}
