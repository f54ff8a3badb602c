package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/andjpython/Estacionamento-Free/internal/clock"
)

// ErrMalformedToken is returned when a token cannot be decoded.
var ErrMalformedToken = errors.New("malformed token")

// Claims is the payload the backend places in a supervisor token.
type Claims struct {
	Name         string `json:"nome,omitempty"`
	IsSupervisor bool   `json:"is_supervisor,omitempty"`
	jwt.RegisteredClaims
}

// Validator inspects bearer tokens locally. It never verifies signatures;
// the backend remains the authority and answers 401 for tokens it rejects.
type Validator struct {
	clock  clock.Clock
	parser *jwt.Parser
}

// NewValidator returns a Validator comparing expiry against clk.
func NewValidator(clk clock.Clock) *Validator {
	if clk == nil {
		clk = clock.Real()
	}
	return &Validator{
		clock:  clk,
		parser: jwt.NewParser(jwt.WithPaddingAllowed()),
	}
}

// IsExpired reports whether token must no longer be sent. Any token that
// cannot be decoded, or that carries no exp claim, counts as expired.
func (v *Validator) IsExpired(token string) bool {
	exp, err := v.Expiry(token)
	if err != nil {
		return true
	}
	return !v.clock.Now().Before(exp)
}

// Expiry returns the token's exp claim.
func (v *Validator) Expiry(token string) (time.Time, error) {
	payload, err := v.payload(token)
	if err != nil {
		return time.Time{}, err
	}
	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: payload is not JSON: %v", ErrMalformedToken, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("%w: missing exp", ErrMalformedToken)
	}
	return exp.Time, nil
}

// Inspect decodes the token payload into Claims.
func (v *Validator) Inspect(token string) (*Claims, error) {
	payload, err := v.payload(token)
	if err != nil {
		return nil, err
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return &claims, nil
}

// payload returns the decoded middle segment of a three-part token.
func (v *Validator) payload(token string) ([]byte, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: want 3 segments, got %d", ErrMalformedToken, len(parts))
	}
	payload, err := v.parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return payload, nil
}
