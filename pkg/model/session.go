package model

import (
	"regexp"
	"time"
)

// Persisted client-state keys shared with the browser client.
const (
	KeyAuthToken     = "authToken"
	KeyOperatorBadge = "matriculaLogada"
)

// LandingRoute is the anonymous landing route a client returns to when its
// session is invalidated.
const LandingRoute = "/"

var badgePattern = regexp.MustCompile(`^\d{4}$`)

// ValidateBadge reports whether badge is a 4-digit operator badge number.
func ValidateBadge(badge string) bool {
	return badgePattern.MatchString(badge)
}

// SessionState is the client-wide view of who is logged in.
// SupervisorActive is only true while a non-expired credential is stored.
type SessionState struct {
	SupervisorActive bool      `json:"supervisor_active"`
	Operator         string    `json:"operator,omitempty"`
	TokenExpiry      time.Time `json:"token_expiry,omitempty"`
}

// LoggedIn reports whether either a staff operator or a supervisor is present.
func (s SessionState) LoggedIn() bool {
	return s.SupervisorActive || s.Operator != ""
}
