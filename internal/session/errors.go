package session

import (
	"errors"
	"fmt"

	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

var (
	// ErrSessionInvalid marks a stored credential that expired or that the
	// backend rejected with 401. The gateway handles it itself and never
	// returns it to callers of AuthenticatedCall.
	ErrSessionInvalid = errors.New("session invalid")

	// ErrMalformedResponse indicates a response body that is not JSON.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrInvalidBadge indicates an operator badge that is not 4 digits.
	ErrInvalidBadge = errors.New("badge must have 4 digits")

	// ErrNotLoggedIn indicates a logout without a matching login.
	ErrNotLoggedIn = errors.New("no operator logged in")
)

// connectionError folds err into the uniform failure envelope.
func connectionError(err error) *model.Envelope {
	return &model.Envelope{
		OK:   false,
		Data: map[string]any{"message": fmt.Sprintf("connection error: %v", err)},
	}
}

// rejectedToken is the failure envelope for a login whose token is already
// unusable.
func rejectedToken() *model.Envelope {
	return &model.Envelope{
		OK:   false,
		Data: map[string]any{"message": "backend issued an expired or unreadable supervisor token"},
	}
}
