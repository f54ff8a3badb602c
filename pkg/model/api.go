package model

import "time"

// Response is the standard envelope of the local status API.
type Response struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Error     *APIError `json:"error"`
}

// Envelope is the uniform result of a gateway call: OK mirrors a 2xx status
// and Data holds the decoded JSON body. Transport and decoding failures are
// folded into OK=false with a "message" entry, never returned as errors.
type Envelope struct {
	OK   bool           `json:"ok"`
	Data map[string]any `json:"data"`
}

// Message returns the human-readable message carried in the body, if any.
// The backend uses "mensagem"; locally generated envelopes use "message".
func (e *Envelope) Message() string {
	if e == nil || e.Data == nil {
		return ""
	}
	for _, key := range []string{"mensagem", "message"} {
		if msg, ok := e.Data[key].(string); ok && msg != "" {
			return msg
		}
	}
	return ""
}

// Field returns the named body field as a string when present.
func (e *Envelope) Field(key string) string {
	if e == nil || e.Data == nil {
		return ""
	}
	s, _ := e.Data[key].(string)
	return s
}

// StaffLoginRequest is the body of /login-funcionario and /logout-funcionario.
type StaffLoginRequest struct {
	Badge string `json:"matricula"`
}

// SupervisorLoginRequest is the body of /login-supervisor.
type SupervisorLoginRequest struct {
	Password string `json:"senha"`
}

// SupervisorLoginResponse is returned by a successful /login-supervisor.
type SupervisorLoginResponse struct {
	Message  string `json:"mensagem"`
	Token    string `json:"token,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// MessageResponse is the plain {mensagem} body most endpoints return.
type MessageResponse struct {
	Message string `json:"mensagem"`
}
