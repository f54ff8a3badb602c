package mockbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strings"

	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

const (
	msgMissingData     = "Dados não fornecidos!"
	msgBadgeRequired   = "Matrícula é obrigatória!"
	msgBadgeNotFound   = "Matrícula não encontrada!"
	msgNotLoggedIn     = "Funcionário não estava logado."
	msgWrongPassword   = "Senha incorreta!"
	msgLoginConfirmed  = "Login confirmado com sucesso!"
	msgSupervisorOut   = "Supervisor deslogado com sucesso!"
	msgInvalidToken    = "Token inválido ou expirado!"
	msgCSRF            = "The CSRF token is missing or invalid."
	msgInternal        = "Erro interno do servidor!"
	msgNoneExceeded    = "✅ Nenhuma vaga excedeu o tempo."
	supervisorName     = "Supervisor"
	supervisorRedirect = "/sistema"
)

var landingTmpl = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
{{if .}}<meta name="csrf-token" content="{{.}}">{{end}}
<title>Estacionamento</title>
</head>
<body></body>
</html>
`))

type ctxKey string

const ctxKeyClaims ctxKey = "claims"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.MessageResponse{Message: msg})
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	landingTmpl.Execute(w, s.csrf)
}

// requireCSRF rejects requests without the configured anti-forgery token.
func (s *Server) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.csrf != "" && r.Header.Get("X-CSRFToken") != s.csrf {
			writeMessage(w, http.StatusBadRequest, msgCSRF)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireSupervisor accepts only a valid, unexpired, unrevoked bearer token.
func (s *Server) requireSupervisor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeMessage(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}
		claims, err := s.tokens.verify(token)
		if err != nil || s.isRevoked(token) {
			s.logger.Debug("rejected supervisor token", "error", err)
			writeMessage(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) isRevoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[token]
}

func decodeBadge(r *http.Request) (string, string, bool) {
	var req model.StaffLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", msgMissingData, false
	}
	badge := strings.TrimSpace(req.Badge)
	if badge == "" {
		return "", msgBadgeRequired, false
	}
	return badge, "", true
}

func staffKey(badge string) string {
	return "staff:" + badge
}

func (s *Server) handleStaffLogin(w http.ResponseWriter, r *http.Request) {
	badge, msg, ok := decodeBadge(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	name, known := s.staff[badge]
	if !known {
		writeMessage(w, http.StatusNotFound, msgBadgeNotFound)
		return
	}

	_, loggedIn, err := s.store.Get(r.Context(), staffKey(badge))
	if err != nil {
		s.logger.Error("read staff session", "badge", badge, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if loggedIn {
		writeMessage(w, http.StatusOK, fmt.Sprintf("Funcionário %s já está logado!", name))
		return
	}
	if err := s.store.Put(r.Context(), staffKey(badge), s.clock.Now().UTC().Format("2006-01-02T15:04:05Z")); err != nil {
		s.logger.Error("write staff session", "badge", badge, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	s.logger.Info("staff logged in", "badge", badge)
	writeMessage(w, http.StatusOK, fmt.Sprintf("Funcionário %s logado com sucesso!", name))
}

func (s *Server) handleStaffLogout(w http.ResponseWriter, r *http.Request) {
	badge, msg, ok := decodeBadge(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}
	_, loggedIn, err := s.store.Get(r.Context(), staffKey(badge))
	if err != nil {
		s.logger.Error("read staff session", "badge", badge, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if !loggedIn {
		writeMessage(w, http.StatusBadRequest, msgNotLoggedIn)
		return
	}
	if err := s.store.Delete(r.Context(), staffKey(badge)); err != nil {
		s.logger.Error("delete staff session", "badge", badge, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	name := badge
	if n, ok := s.staff[badge]; ok {
		name = n
	}
	s.logger.Info("staff logged out", "badge", badge)
	writeMessage(w, http.StatusOK, fmt.Sprintf("Funcionário %s deslogado com sucesso!", name))
}

func (s *Server) handleSupervisorLogin(w http.ResponseWriter, r *http.Request) {
	var req model.SupervisorLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgMissingData)
		return
	}
	if !checkPassword(s.password, req.Password) {
		writeMessage(w, http.StatusUnauthorized, msgWrongPassword)
		return
	}
	token, expiresAt, err := s.tokens.issue(supervisorName)
	if err != nil {
		s.logger.Error("sign token", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	s.logger.Info("supervisor logged in", "expires_at", expiresAt)
	writeJSON(w, http.StatusOK, struct {
		model.SupervisorLoginResponse
		Name string `json:"nome"`
	}{
		SupervisorLoginResponse: model.SupervisorLoginResponse{
			Message:  msgLoginConfirmed,
			Token:    token,
			Redirect: supervisorRedirect,
		},
		Name: supervisorName,
	})
}

func (s *Server) handleSupervisorLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	s.revoked[token] = true
	s.mu.Unlock()
	s.logger.Info("supervisor logged out")
	writeMessage(w, http.StatusOK, msgSupervisorOut)
}

type exceededResponse struct {
	Message  string                  `json:"mensagem"`
	Exceeded []string                `json:"excedidos"`
	Vehicles []model.ExceededVehicle `json:"veiculos_excedidos"`
}

func (s *Server) handleExceeded(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.failPolls > 0 {
		s.failPolls--
		s.mu.Unlock()
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}
	vehicles := append([]model.ExceededVehicle{}, s.exceeded...)
	s.mu.Unlock()

	resp := exceededResponse{Exceeded: []string{}, Vehicles: vehicles}
	if len(vehicles) == 0 {
		resp.Message = msgNoneExceeded
		writeJSON(w, http.StatusOK, resp)
		return
	}
	for _, v := range vehicles {
		hours := int(math.Floor(v.Exceeded / 60))
		resp.Exceeded = append(resp.Exceeded,
			fmt.Sprintf("⚠️ Vaga %s com veículo %s está há %d horas!", v.Stall, v.Plate, hours))
	}
	resp.Message = strings.Join(resp.Exceeded, "\n")
	writeJSON(w, http.StatusOK, resp)
}
