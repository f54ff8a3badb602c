package statusapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/andjpython/Estacionamento-Free/internal/notifier"
	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

type healthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Notifier string `json:"notifier"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, RequestIDFromContext(r.Context()), healthResponse{
		Status:   "healthy",
		Uptime:   time.Since(s.startTime).Round(time.Second).String(),
		Notifier: s.notifier.Status().State.String(),
	})
}

type statusResponse struct {
	Notifier notifierStatus      `json:"notifier"`
	Hidden   bool                `json:"hidden"`
	Session  *model.SessionState `json:"session,omitempty"`
}

// notifierStatus mirrors the notifier snapshot without the vehicle list.
type notifierStatus struct {
	State     model.NotifierState `json:"state"`
	Alert     model.AlertState    `json:"alert"`
	Count     int                 `json:"count"`
	LastCheck *time.Time          `json:"last_check"`
	NextCheck *time.Time          `json:"next_check"`
}

func toNotifierStatus(snap notifier.Snapshot) notifierStatus {
	return notifierStatus{
		State:     snap.State,
		Alert:     snap.Alert,
		Count:     snap.Count,
		LastCheck: timePtr(snap.LastCheck),
		NextCheck: timePtr(snap.NextCheck),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Notifier: toNotifierStatus(s.notifier.Status()),
		Hidden:   s.hidden(),
	}
	if s.session != nil {
		state := s.session.State()
		resp.Session = &state
	}
	respondOK(w, RequestIDFromContext(r.Context()), resp)
}

// hidden reports the visibility flag when the notifier exposes it.
func (s *Server) hidden() bool {
	if h, ok := s.notifier.(interface{ Hidden() bool }); ok {
		return h.Hidden()
	}
	return false
}

type alertsResponse struct {
	Alert     model.AlertState        `json:"alert"`
	Count     int                     `json:"count"`
	Vehicles  []model.ExceededVehicle `json:"vehicles"`
	LastCheck *time.Time              `json:"last_check"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	snap := s.notifier.Status()
	vehicles := snap.Vehicles
	if vehicles == nil {
		vehicles = []model.ExceededVehicle{}
	}
	respondOK(w, RequestIDFromContext(r.Context()), alertsResponse{
		Alert:     snap.Alert,
		Count:     snap.Count,
		Vehicles:  vehicles,
		LastCheck: timePtr(snap.LastCheck),
	})
}

type visibilityRequest struct {
	Hidden *bool `json:"hidden"`
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body: "+err.Error()))
		return
	}
	if req.Hidden == nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("hidden is required"))
		return
	}

	s.notifier.SetVisibility(*req.Hidden)
	s.logger.Info("visibility signal", "hidden", *req.Hidden)
	respondOK(w, reqID, toNotifierStatus(s.notifier.Status()))
}
