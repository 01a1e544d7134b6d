package server

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/voxloop/voxd/internal/catalog"
	"github.com/voxloop/voxd/internal/httputil"
	"github.com/voxloop/voxd/internal/logging"
	"github.com/voxloop/voxd/internal/session"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Handlers bundles the REST endpoint dependencies.
type Handlers struct {
	Registry *session.Registry
	Catalog  *catalog.Store
	Greeting string
}

// Health reports service liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	httputil.OkJSON(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// StartCall creates a new call session and returns its id and the greeting
// the caller will hear over the WebSocket.
func (h *Handlers) StartCall(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Registry.Create()
	if err != nil {
		if errors.Is(err, session.ErrCapacityExceeded) {
			httputil.TooManyRequests(w, "maximum concurrent sessions reached")
			return
		}
		httputil.InternalError(w, err.Error())
		return
	}

	logging.Infof("call session started: %s", sess.ID)
	httputil.OkJSON(w, map[string]any{
		"sessionId": sess.ID,
		"status":    "initialized",
		"greeting":  h.Greeting,
	})
}

// EndCall tears down a session by id. Unknown ids are a 404.
func (h *Handlers) EndCall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `form:"session_id"`
	}
	if err := httputil.Parse(r, &req); err != nil || req.SessionID == "" {
		httputil.BadRequest(w, "session_id is required")
		return
	}

	sess, err := h.Registry.Get(req.SessionID)
	if err != nil {
		httputil.NotFound(w, "Session not found")
		return
	}

	h.Registry.Teardown(sess, session.StatusEnded)
	httputil.OkJSON(w, map[string]any{
		"status":    "ended",
		"sessionId": req.SessionID,
	})
}

// ListServices returns the bookable service catalog.
func (h *Handlers) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.Catalog.ListServices(r.Context())
	if err != nil {
		logging.Errorf("list services: %v", err)
		httputil.InternalError(w, err.Error())
		return
	}
	if services == nil {
		services = []catalog.Service{}
	}
	httputil.OkJSON(w, map[string]any{"services": services})
}

// ListReservations returns all booked appointments.
func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.Catalog.ListReservations(r.Context())
	if err != nil {
		logging.Errorf("list reservations: %v", err)
		httputil.InternalError(w, err.Error())
		return
	}
	if reservations == nil {
		reservations = []catalog.Reservation{}
	}
	httputil.OkJSON(w, map[string]any{"reservations": reservations})
}

// CreateReservation books an appointment for a catalog service.
func (h *Handlers) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServiceID   string `json:"serviceId"`
		Date        string `json:"date"`
		Time        string `json:"time"`
		PatientName string `json:"patientName"`
		PatientDOB  string `json:"patientDOB"`
		Notes       string `json:"notes"`
	}
	if err := httputil.Parse(r, &req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}
	if req.ServiceID == "" || req.Date == "" || req.Time == "" || req.PatientName == "" {
		httputil.BadRequest(w, "serviceId, date, time and patientName are required")
		return
	}

	reservation, err := h.Catalog.CreateReservation(r.Context(), catalog.ReservationParams{
		ServiceID:   req.ServiceID,
		Date:        req.Date,
		Time:        req.Time,
		PatientName: req.PatientName,
		PatientDOB:  req.PatientDOB,
		Notes:       req.Notes,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.NotFound(w, "service not found")
			return
		}
		logging.Errorf("create reservation: %v", err)
		httputil.InternalError(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, reservation)
}
