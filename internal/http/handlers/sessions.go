// Package handlers exposes the booking session intents over HTTP. Handlers
// only read snapshots and dispatch intents; all state lives in the workflow.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/golfshopapp/teesheet/internal/availability"
	"github.com/golfshopapp/teesheet/internal/session"
	"github.com/golfshopapp/teesheet/internal/teesheet"
	"github.com/golfshopapp/teesheet/internal/workflow"
	"github.com/golfshopapp/teesheet/pkg/logging"
)

// SessionsHandler handles HTTP requests for booking sessions
type SessionsHandler struct {
	manager *workflow.Manager
	logger  *logging.Logger
}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler(manager *workflow.Manager, logger *logging.Logger) *SessionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionsHandler{
		manager: manager,
		logger:  logger,
	}
}

// VisibleSlot is a filtered slot together with its derived display fields.
type VisibleSlot struct {
	teesheet.Slot
	DisplayTime    string  `json:"displayTime"`
	DisplayPrice   float64 `json:"displayPrice"`
	AvailableLabel string  `json:"availableLabel"`
	NineHoleOnly   bool    `json:"nineHoleOnly"`
	Twilight       bool    `json:"twilight"`
}

type sessionResponse struct {
	SessionID string         `json:"sessionId"`
	Session   *session.State `json:"session"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// CreateSession handles POST /sessions requests
func (h *SessionsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, wf, err := h.manager.Create(r.Context())
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id, Session: wf.Snapshot()})
}

// GetSession handles GET /sessions/{id} requests
func (h *SessionsHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: chi.URLParam(r, "id"), Session: wf.Snapshot()})
}

// GetVisibleSlots handles GET /sessions/{id}/slots requests
func (h *SessionsHandler) GetVisibleSlots(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	slots := wf.VisibleSlots()
	out := make([]VisibleSlot, 0, len(slots))
	for _, s := range slots {
		out = append(out, VisibleSlot{
			Slot:           s,
			DisplayTime:    availability.FormatTime12Hour(s.Time),
			DisplayPrice:   availability.DisplayPrice(s),
			AvailableLabel: availability.AvailableLabel(s.AvailableSpots),
			NineHoleOnly:   availability.NineHoleOnly(s.Time),
			Twilight:       availability.Twilight(s.Time),
		})
	}
	writeJSON(w, http.StatusOK, map[string][]VisibleSlot{"slots": out})
}

// SelectDate handles PUT /sessions/{id}/date requests
func (h *SessionsHandler) SelectDate(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.dispatch(w, r, wf, wf.SelectDate(r.Context(), req.Date))
}

// SetFilters handles PUT /sessions/{id}/filters requests. Absent fields keep
// their current value.
func (h *SessionsHandler) SetFilters(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		MinPlayers *int    `json:"minPlayers"`
		TimeOfDay  *string `json:"timeOfDay"`
		HoleCount  *string `json:"holeCount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx := r.Context()
	if req.MinPlayers != nil {
		if err := wf.SetFilterPlayers(ctx, *req.MinPlayers); err != nil {
			h.writeIntentError(w, err)
			return
		}
	}
	if req.TimeOfDay != nil {
		if err := wf.SetFilterTimeOfDay(ctx, availability.TimeOfDay(*req.TimeOfDay)); err != nil {
			h.writeIntentError(w, err)
			return
		}
	}
	if req.HoleCount != nil {
		if err := wf.SetFilterHoleCount(ctx, availability.HoleCount(*req.HoleCount)); err != nil {
			h.writeIntentError(w, err)
			return
		}
	}
	h.dispatch(w, r, wf, nil)
}

// Refresh handles POST /sessions/{id}/refresh requests
func (h *SessionsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.dispatch(w, r, wf, wf.Refresh(r.Context()))
}

// SelectSlot handles POST /sessions/{id}/slot requests
func (h *SessionsHandler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		SlotID string `json:"slotId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.dispatch(w, r, wf, wf.SelectSlot(r.Context(), req.SlotID))
}

// UpdateBooking handles PUT /sessions/{id}/booking requests: player count,
// hole count, cart choice, and contact fields, any subset at a time.
func (h *SessionsHandler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		NumberOfPlayers *int             `json:"numberOfPlayers"`
		HoleCount       *string          `json:"holeCount"`
		CartRequired    *bool            `json:"cartRequired"`
		Contact         *session.Contact `json:"contact"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx := r.Context()
	if req.NumberOfPlayers != nil {
		if err := wf.SetNumberOfPlayers(ctx, *req.NumberOfPlayers); err != nil {
			h.writeIntentError(w, err)
			return
		}
	}
	if req.HoleCount != nil {
		if err := wf.SetHoleCount(ctx, *req.HoleCount); err != nil {
			h.writeIntentError(w, err)
			return
		}
	}
	if req.CartRequired != nil {
		if err := wf.SetCartRequired(ctx, *req.CartRequired); err != nil {
			h.writeIntentError(w, err)
			return
		}
	}
	if req.Contact != nil {
		if err := wf.SetContact(ctx, *req.Contact); err != nil {
			h.writeIntentError(w, err)
			return
		}
	}
	h.dispatch(w, r, wf, nil)
}

// Submit handles POST /sessions/{id}/submit requests
func (h *SessionsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.dispatch(w, r, wf, wf.Submit(r.Context()))
}

// Close handles POST /sessions/{id}/close requests
func (h *SessionsHandler) Close(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.dispatch(w, r, wf, wf.Close(r.Context()))
}

// EndSession handles DELETE /sessions/{id} requests
func (h *SessionsHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.manager.End(r.Context(), id); err != nil {
		if errors.Is(err, workflow.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("failed to end session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health requests
func (h *SessionsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lookup resolves the session id in the URL to a live workflow.
func (h *SessionsHandler) lookup(w http.ResponseWriter, r *http.Request) (*workflow.Workflow, bool) {
	id := chi.URLParam(r, "id")
	wf, err := h.manager.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, workflow.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		h.logger.Error("failed to load session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return wf, true
}

// dispatch maps an intent's outcome to a response: rejections become status
// codes, applied intents return the fresh snapshot.
func (h *SessionsHandler) dispatch(w http.ResponseWriter, r *http.Request, wf *workflow.Workflow, err error) {
	if err != nil {
		h.writeIntentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: chi.URLParam(r, "id"), Session: wf.Snapshot()})
}

func (h *SessionsHandler) writeIntentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "All fields except cart are required.")
	case errors.Is(err, workflow.ErrSubmitInFlight):
		writeError(w, http.StatusConflict, "a submission is already in flight")
	case errors.Is(err, workflow.ErrSlotNotFound):
		writeError(w, http.StatusUnprocessableEntity, "slot is not available")
	case errors.Is(err, workflow.ErrInvalidPhase):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}
