package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golfshopapp/teesheet/internal/session"
	"github.com/golfshopapp/teesheet/internal/teesheet"
	"github.com/golfshopapp/teesheet/internal/workflow"
)

type stubSlotAPI struct {
	slots     []teesheet.Slot
	listErr   error
	booking   *teesheet.BookingRecord
	createErr error

	createCalls []teesheet.BookingRequest
}

func (s *stubSlotAPI) ListAvailable(ctx context.Context, date string) ([]teesheet.Slot, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]teesheet.Slot, len(s.slots))
	copy(out, s.slots)
	for i := range out {
		out[i].Date = date
	}
	return out, nil
}

func (s *stubSlotAPI) CreateBooking(ctx context.Context, req teesheet.BookingRequest) (*teesheet.BookingRecord, error) {
	s.createCalls = append(s.createCalls, req)
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.booking, nil
}

func newTestRouter(api workflow.SlotAPI) (*chi.Mux, *workflow.Manager) {
	manager := workflow.NewManager(api, session.NewMemoryStore(0), nil, nil)
	h := NewSessionsHandler(manager, nil)

	r := chi.NewRouter()
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.EndSession)
		r.Get("/slots", h.GetVisibleSlots)
		r.Put("/date", h.SelectDate)
		r.Put("/filters", h.SetFilters)
		r.Post("/refresh", h.Refresh)
		r.Post("/slot", h.SelectSlot)
		r.Put("/booking", h.UpdateBooking)
		r.Post("/submit", h.Submit)
		r.Post("/close", h.Close)
	})
	return r, manager
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func slotFixture(id, timeOfDay string, spots int) teesheet.Slot {
	return teesheet.Slot{
		ID:             id,
		Time:           timeOfDay,
		MaxPlayers:     4,
		AvailableSpots: spots,
		Status:         "available",
		Price:          50,
	}
}

func TestCreateSessionReturnsSnapshot(t *testing.T) {
	api := &stubSlotAPI{slots: []teesheet.Slot{slotFixture("t1", "09:00", 4)}}
	r, _ := newTestRouter(api)

	rec := doJSON(t, r, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		SessionID string         `json:"sessionId"`
		Session   *session.State `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	require.NotNil(t, resp.Session)
	assert.Equal(t, session.PhaseBrowsing, resp.Session.Phase)
	require.NotNil(t, resp.Session.SelectedDate)
	assert.Len(t, resp.Session.Slots, 1)
}

func TestGetSessionNotFound(t *testing.T) {
	r, _ := newTestRouter(&stubSlotAPI{})

	rec := doJSON(t, r, http.MethodGet, "/sessions/no-such-session", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVisibleSlotsCarryDisplayFields(t *testing.T) {
	api := &stubSlotAPI{slots: []teesheet.Slot{
		slotFixture("t1", "09:00", 4),
		slotFixture("t2", "16:15", 2),
	}}
	r, _ := newTestRouter(api)
	id := createSession(t, r)

	rec := doJSON(t, r, http.MethodGet, "/sessions/"+id+"/slots", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Slots []VisibleSlot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Slots, 2)

	assert.Equal(t, "t1", resp.Slots[0].ID)
	assert.Equal(t, "9:00 AM", resp.Slots[0].DisplayTime)
	assert.Equal(t, 50.0, resp.Slots[0].DisplayPrice)
	assert.Equal(t, "1-4 Available", resp.Slots[0].AvailableLabel)
	assert.False(t, resp.Slots[0].NineHoleOnly)
	assert.False(t, resp.Slots[0].Twilight)

	assert.Equal(t, "t2", resp.Slots[1].ID)
	assert.Equal(t, "4:15 PM", resp.Slots[1].DisplayTime)
	assert.Equal(t, 25.0, resp.Slots[1].DisplayPrice)
	assert.Equal(t, "1-2 Available", resp.Slots[1].AvailableLabel)
	assert.True(t, resp.Slots[1].NineHoleOnly)
	assert.True(t, resp.Slots[1].Twilight)
}

func TestEighteenHoleFilterHidesNineHoleOnlySlots(t *testing.T) {
	api := &stubSlotAPI{slots: []teesheet.Slot{
		slotFixture("t1", "09:00", 4),
		slotFixture("t2", "16:15", 2),
	}}
	r, _ := newTestRouter(api)
	id := createSession(t, r)

	rec := doJSON(t, r, http.MethodPut, "/sessions/"+id+"/filters", map[string]any{"holeCount": "18"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/sessions/"+id+"/slots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Slots []VisibleSlot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, "t1", resp.Slots[0].ID)
}

func TestSetFiltersChangesVisibleSlots(t *testing.T) {
	api := &stubSlotAPI{slots: []teesheet.Slot{
		slotFixture("t1", "09:00", 4),
		slotFixture("t2", "13:00", 2),
	}}
	r, _ := newTestRouter(api)
	id := createSession(t, r)

	rec := doJSON(t, r, http.MethodPut, "/sessions/"+id+"/filters", map[string]any{"timeOfDay": "afternoon"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/sessions/"+id+"/slots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Slots []VisibleSlot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, "t2", resp.Slots[0].ID)
}

func TestSubmitValidationFailure(t *testing.T) {
	api := &stubSlotAPI{slots: []teesheet.Slot{slotFixture("t1", "09:00", 4)}}
	r, _ := newTestRouter(api)
	id := createSession(t, r)

	rec := doJSON(t, r, http.MethodPost, "/sessions/"+id+"/slot", map[string]string{"slotId": "t1"})
	require.Equal(t, http.StatusOK, rec.Code)

	// No contact details yet.
	rec = doJSON(t, r, http.MethodPost, "/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "All fields except cart are required.", resp.Message)
	assert.Empty(t, api.createCalls)
}

func TestFullBookingFlow(t *testing.T) {
	api := &stubSlotAPI{
		slots: []teesheet.Slot{slotFixture("t1", "09:00", 4)},
		booking: &teesheet.BookingRecord{
			ID:        "bk1",
			TeeTimeID: "t1",
			Status:    "confirmed",
			QRCodeURL: "https://example.com/qr/bk1",
		},
	}
	r, _ := newTestRouter(api)
	id := createSession(t, r)

	rec := doJSON(t, r, http.MethodPost, "/sessions/"+id+"/slot", map[string]string{"slotId": "t1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/sessions/"+id+"/booking", map[string]any{
		"numberOfPlayers": 2,
		"cartRequired":    false,
		"contact": map[string]string{
			"firstName": "Jordan",
			"lastName":  "Lee",
			"email":     "jordan@example.com",
			"phone":     "555-0100",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Session *session.State `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Session)
	assert.Equal(t, session.PhaseConfirmed, resp.Session.Phase)
	require.NotNil(t, resp.Session.Booking)
	assert.Equal(t, "bk1", resp.Session.Booking.ID)

	require.Len(t, api.createCalls, 1)
	assert.Equal(t, "t1", api.createCalls[0].TeeTimeID)
	assert.Equal(t, 2, api.createCalls[0].NumberOfPlayers)
	assert.False(t, api.createCalls[0].CartRequired)
}

func TestSubmitBookingFailureReturnsFailedPhase(t *testing.T) {
	api := &stubSlotAPI{
		slots:     []teesheet.Slot{slotFixture("t1", "09:00", 4)},
		createErr: fmt.Errorf("tee time no longer available"),
	}
	r, _ := newTestRouter(api)
	id := createSession(t, r)

	rec := doJSON(t, r, http.MethodPost, "/sessions/"+id+"/slot", map[string]string{"slotId": "t1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/sessions/"+id+"/booking", map[string]any{
		"contact": map[string]string{
			"firstName": "Jordan",
			"lastName":  "Lee",
			"email":     "jordan@example.com",
			"phone":     "555-0100",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The intent succeeds even when the platform rejects the booking; the
	// failure lands in the session state.
	rec = doJSON(t, r, http.MethodPost, "/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Session *session.State `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Session)
	assert.Equal(t, session.PhaseFailed, resp.Session.Phase)
	require.NotNil(t, resp.Session.Error)
	assert.Equal(t, "tee time no longer available", *resp.Session.Error)
}

func TestSelectSlotUnknownID(t *testing.T) {
	api := &stubSlotAPI{slots: []teesheet.Slot{slotFixture("t1", "09:00", 4)}}
	r, _ := newTestRouter(api)
	id := createSession(t, r)

	rec := doJSON(t, r, http.MethodPost, "/sessions/"+id+"/slot", map[string]string{"slotId": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateBookingWithoutSlot(t *testing.T) {
	api := &stubSlotAPI{slots: []teesheet.Slot{slotFixture("t1", "09:00", 4)}}
	r, _ := newTestRouter(api)
	id := createSession(t, r)

	rec := doJSON(t, r, http.MethodPut, "/sessions/"+id+"/booking", map[string]any{"numberOfPlayers": 2})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCloseReturnsToBrowsing(t *testing.T) {
	api := &stubSlotAPI{slots: []teesheet.Slot{slotFixture("t1", "09:00", 4)}}
	r, _ := newTestRouter(api)
	id := createSession(t, r)

	rec := doJSON(t, r, http.MethodPost, "/sessions/"+id+"/slot", map[string]string{"slotId": "t1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/sessions/"+id+"/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Session *session.State `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, session.PhaseBrowsing, resp.Session.Phase)
	assert.Nil(t, resp.Session.SelectedSlot)
}

func TestEndSession(t *testing.T) {
	api := &stubSlotAPI{slots: []teesheet.Slot{slotFixture("t1", "09:00", 4)}}
	r, _ := newTestRouter(api)
	id := createSession(t, r)

	rec := doJSON(t, r, http.MethodDelete, "/sessions/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEndUnknownSession(t *testing.T) {
	r, _ := newTestRouter(&stubSlotAPI{})

	rec := doJSON(t, r, http.MethodDelete, "/sessions/never-created", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectDateInvalidBody(t *testing.T) {
	api := &stubSlotAPI{slots: []teesheet.Slot{slotFixture("t1", "09:00", 4)}}
	r, _ := newTestRouter(api)
	id := createSession(t, r)

	req := httptest.NewRequest(http.MethodPut, "/sessions/"+id+"/date", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
