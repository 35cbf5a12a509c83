// Package workflow is the booking state machine: the single writer of the
// session state, driving the sequence from browsing to a confirmed or failed
// booking against the external booking service.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golfshopapp/teesheet/internal/availability"
	"github.com/golfshopapp/teesheet/internal/session"
	"github.com/golfshopapp/teesheet/internal/teesheet"
	"github.com/golfshopapp/teesheet/pkg/logging"
)

// Intent rejection errors. These reject the transition synchronously; the
// session stays interactive.
var (
	// ErrValidation rejects a submit with missing required fields. No network
	// call is made.
	ErrValidation = errors.New("workflow: all fields except cart are required")

	// ErrSubmitInFlight rejects a second submit while one is in flight.
	ErrSubmitInFlight = errors.New("workflow: submission already in flight")

	// ErrInvalidPhase rejects an intent the current phase does not allow.
	ErrInvalidPhase = errors.New("workflow: intent not valid in current phase")

	// ErrSlotNotFound rejects selecting a slot that is not in the visible list.
	ErrSlotNotFound = errors.New("workflow: slot not in the visible list")

	// ErrSessionNotFound is returned by the manager for unknown session ids.
	ErrSessionNotFound = errors.New("workflow: session not found")
)

// validationMessage is the inline message shown when required fields are missing.
const validationMessage = "All fields except cart are required."

// SlotAPI is the slice of the booking service the workflow needs.
type SlotAPI interface {
	ListAvailable(ctx context.Context, date string) ([]teesheet.Slot, error)
	CreateBooking(ctx context.Context, req teesheet.BookingRequest) (*teesheet.BookingRecord, error)
}

// Workflow owns one session's state. All mutations go through its intent
// methods; reads get deep copies. Safe for concurrent use, though intents are
// expected to arrive one at a time per session.
type Workflow struct {
	api    SlotAPI
	store  session.Store
	id     string
	logger *logging.Logger

	// cartDefault is applied on slot selection: true means riding (the cart
	// preselected), false means walking.
	cartDefault bool

	mu    sync.Mutex
	state *session.State
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithSnapshotStore persists a snapshot under id after every applied intent.
func WithSnapshotStore(store session.Store, id string) Option {
	return func(w *Workflow) {
		w.store = store
		w.id = id
	}
}

// WithCartDefault sets the cart/walking choice applied on slot selection.
// The default is riding (true).
func WithCartDefault(riding bool) Option {
	return func(w *Workflow) {
		w.cartDefault = riding
	}
}

// New creates a workflow in the initial browsing state.
func New(api SlotAPI, opts ...Option) *Workflow {
	return newWorkflow(api, session.NewState(), opts...)
}

// NewFromState rehydrates a workflow from a stored snapshot. A snapshot taken
// mid-submission resumes as a failed attempt: the in-flight call's outcome was
// lost with the process, so the user must resubmit.
func NewFromState(api SlotAPI, state *session.State, opts ...Option) *Workflow {
	if state == nil {
		state = session.NewState()
	} else {
		state = state.Clone()
		if state.Phase == session.PhaseSubmitting {
			state.Phase = session.PhaseFailed
			msg := "Your booking attempt was interrupted. Please try again."
			state.Error = &msg
			state.Loading = false
		}
	}
	return newWorkflow(api, state, opts...)
}

func newWorkflow(api SlotAPI, state *session.State, opts ...Option) *Workflow {
	if api == nil {
		panic("workflow: slot API cannot be nil")
	}
	w := &Workflow{
		api:         api,
		logger:      logging.Default(),
		cartDefault: true,
		state:       state,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Snapshot returns a deep copy of the current session state.
func (w *Workflow) Snapshot() *session.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Clone()
}

// VisibleSlots derives the filtered slot list from the raw slots and the
// current criteria. Never cached.
func (w *Workflow) VisibleSlots() []teesheet.Slot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return availability.Filter(w.state.Slots, w.state.Filters)
}

// SelectDate sets the selected date and fetches that date's slots. An empty
// date clears the selection and the slot list without fetching. A selected
// slot belongs to the previous date, so changing the date drops it and returns
// to browsing first; the slot's date always matches the selected date.
func (w *Workflow) SelectDate(ctx context.Context, date string) error {
	w.mu.Lock()
	if w.state.Phase == session.PhaseSubmitting {
		w.mu.Unlock()
		return ErrSubmitInFlight
	}
	if w.state.Phase != session.PhaseBrowsing {
		w.state.SelectedSlot = nil
		w.state.Booking = nil
		w.state.Error = nil
		w.state.Phase = session.PhaseBrowsing
	}
	if date == "" {
		w.state.SelectedDate = nil
		w.state.Slots = nil
		w.state.FetchSeq++ // supersede any in-flight fetch
		w.persistLocked(ctx)
		w.mu.Unlock()
		return nil
	}
	w.state.SelectedDate = &date
	seq := w.beginFetchLocked()
	w.mu.Unlock()

	w.runFetch(ctx, date, seq)
	return nil
}

// Refresh re-fetches slots for the current date without changing it. Used
// after a booking attempt, when the just-booked slot's availability changed.
func (w *Workflow) Refresh(ctx context.Context) error {
	w.mu.Lock()
	if w.state.Phase == session.PhaseSubmitting {
		w.mu.Unlock()
		return ErrSubmitInFlight
	}
	if w.state.SelectedDate == nil {
		w.state.Slots = nil
		w.persistLocked(ctx)
		w.mu.Unlock()
		return nil
	}
	date := *w.state.SelectedDate
	seq := w.beginFetchLocked()
	w.mu.Unlock()

	w.runFetch(ctx, date, seq)
	return nil
}

// beginFetchLocked tags a new fetch and flips the loading flag. Caller holds the lock.
func (w *Workflow) beginFetchLocked() uint64 {
	w.state.FetchSeq++
	w.state.Loading = true
	w.state.Error = nil
	return w.state.FetchSeq
}

// runFetch performs the slot fetch outside the lock and applies the result
// only if no newer fetch has been issued since (last write wins by issue
// order, not completion order).
func (w *Workflow) runFetch(ctx context.Context, date string, seq uint64) {
	slots, err := w.api.ListAvailable(ctx, date)

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq != w.state.FetchSeq {
		w.logger.Debug("discarding superseded slot fetch", "session_id", w.id, "date", date)
		return
	}
	w.state.Loading = false
	if err != nil {
		w.state.Slots = nil
		msg := err.Error()
		w.state.Error = &msg
		w.logger.Warn("slot fetch failed", "session_id", w.id, "date", date, "error", err)
	} else {
		w.state.Slots = slots
		w.state.Error = nil
	}
	w.persistLocked(ctx)
}

// SetFilterPlayers sets the minimum-players criterion, clamped to [1, 4].
func (w *Workflow) SetFilterPlayers(ctx context.Context, minPlayers int) error {
	if minPlayers < 1 {
		minPlayers = 1
	}
	if minPlayers > 4 {
		minPlayers = 4
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Filters.MinPlayers = minPlayers
	w.persistLocked(ctx)
	return nil
}

// SetFilterTimeOfDay sets the time-of-day bucket criterion.
func (w *Workflow) SetFilterTimeOfDay(ctx context.Context, bucket availability.TimeOfDay) error {
	switch bucket {
	case availability.TimeAll, availability.TimeMorning, availability.TimeAfternoon, availability.TimeEvening:
	default:
		return fmt.Errorf("workflow: unknown time-of-day bucket %q", bucket)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Filters.TimeOfDay = bucket
	w.persistLocked(ctx)
	return nil
}

// SetFilterHoleCount sets the hole-count preference criterion.
func (w *Workflow) SetFilterHoleCount(ctx context.Context, holes availability.HoleCount) error {
	switch holes {
	case availability.HolesAll, availability.HolesNine, availability.HolesEighteen:
	default:
		return fmt.Errorf("workflow: unknown hole-count preference %q", holes)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Filters.HoleCount = holes
	w.persistLocked(ctx)
	return nil
}

// SelectSlot picks a slot from the visible list and opens the booking form:
// contact fields reset to empty, cart reset to the configured default, player
// count clamped to the slot's capacity.
func (w *Workflow) SelectSlot(ctx context.Context, slotID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state.Phase {
	case session.PhaseBrowsing, session.PhaseSlotSelected:
	default:
		return ErrInvalidPhase
	}

	var picked *teesheet.Slot
	for _, s := range availability.Filter(w.state.Slots, w.state.Filters) {
		if s.ID == slotID {
			slot := s
			picked = &slot
			break
		}
	}
	if picked == nil {
		return ErrSlotNotFound
	}

	w.state.SelectedSlot = picked
	w.state.Phase = session.PhaseSlotSelected
	w.state.Contact = session.Contact{}
	w.state.CartRequired = w.cartDefault
	w.state.Booking = nil
	w.state.Error = nil
	w.state.NumberOfPlayers = clamp(w.state.NumberOfPlayers, 1, picked.AvailableSpots)
	w.persistLocked(ctx)

	w.logger.Info("slot selected", "session_id", w.id, "slot_id", picked.ID, "time", picked.Time)
	return nil
}

// SetNumberOfPlayers sets the booking's player count, clamped to the selected
// slot's available spots.
func (w *Workflow) SetNumberOfPlayers(ctx context.Context, n int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.formEditableLocked(); err != nil {
		return err
	}
	w.state.NumberOfPlayers = clamp(n, 1, w.state.SelectedSlot.AvailableSpots)
	w.persistLocked(ctx)
	return nil
}

// SetHoleCount sets the booking's hole count ("9" or "18"). Nine-hole-only
// slots only accept "9".
func (w *Workflow) SetHoleCount(ctx context.Context, holes string) error {
	if holes != "9" && holes != "18" {
		return fmt.Errorf("workflow: invalid hole count %q", holes)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.formEditableLocked(); err != nil {
		return err
	}
	if holes == "18" && availability.NineHoleOnly(w.state.SelectedSlot.Time) {
		return fmt.Errorf("workflow: slot at %s is nine-hole only", w.state.SelectedSlot.Time)
	}
	w.state.HoleCount = holes
	w.persistLocked(ctx)
	return nil
}

// SetCartRequired sets the cart/walking choice.
func (w *Workflow) SetCartRequired(ctx context.Context, riding bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.formEditableLocked(); err != nil {
		return err
	}
	w.state.CartRequired = riding
	w.persistLocked(ctx)
	return nil
}

// SetContact sets the contact form fields.
func (w *Workflow) SetContact(ctx context.Context, contact session.Contact) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.formEditableLocked(); err != nil {
		return err
	}
	w.state.Contact = contact
	w.persistLocked(ctx)
	return nil
}

// formEditableLocked gates booking-form mutations: a slot must be selected and
// no submission may be in flight. Caller holds the lock.
func (w *Workflow) formEditableLocked() error {
	switch w.state.Phase {
	case session.PhaseSlotSelected, session.PhaseFailed:
		return nil
	case session.PhaseSubmitting:
		return ErrSubmitInFlight
	default:
		return ErrInvalidPhase
	}
}

// Submit validates the form and sends the booking to the external service.
// Validation failure raises the inline error and makes no network call. While
// a submission is in flight a second submit is rejected. Success stores the
// returned record verbatim and confirms; failure stores the derived message
// and keeps the slot selected so the form stays open for correction.
func (w *Workflow) Submit(ctx context.Context) error {
	w.mu.Lock()

	switch w.state.Phase {
	case session.PhaseSubmitting:
		w.mu.Unlock()
		return ErrSubmitInFlight
	case session.PhaseSlotSelected, session.PhaseFailed:
	default:
		w.mu.Unlock()
		return ErrInvalidPhase
	}

	if !w.state.Contact.Complete() || w.state.NumberOfPlayers < 1 || w.state.HoleCount == "" {
		msg := validationMessage
		w.state.Error = &msg
		w.persistLocked(ctx)
		w.mu.Unlock()
		return ErrValidation
	}

	req := teesheet.BookingRequest{
		TeeTimeID:       w.state.SelectedSlot.ID,
		NumberOfPlayers: w.state.NumberOfPlayers,
		HoleCount:       w.state.HoleCount,
		Email:           w.state.Contact.Email,
		FirstName:       w.state.Contact.FirstName,
		LastName:        w.state.Contact.LastName,
		PhoneNumber:     w.state.Contact.Phone,
		CartRequired:    w.state.CartRequired,
	}
	w.state.Phase = session.PhaseSubmitting
	w.state.Loading = true
	w.state.Error = nil
	w.persistLocked(ctx)
	w.mu.Unlock()

	record, err := w.api.CreateBooking(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Loading = false
	if err != nil {
		msg := err.Error()
		w.state.Error = &msg
		w.state.Booking = nil
		w.state.Phase = session.PhaseFailed
		w.persistLocked(ctx)
		w.logger.Warn("booking failed", "session_id", w.id, "slot_id", req.TeeTimeID, "error", err)
		return nil
	}
	w.state.Booking = record
	w.state.Error = nil
	w.state.Phase = session.PhaseConfirmed
	w.persistLocked(ctx)
	w.logger.Info("booking confirmed", "session_id", w.id, "booking_id", record.ID)
	return nil
}

// Close dismisses the booking form or confirmation and returns to browsing.
// After a confirmed or failed attempt the slot list is refreshed, because
// availability changed (or may have, on a failure race). Cancelling an
// untouched form refreshes nothing.
func (w *Workflow) Close(ctx context.Context) error {
	w.mu.Lock()

	switch w.state.Phase {
	case session.PhaseBrowsing:
		w.mu.Unlock()
		return nil
	case session.PhaseSubmitting:
		w.mu.Unlock()
		return ErrSubmitInFlight
	}

	needsRefresh := w.state.Phase == session.PhaseConfirmed || w.state.Phase == session.PhaseFailed
	w.state.SelectedSlot = nil
	w.state.Booking = nil
	w.state.Error = nil
	w.state.Phase = session.PhaseBrowsing
	w.persistLocked(ctx)
	w.mu.Unlock()

	if needsRefresh {
		return w.Refresh(ctx)
	}
	return nil
}

// persistLocked writes a snapshot to the store, best-effort. Caller holds the lock.
func (w *Workflow) persistLocked(ctx context.Context) {
	if w.store == nil {
		return
	}
	if err := w.store.Save(ctx, w.id, w.state); err != nil {
		w.logger.Warn("failed to persist session snapshot", "session_id", w.id, "error", err)
	}
}

func clamp(n, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
