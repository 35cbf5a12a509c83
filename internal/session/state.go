// Package session holds the per-browser-session booking state and its
// snapshot storage. The state is owned exclusively by the booking workflow;
// everything else reads copies.
package session

import (
	"github.com/golfshopapp/teesheet/internal/availability"
	"github.com/golfshopapp/teesheet/internal/teesheet"
)

// Phase is the workflow state a session is in. Exactly one holds at any time.
type Phase string

const (
	PhaseBrowsing     Phase = "browsing"
	PhaseSlotSelected Phase = "slot_selected"
	PhaseSubmitting   Phase = "submitting"
	PhaseConfirmed    Phase = "confirmed"
	PhaseFailed       Phase = "failed"
)

// Contact are the required booking form fields.
type Contact struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Complete reports whether every contact field is non-empty.
func (c Contact) Complete() bool {
	return c.FirstName != "" && c.LastName != "" && c.Email != "" && c.Phone != ""
}

// State is the full booking session state. Error and Booking are mutually
// exclusive: whichever is set last clears the other.
type State struct {
	Phase           Phase                   `json:"phase"`
	SelectedDate    *string                 `json:"selectedDate"` // YYYY-MM-DD, nil when no date chosen
	Filters         availability.Criteria   `json:"filters"`
	Slots           []teesheet.Slot         `json:"slots"` // raw list as fetched for SelectedDate
	SelectedSlot    *teesheet.Slot          `json:"selectedSlot"`
	NumberOfPlayers int                     `json:"numberOfPlayers"`
	HoleCount       string                  `json:"holeCount"` // "9" or "18"
	CartRequired    bool                    `json:"cartRequired"`
	Contact         Contact                 `json:"contact"`
	Loading         bool                    `json:"loading"`
	Error           *string                 `json:"error"`
	Booking         *teesheet.BookingRecord `json:"booking"`

	// FetchSeq tags the most recently issued slot fetch so a superseded
	// fetch's result can be discarded on completion.
	FetchSeq uint64 `json:"fetchSeq"`
}

// NewState returns the initial browsing state.
func NewState() *State {
	return &State{
		Phase:           PhaseBrowsing,
		Filters:         availability.DefaultCriteria(),
		NumberOfPlayers: 1,
		HoleCount:       string(availability.HolesEighteen),
	}
}

// Clone returns a deep copy safe to hand outside the workflow.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	if s.SelectedDate != nil {
		d := *s.SelectedDate
		out.SelectedDate = &d
	}
	if s.Slots != nil {
		out.Slots = make([]teesheet.Slot, len(s.Slots))
		copy(out.Slots, s.Slots)
	}
	if s.SelectedSlot != nil {
		slot := *s.SelectedSlot
		out.SelectedSlot = &slot
	}
	if s.Error != nil {
		msg := *s.Error
		out.Error = &msg
	}
	if s.Booking != nil {
		rec := *s.Booking
		out.Booking = &rec
	}
	return &out
}
