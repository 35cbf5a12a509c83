// Package availability derives the visible slot list from raw slots and filter
// criteria, plus the display classifications the tee sheet uses (twilight,
// nine-hole-only, 12-hour times). Everything here is pure: re-derivable at any
// time from its inputs, no memoized state.
package availability

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golfshopapp/teesheet/internal/teesheet"
)

// TimeOfDay is a user-selectable time bucket.
type TimeOfDay string

const (
	TimeAll       TimeOfDay = "all"
	TimeMorning   TimeOfDay = "morning"   // [06:00, 12:00)
	TimeAfternoon TimeOfDay = "afternoon" // [12:00, 17:00)
	TimeEvening   TimeOfDay = "evening"   // [17:00, 20:00)
)

// HoleCount is a user-selectable hole-count preference.
type HoleCount string

const (
	HolesAll      HoleCount = "all"
	HolesNine     HoleCount = "9"
	HolesEighteen HoleCount = "18"
)

// NineHolePrice is the fixed discounted rate displayed for nine-hole-only
// slots. The slot's stored price is the 18-hole price.
const NineHolePrice = 25.0

// Criteria are the user-chosen narrowing rules applied to the raw slot list.
type Criteria struct {
	MinPlayers int       `json:"minPlayers"`
	TimeOfDay  TimeOfDay `json:"timeOfDay"`
	HoleCount  HoleCount `json:"holeCount"`
}

// DefaultCriteria matches every slot a single player could book.
func DefaultCriteria() Criteria {
	return Criteria{MinPlayers: 1, TimeOfDay: TimeAll, HoleCount: HolesAll}
}

// Filter returns the subsequence of slots, in original order, satisfying all
// three criteria axes.
func Filter(slots []teesheet.Slot, c Criteria) []teesheet.Slot {
	out := make([]teesheet.Slot, 0, len(slots))
	for _, s := range slots {
		if s.AvailableSpots < c.MinPlayers {
			continue
		}
		if !matchesTimeOfDay(s.Time, c.TimeOfDay) {
			continue
		}
		if c.HoleCount == HolesEighteen && NineHoleOnly(s.Time) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// matchesTimeOfDay applies the half-open bucket boundaries. Anything other
// than the three named buckets matches every slot.
func matchesTimeOfDay(clock string, bucket TimeOfDay) bool {
	h, _, ok := parseClock(clock)
	if !ok {
		return bucket == TimeAll
	}
	switch bucket {
	case TimeMorning:
		return h >= 6 && h < 12
	case TimeAfternoon:
		return h >= 12 && h < 17
	case TimeEvening:
		return h >= 17 && h < 20
	default:
		return true
	}
}

// NineHoleOnly reports whether a slot is too late for 18 holes: hour >= 16,
// regardless of minute.
func NineHoleOnly(clock string) bool {
	h, _, ok := parseClock(clock)
	return ok && h >= 16
}

// Twilight reports whether a slot starts at or after 14:30. Display-only.
func Twilight(clock string) bool {
	h, m, ok := parseClock(clock)
	if !ok {
		return false
	}
	return h > 14 || (h == 14 && m >= 30)
}

// DisplayPrice is the price shown for a slot: the fixed nine-hole rate for
// nine-hole-only slots, the stored 18-hole price otherwise.
func DisplayPrice(s teesheet.Slot) float64 {
	if NineHoleOnly(s.Time) {
		return NineHolePrice
	}
	return s.Price
}

// AvailableLabel renders the "1-N Available" capacity label. Zero-spot slots
// never reach display: the minimum-players rule (MinPlayers >= 1) filters them
// out, so no zero special case exists.
func AvailableLabel(availableSpots int) string {
	return fmt.Sprintf("1-%d Available", availableSpots)
}

// FormatTime12Hour renders an HH:MM 24-hour clock in 12-hour wall-clock form
// with zero-padded minutes, e.g. "16:05" -> "4:05 PM".
func FormatTime12Hour(clock string) string {
	h, m, ok := parseClock(clock)
	if !ok {
		return clock
	}
	ampm := "AM"
	if h >= 12 {
		ampm = "PM"
	}
	h = h % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, m, ampm)
}

// parseClock splits an "HH:MM" string into hour and minute.
func parseClock(clock string) (hour, minute int, ok bool) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return h, m, true
}
