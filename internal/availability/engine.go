// Package availability computes bookable time slots for a barber on a date.
package availability

import (
	"fmt"
	"sort"
	"time"

	"barberclub/internal/models"
)

// Window describes the daily service window. Slots are generated on
// half-hour marks from OpenHour:00 through CloseHour:00; the closing
// hour gets no trailing :30 mark.
type Window struct {
	OpenHour     int
	CloseHour    int
	SlotDuration int // minutes
}

// DefaultWindow is the standard shop day, 9:00 through 17:00.
func DefaultWindow() Window {
	return Window{OpenHour: 9, CloseHour: 17, SlotDuration: 30}
}

// Slot is a candidate time mark on a given date. A derived value, never
// persisted; recomputed on every date or barber change.
type Slot struct {
	Time time.Time
}

// Label formats the slot for display, e.g. "09:30".
func (s Slot) Label() string {
	return s.Time.Format("15:04")
}

// Engine generates available slots. It is a pure function of its inputs
// except for the same-day cutoff, which reads the injected clock.
type Engine struct {
	window Window
	now    func() time.Time
}

// NewEngine creates an engine over the given window. now may be nil, in
// which case time.Now is used.
func NewEngine(window Window, now func() time.Time) *Engine {
	if window.SlotDuration <= 0 {
		window.SlotDuration = 30
	}
	if window.CloseHour <= window.OpenHour {
		window = DefaultWindow()
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{window: window, now: now}
}

// ComputeSlots returns the ordered bookable marks for (date, barber),
// given every appointment currently known to the client. Filtering by
// barber happens here. An empty result is a valid "fully booked" state.
//
// A mark survives when:
//   - no active appointment for the same barber equals it exactly, and
//   - if date is today, the mark is strictly after the current time.
//
// Duration-aware blocking is deliberately absent: a booked mark blocks
// only itself, never the following marks.
func (e *Engine) ComputeSlots(date time.Time, barberID int64, appointments []models.Appointment) []Slot {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	step := time.Duration(e.window.SlotDuration) * time.Minute

	open := day.Add(time.Duration(e.window.OpenHour) * time.Hour)
	close := day.Add(time.Duration(e.window.CloseHour) * time.Hour)

	now := e.now()
	sameDay := day.Year() == now.Year() && day.YearDay() == now.YearDay()

	slots := make([]Slot, 0, int(close.Sub(open)/step)+1)
	// The loop condition keeps the closing hour's :00 mark and drops the
	// trailing :30 past it.
	for mark := open; !mark.After(close); mark = mark.Add(step) {
		if occupied(appointments, barberID, mark) {
			continue
		}
		if sameDay && !mark.After(now) {
			continue
		}
		slots = append(slots, Slot{Time: mark})
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Time.Before(slots[j].Time) })
	return slots
}

// SlotAt reports whether the given label ("15:04") is among the slots.
func SlotAt(slots []Slot, label string) bool {
	for _, s := range slots {
		if s.Label() == label {
			return true
		}
	}
	return false
}

// Labels converts slots to their display labels.
func Labels(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Label()
	}
	return out
}

// ParseSlot resolves a "15:04" label on a date into the concrete mark.
func ParseSlot(date time.Time, label string) (time.Time, error) {
	t, err := time.ParseInLocation("15:04", label, date.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", label, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

func occupied(appointments []models.Appointment, barberID int64, mark time.Time) bool {
	if barberID == 0 {
		return false
	}
	for i := range appointments {
		a := &appointments[i]
		if a.IsActive() && a.OccupiesSlot(barberID, mark) {
			return true
		}
	}
	return false
}
