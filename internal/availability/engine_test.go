package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barberclub/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestComputeSlotsFullWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(DefaultWindow(), fixedClock(now))

	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	slots := engine.ComputeSlots(date, 1, nil)

	// 9:00 through 17:00 on half-hour marks, no 17:30.
	require.Len(t, slots, 17)
	assert.Equal(t, "09:00", slots[0].Label())
	assert.Equal(t, "09:30", slots[1].Label())
	assert.Equal(t, "16:30", slots[15].Label())
	assert.Equal(t, "17:00", slots[16].Label())
}

func TestComputeSlotsExcludesBookedMark(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(DefaultWindow(), fixedClock(now))

	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	booked := time.Date(2024, 6, 10, 11, 0, 0, 0, time.UTC)
	appointments := []models.Appointment{
		{ID: 1, BarberID: 7, ScheduledAt: booked, Status: models.StatusConfirmed},
	}

	slots := engine.ComputeSlots(date, 7, appointments)

	require.Len(t, slots, 16)
	assert.False(t, SlotAt(slots, "11:00"))
	// Only the exact mark is blocked; adjacent marks stay open.
	assert.True(t, SlotAt(slots, "10:30"))
	assert.True(t, SlotAt(slots, "11:30"))
}

func TestComputeSlotsIgnoresOtherBarbers(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(DefaultWindow(), fixedClock(now))

	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	booked := time.Date(2024, 6, 10, 11, 0, 0, 0, time.UTC)
	appointments := []models.Appointment{
		{ID: 1, BarberID: 2, ScheduledAt: booked, Status: models.StatusPending},
	}

	slots := engine.ComputeSlots(date, 7, appointments)
	assert.True(t, SlotAt(slots, "11:00"))
}

func TestComputeSlotsCancelledFreesMark(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(DefaultWindow(), fixedClock(now))

	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	booked := time.Date(2024, 6, 10, 11, 0, 0, 0, time.UTC)
	appointments := []models.Appointment{
		{ID: 1, BarberID: 7, ScheduledAt: booked, Status: models.StatusCancelled},
	}

	slots := engine.ComputeSlots(date, 7, appointments)
	assert.True(t, SlotAt(slots, "11:00"))
}

func TestComputeSlotsSameDayCutoff(t *testing.T) {
	// 14:15 on the requested day: 14:00 and earlier are gone, 14:30 stays.
	now := time.Date(2024, 6, 10, 14, 15, 0, 0, time.UTC)
	engine := NewEngine(DefaultWindow(), fixedClock(now))

	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	slots := engine.ComputeSlots(date, 1, nil)

	require.NotEmpty(t, slots)
	assert.Equal(t, "14:30", slots[0].Label())
	for _, s := range slots {
		assert.True(t, s.Time.After(now), "slot %s not after now", s.Label())
	}
}

func TestComputeSlotsSameDayExactMarkExcluded(t *testing.T) {
	// At exactly 14:00 the 14:00 mark is not bookable (strictly after rule).
	now := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)
	engine := NewEngine(DefaultWindow(), fixedClock(now))

	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	slots := engine.ComputeSlots(date, 1, nil)

	assert.False(t, SlotAt(slots, "14:00"))
	assert.True(t, SlotAt(slots, "14:30"))
}

func TestComputeSlotsFutureDateIgnoresClock(t *testing.T) {
	now := time.Date(2024, 6, 10, 23, 59, 0, 0, time.UTC)
	engine := NewEngine(DefaultWindow(), fixedClock(now))

	date := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	slots := engine.ComputeSlots(date, 1, nil)
	assert.Len(t, slots, 17)
}

func TestComputeSlotsFullyBookedDay(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(DefaultWindow(), fixedClock(now))

	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	var appointments []models.Appointment
	for h := 9; h <= 17; h++ {
		appointments = append(appointments, models.Appointment{
			BarberID:    7,
			ScheduledAt: time.Date(2024, 6, 10, h, 0, 0, 0, time.UTC),
			Status:      models.StatusConfirmed,
		})
		if h != 17 {
			appointments = append(appointments, models.Appointment{
				BarberID:    7,
				ScheduledAt: time.Date(2024, 6, 10, h, 30, 0, 0, time.UTC),
				Status:      models.StatusPending,
			})
		}
	}

	slots := engine.ComputeSlots(date, 7, appointments)
	assert.Empty(t, slots)
}

func TestComputeSlotsUnselectedBarber(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(DefaultWindow(), fixedClock(now))

	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	booked := time.Date(2024, 6, 10, 11, 0, 0, 0, time.UTC)
	appointments := []models.Appointment{
		{ID: 1, BarberID: 7, ScheduledAt: booked, Status: models.StatusConfirmed},
	}

	// No barber selected: the full window is shown, occupancy not applied.
	slots := engine.ComputeSlots(date, 0, appointments)
	assert.Len(t, slots, 17)
}

func TestComputeSlotsIdempotent(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(DefaultWindow(), fixedClock(now))

	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	appointments := []models.Appointment{
		{BarberID: 7, ScheduledAt: time.Date(2024, 6, 10, 10, 30, 0, 0, time.UTC), Status: models.StatusPending},
	}

	first := engine.ComputeSlots(date, 7, appointments)
	second := engine.ComputeSlots(date, 7, appointments)
	assert.Equal(t, Labels(first), Labels(second))
}

func TestComputeSlotsCustomWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(Window{OpenHour: 10, CloseHour: 12, SlotDuration: 30}, fixedClock(now))

	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	slots := engine.ComputeSlots(date, 1, nil)

	assert.Equal(t, []string{"10:00", "10:30", "11:00", "11:30", "12:00"}, Labels(slots))
}

func TestParseSlot(t *testing.T) {
	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	mark, err := ParseSlot(date, "09:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC), mark)

	_, err = ParseSlot(date, "nonsense")
	assert.Error(t, err)
}
