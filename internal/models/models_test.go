package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppointment_Helpers(t *testing.T) {
	at := time.Date(2024, 6, 10, 11, 0, 0, 0, time.Local)
	appt := &Appointment{BarberID: 7, ScheduledAt: at, Status: StatusPending}

	t.Run("IsPending", func(t *testing.T) {
		assert.True(t, appt.IsPending())
		assert.False(t, (&Appointment{Status: StatusConfirmed}).IsPending())
	})

	t.Run("IsActive", func(t *testing.T) {
		assert.True(t, appt.IsActive())
		assert.True(t, (&Appointment{Status: StatusConfirmed}).IsActive())
		assert.True(t, (&Appointment{Status: StatusCompleted}).IsActive())
		assert.False(t, (&Appointment{Status: StatusCancelled}).IsActive())
	})

	t.Run("OccupiesSlot", func(t *testing.T) {
		assert.True(t, appt.OccupiesSlot(7, at))
		assert.False(t, appt.OccupiesSlot(8, at))
		assert.False(t, appt.OccupiesSlot(7, at.Add(30*time.Minute)))

		// Same instant in another zone still occupies the mark.
		utc := at.UTC()
		assert.True(t, appt.OccupiesSlot(7, utc))
	})
}

func TestBarbershop_HasCoordinates(t *testing.T) {
	lat, lng := -23.5505, -46.6333

	shop := &Barbershop{Latitude: &lat, Longitude: &lng}
	assert.True(t, shop.HasCoordinates())

	assert.False(t, (&Barbershop{Latitude: &lat}).HasCoordinates())
	assert.False(t, (&Barbershop{}).HasCoordinates())
}
