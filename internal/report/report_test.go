package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"barberclub/internal/models"
)

func sampleAppointments() []models.Appointment {
	at := func(day, hour int) time.Time {
		return time.Date(2024, 6, day, hour, 0, 0, 0, time.Local)
	}
	return []models.Appointment{
		{ID: 2, UserID: 42, ServiceName: "Corte", BarberName: "Carlos",
			ScheduledAt: at(12, 10), Status: models.StatusPending},
		{ID: 1, UserID: 42, ServiceName: "Barba", BarberName: "Carlos",
			ScheduledAt: at(10, 9), Status: models.StatusPending},
		{ID: 3, UserID: 77, ServiceName: "Corte", BarberName: "Jorge",
			ScheduledAt: at(11, 14), Status: models.StatusConfirmed},
	}
}

func TestBuildAppointments(t *testing.T) {
	var buf bytes.Buffer
	names := map[int64]string{42: "Ana"}
	require.NoError(t, BuildAppointments(sampleAppointments(), names, &buf))

	file, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer file.Close()

	assert.ElementsMatch(t, []string{
		models.StatusPending, models.StatusConfirmed,
		models.StatusCompleted, models.StatusCancelled,
	}, file.GetSheetList())

	rows, err := file.GetRows(models.StatusPending)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Cliente", rows[0][1])

	// Ordered by scheduled time: appointment 1 before appointment 2.
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "Ana", rows[1][1])
	assert.Equal(t, "2024-06-10", rows[1][4])
	assert.Equal(t, "09:00", rows[1][5])
	assert.Equal(t, "2", rows[2][0])

	confirmed, err := file.GetRows(models.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 2)
	// User 77 has no known name and falls back to the numeric ID.
	assert.Equal(t, "#77", confirmed[1][1])
}

func TestBuildAppointmentsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, BuildAppointments(nil, nil, &buf))

	file, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows(models.StatusPending)
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}

func TestUnknownStatusSkipped(t *testing.T) {
	wb, err := NewWorkbook()
	require.NoError(t, err)
	defer wb.Close()

	odd := models.Appointment{ID: 9, Status: "Remarcado", ScheduledAt: time.Now()}
	assert.NoError(t, wb.Add(odd, "x"))
}
