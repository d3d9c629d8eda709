// Package report renders appointment exports for the shop owner panel.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"barberclub/internal/models"
)

// sheetOrder fixes the tab order of the workbook. One sheet per status,
// pending first because that is what owners review.
var sheetOrder = []string{
	models.StatusPending,
	models.StatusConfirmed,
	models.StatusCompleted,
	models.StatusCancelled,
}

var columns = []string{"ID", "Cliente", "Servico", "Barbeiro", "Data", "Horario", "Status"}

// Workbook accumulates appointment rows into an xlsx file.
type Workbook struct {
	file       *excelize.File
	currentRow map[string]int
}

// NewWorkbook creates an empty workbook with one sheet per status.
func NewWorkbook() (*Workbook, error) {
	w := &Workbook{
		file:       excelize.NewFile(),
		currentRow: make(map[string]int),
	}
	for i, name := range sheetOrder {
		sheet := sheetName(name)
		if i == 0 {
			w.file.SetSheetName("Sheet1", sheet)
		} else {
			if _, err := w.file.NewSheet(sheet); err != nil {
				return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
			}
		}
		if err := w.writeHeader(sheet); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func sheetName(status string) string {
	// Excel caps sheet names at 31 chars.
	if len(status) > 31 {
		return status[:31]
	}
	return status
}

func (w *Workbook) writeHeader(sheet string) error {
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = w.file.SetCellStyle(sheet, startCell, endCell, style)
	}

	w.currentRow[sheet] = 2
	return nil
}

// Add appends one appointment to the sheet matching its status.
// Unknown statuses are skipped rather than failing the export.
func (w *Workbook) Add(a models.Appointment, userName string) error {
	sheet := sheetName(a.Status)
	rowNum, ok := w.currentRow[sheet]
	if !ok {
		return nil
	}

	row := []any{
		a.ID,
		userName,
		a.ServiceName,
		a.BarberName,
		a.ScheduledAt.Format("2006-01-02"),
		a.ScheduledAt.Format("15:04"),
		a.Status,
	}
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(sheet, cell, val); err != nil {
			return err
		}
	}
	w.currentRow[sheet] = rowNum + 1
	return nil
}

// Write serializes the workbook to wr.
func (w *Workbook) Write(wr io.Writer) error {
	return w.file.Write(wr)
}

// Close releases the underlying file resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// BuildAppointments renders the full appointment export, rows ordered
// by scheduled time within each status sheet. userNames maps user IDs
// to display names; missing entries fall back to the numeric ID.
func BuildAppointments(appointments []models.Appointment, userNames map[int64]string, wr io.Writer) error {
	wb, err := NewWorkbook()
	if err != nil {
		return err
	}
	defer wb.Close()

	ordered := make([]models.Appointment, len(appointments))
	copy(ordered, appointments)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ScheduledAt.Before(ordered[j].ScheduledAt)
	})

	for _, a := range ordered {
		name, ok := userNames[a.UserID]
		if !ok {
			name = fmt.Sprintf("#%d", a.UserID)
		}
		if err := wb.Add(a, name); err != nil {
			return fmt.Errorf("export appointment %d: %w", a.ID, err)
		}
	}
	return wb.Write(wr)
}
