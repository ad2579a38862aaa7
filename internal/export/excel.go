// Package export renders admin reports as Excel workbooks.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"barberia/internal/backend"
)

var appointmentColumns = []string{"ID", "Cliente", "Teléfono", "Servicios", "Fecha", "Hora"}

// WriteAppointments writes the appointment list as a single-sheet workbook.
func WriteAppointments(w io.Writer, appts []backend.Appointment) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Citas"
	f.SetSheetName("Sheet1", sheet)

	for i, col := range appointmentColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for row, appt := range appts {
		values := []any{
			appt.ID,
			appt.Name,
			appt.Phone,
			strings.Join(appt.Services, ", "),
			appt.Date,
			appt.Time,
		}
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row+2, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
