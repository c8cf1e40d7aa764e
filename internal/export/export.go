// Package export renders reservation data into Excel workbooks for the
// salon staff.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"belleza/internal/config"
	"belleza/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const agendaSheetName = "Agenda"

type Exporter struct {
	config config.ExportConfig
	logger *zerolog.Logger
}

func NewExporter(cfg config.ExportConfig, logger *zerolog.Logger) *Exporter {
	return &Exporter{config: cfg, logger: logger}
}

// AgendaWorkbook writes a date-by-time grid of reservations and returns
// the path of the created file.
func (e *Exporter) AgendaWorkbook(startDate, endDate time.Time, daily map[string][]*models.Reservation) (string, error) {
	if err := os.MkdirAll(e.config.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(agendaSheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(agendaSheetName, "A1", fmt.Sprintf("Agenda: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	dateHeaders := writeDateHeaders(f, startDate, endDate)
	times := collectStartTimes(daily)
	writeTimeHeaders(f, times)
	e.writeReservationCells(f, daily, times, dateHeaders)

	_ = f.SetColWidth(agendaSheetName, "A", "A", 10)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(agendaSheetName, string(i), string(i), 28)
	}

	lastCol := lastColumn(len(dateHeaders) + 1)
	_ = f.MergeCell(agendaSheetName, "A1", lastCol+"1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(agendaSheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("agenda_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.config.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}

func writeDateHeaders(f *excelize.File, startDate, endDate time.Time) map[string]int {
	col := 2
	currentDate := startDate
	dateHeaders := make(map[string]int)

	for !currentDate.After(endDate) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(agendaSheetName, cell, currentDate.Format("02.01"))
		dateHeaders[currentDate.Format("2006-01-02")] = col

		style, _ := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		_ = f.SetCellStyle(agendaSheetName, cell, cell, style)

		col++
		currentDate = currentDate.AddDate(0, 0, 1)
	}
	return dateHeaders
}

// collectStartTimes gathers the distinct start minutes across the period
// so the grid only carries rows that hold at least one reservation.
func collectStartTimes(daily map[string][]*models.Reservation) []int {
	seen := make(map[int]bool)
	for _, reservations := range daily {
		for _, r := range reservations {
			if r.Status == models.StatusCancelled {
				continue
			}
			seen[r.StartMinute] = true
		}
	}

	times := make([]int, 0, len(seen))
	for t := range seen {
		times = append(times, t)
	}
	sort.Ints(times)
	return times
}

func writeTimeHeaders(f *excelize.File, times []int) {
	row := 3
	for _, t := range times {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(agendaSheetName, cell, models.FormatClock(t))

		style, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
			Font: &excelize.Font{Bold: true},
		})
		_ = f.SetCellStyle(agendaSheetName, cell, cell, style)

		row++
	}
}

func (e *Exporter) writeReservationCells(
	f *excelize.File,
	daily map[string][]*models.Reservation,
	times []int,
	dateHeaders map[string]int,
) {
	timeRow := make(map[int]int, len(times))
	for i, t := range times {
		timeRow[t] = i + 3
	}

	for dateKey, reservations := range daily {
		col, exists := dateHeaders[dateKey]
		if !exists {
			continue
		}

		for _, r := range reservations {
			if r.Status == models.StatusCancelled {
				continue
			}
			row, ok := timeRow[r.StartMinute]
			if !ok {
				continue
			}

			cell, _ := excelize.CoordinatesToCellName(col, row)
			existing, _ := f.GetCellValue(agendaSheetName, cell)

			cellValue := existing
			cellValue += fmt.Sprintf("%s %s: %s\n", statusIcon(r.Status), r.ClientID, r.ServiceName)
			if r.Comment != "" {
				cellValue += fmt.Sprintf("   💬 %s\n", r.Comment)
			}
			_ = f.SetCellValue(agendaSheetName, cell, cellValue)

			styleID, err := cellStyle(f, r.Status)
			if err == nil {
				_ = f.SetCellStyle(agendaSheetName, cell, cell, styleID)
			}
		}
	}
}

func statusIcon(status string) string {
	switch status {
	case models.StatusConfirmed, models.StatusCompleted:
		return "✅"
	case models.StatusPending:
		return "⏳"
	case models.StatusCancelled:
		return "❌"
	default:
		return "❓"
	}
}

// cellStyle returns the fill for a reservation cell: yellow while a
// confirmation is pending, green once confirmed or completed.
func cellStyle(f *excelize.File, status string) (int, error) {
	color := "#FFFFFF"
	switch status {
	case models.StatusConfirmed, models.StatusCompleted:
		color = "#C6EFCE"
	case models.StatusPending:
		color = "#FFEB9C"
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}

// lastColumn возвращает последнюю колонку для объединения ячеек
func lastColumn(colCount int) string {
	if colCount <= 26 {
		return string(rune('A' + colCount - 1))
	}

	firstChar := string(rune('A' + (colCount-1)/26 - 1))
	secondChar := string(rune('A' + (colCount-1)%26))
	return firstChar + secondChar
}

// ReservationsWorkbook writes a flat listing of reservations and
// returns the path of the created file.
func (e *Exporter) ReservationsWorkbook(reservations []*models.Reservation) (string, error) {
	if err := os.MkdirAll(e.config.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Reservas"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "Código", "Cliente", "Empleado", "Servicio",
		"Fecha", "Hora", "Estado", "Comentario", "Creada", "Actualizada",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
	}

	for i, r := range reservations {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.ID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.PublicID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.ClientID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.EmployeeID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.ServiceName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), r.Date.Format("02.01.2006"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), r.StartClock())
		_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), r.Status)
		_ = f.SetCellValue(sheet, fmt.Sprintf("I%d", row), r.Comment)
		_ = f.SetCellValue(sheet, fmt.Sprintf("J%d", row), r.CreatedAt.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("K%d", row), r.UpdatedAt.Format("02.01.2006 15:04"))
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 38)
	_ = f.SetColWidth(sheet, "C", "E", 20)
	_ = f.SetColWidth(sheet, "F", "H", 12)
	_ = f.SetColWidth(sheet, "I", "I", 30)
	_ = f.SetColWidth(sheet, "J", "K", 18)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("reservas_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.config.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}
