package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"agenda/internal/logging"
	"agenda/internal/wizard"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Agendamentos"

var exportColumns = []string{"Nº", "Data", "Horário", "Profissional", "Serviço", "Observações", "Situação"}

// buildBookingsXLSX renders the client's appointment history as a workbook.
func buildBookingsXLSX(v wizard.View) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, title := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, title)
		_ = f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}

	today := v.Today
	row := 2
	for _, a := range v.History {
		status := "Agendado"
		if a.Date.Before(today) {
			status = "Concluído"
		}
		values := []interface{}{
			a.ID,
			a.Date.Display(),
			a.TimeSlot,
			professionalName(v, a.ProfessionalID),
			serviceName(v, a.ServiceID),
			a.NotesText(),
			status,
		}
		for i, value := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(exportSheet, cell, value)
		}
		row++
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 8)
	_ = f.SetColWidth(exportSheet, "B", "C", 12)
	_ = f.SetColWidth(exportSheet, "D", "E", 25)
	_ = f.SetColWidth(exportSheet, "F", "F", 40)
	_ = f.SetColWidth(exportSheet, "G", "G", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sendExport sends the chat's history as an .xlsx document. A copy is kept
// under the exports directory when one is configured.
func (b *Bot) sendExport(ctx context.Context, c *chat) error {
	v := c.ctrl.Snapshot()
	if v.Step != wizard.StepMyBookings {
		return wizard.ErrIllegalTransition
	}
	if !v.HistoryLoaded || len(v.History) == 0 {
		b.sendMessage(c.id, "Você ainda não tem agendamentos para exportar.")
		return nil
	}

	data, err := buildBookingsXLSX(v)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("agendamentos_%s.xlsx", time.Now().Format("2006-01-02_150405"))
	if dir := b.config.Exports.Path; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("dir", dir).Msg("Failed to create export directory")
		} else if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("%d_%s", c.id, name)), data, 0o600); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("Failed to keep export copy")
		}
	}

	if _, err := b.tg.SendDocument(c.id, name, data); err != nil {
		return fmt.Errorf("send export: %w", err)
	}
	if b.metrics != nil {
		b.metrics.ExportsTotal.Inc()
	}
	logging.FromContext(ctx).Info().Int64("chat_id", c.id).Int("appointments", len(v.History)).Msg("Bookings exported")
	return nil
}
