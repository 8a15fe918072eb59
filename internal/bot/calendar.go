package bot

import (
	"fmt"
	"strconv"
	"time"

	"agenda/internal/models"
	"agenda/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

var weekdayHeader = []string{"Seg", "Ter", "Qua", "Qui", "Sex", "Sáb", "Dom"}

func firstOfMonth(d models.Date) models.Date {
	return models.Date{Year: d.Year, Month: d.Month, Day: 1}
}

func addMonths(d models.Date, n int) models.Date {
	return models.DateOf(time.Date(d.Year, d.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

func daysIn(d models.Date) int {
	return time.Date(d.Year, d.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func monthKey(d models.Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

func monthTitle(d models.Date) string {
	return fmt.Sprintf("%s %d", monthNames[d.Month-1], d.Year)
}

// visibleMonth picks the month to draw: the requested one clamped to the
// bookable range, else the selected date's month, else the current month.
func visibleMonth(v wizard.View, requested models.Date) models.Date {
	first := firstOfMonth(v.Today)
	m := first
	if d, ok := v.Session.Date(); ok {
		m = firstOfMonth(d)
	}
	if !requested.IsZero() {
		m = firstOfMonth(requested)
	}
	if m.Before(first) {
		m = first
	}
	if last := v.Calendar.LastDay(); !last.IsZero() && m.After(firstOfMonth(last)) {
		m = firstOfMonth(last)
	}
	return m
}

// calendarRows draws a Monday-first month grid. Only selectable days carry
// a date: callback.
func calendarRows(v wizard.View, month models.Date) [][]tgbotapi.InlineKeyboardButton {
	noop := func(label string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(label, cbNoop)
	}

	first := firstOfMonth(v.Today)
	last := v.Calendar.LastDay()
	prev, next := noop(" "), noop(" ")
	if month.After(first) {
		prev = tgbotapi.NewInlineKeyboardButtonData("«", prefixMonth+monthKey(addMonths(month, -1)))
	}
	if last.IsZero() || month.Before(firstOfMonth(last)) {
		next = tgbotapi.NewInlineKeyboardButtonData("»", prefixMonth+monthKey(addMonths(month, 1)))
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(prev, noop(monthTitle(month)), next),
	}
	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, name := range weekdayHeader {
		header = append(header, noop(name))
	}
	rows = append(rows, header)

	selected, hasSelected := v.Session.Date()
	// Monday = 0
	offset := (int(month.Weekday()) + 6) % 7
	week := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for i := 0; i < offset; i++ {
		week = append(week, noop(" "))
	}
	for day := 1; day <= daysIn(month); day++ {
		d := models.Date{Year: month.Year, Month: month.Month, Day: day}
		label := strconv.Itoa(day)
		switch {
		case !v.Calendar.Selectable(d):
			week = append(week, noop("·"))
		case hasSelected && d == selected:
			week = append(week, tgbotapi.NewInlineKeyboardButtonData("["+label+"]", prefixDate+d.String()))
		default:
			week = append(week, tgbotapi.NewInlineKeyboardButtonData(label, prefixDate+d.String()))
		}
		if len(week) == 7 {
			rows = append(rows, week)
			week = make([]tgbotapi.InlineKeyboardButton, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, noop(" "))
		}
		rows = append(rows, week)
	}
	return rows
}

// slotRows lists the time slots four per row.
func slotRows(v wizard.View) [][]tgbotapi.InlineKeyboardButton {
	selected, _ := v.Session.TimeSlot()
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, slot := range models.TimeSlots {
		label := slot
		if slot == selected {
			label = "✅ " + slot
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, prefixSlot+slot))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}
