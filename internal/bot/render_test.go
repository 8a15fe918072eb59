package bot

import (
	"testing"
	"time"

	"agenda/internal/models"
	"agenda/internal/wizard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewAt(step wizard.Step) wizard.View {
	cal := testCalendar()
	return wizard.View{Step: step, Calendar: cal, Today: cal.Today()}
}

func TestScreen_WelcomeHasNoProgress(t *testing.T) {
	text, kb := screen(viewAt(wizard.StepWelcome), uiState{})
	assert.NotContains(t, text, "%")
	assert.Equal(t, []string{cbStart}, buttons(kb))
}

func TestScreen_ProgressHeader(t *testing.T) {
	v := viewAt(wizard.StepServices)
	v.Session = wizard.Session{}.WithProfessional(testCatalog.Professionals[0])
	v.ServicesLoaded = true
	text, _ := screen(v, uiState{})
	assert.Contains(t, text, "▰▰▰▱▱ 60%")
	assert.Contains(t, text, "Profissional: Ana Souza")
}

func TestScreen_FailedLoadsOfferReload(t *testing.T) {
	for _, step := range []wizard.Step{wizard.StepProfessionals, wizard.StepServices, wizard.StepMyBookings} {
		_, kb := screen(viewAt(step), uiState{})
		assert.Contains(t, buttons(kb), cbReload, step.String())
	}
}

func TestScreen_LoginShowsFormPrompt(t *testing.T) {
	form := &loginForm{signUp: true, next: 2, values: map[string]string{}}
	text, kb := screen(viewAt(wizard.StepLogin), uiState{form: form})
	assert.Contains(t, text, "Digite seu e-mail:")
	assert.Equal(t, []string{cbSignIn, cbSignUp, cbBack}, buttons(kb))
}

func TestScreen_SubmittingHidesButtons(t *testing.T) {
	v := viewAt(wizard.StepNotes)
	v.Submitting = true
	text, kb := screen(v, uiState{notes: "sem pressa"})
	assert.Nil(t, kb)
	assert.Contains(t, text, "Enviando")
	assert.Contains(t, text, "Observações: sem pressa")
}

func TestScreen_BookingsSplitsUpcomingAndPast(t *testing.T) {
	v := viewAt(wizard.StepMyBookings)
	v.HistoryLoaded = true
	v.Professionals = testCatalog.Professionals
	v.Services = testCatalog.Services
	v.History = []models.Appointment{
		{ID: 2, ProfessionalID: 1, ServiceID: 11, Date: models.Date{Year: 2025, Month: time.March, Day: 10}, TimeSlot: "09:00"},
		{ID: 1, ProfessionalID: 2, ServiceID: 21, Date: models.Date{Year: 2025, Month: time.February, Day: 10}, TimeSlot: "14:00"},
	}

	text, kb := screen(v, uiState{})
	assert.Regexp(t, `(?s)Próximos Agendamentos\n• 10/03/2025 09:00 · Corte com Ana Souza\n\nHistórico\n• 10/02/2025 14:00 · Barba com Bruno Lima`, text)
	assert.Equal(t, []string{cbExport, cbRestart}, buttons(kb))
}

func TestScreen_EmptyBookings(t *testing.T) {
	v := viewAt(wizard.StepMyBookings)
	v.HistoryLoaded = true
	text, kb := screen(v, uiState{})
	assert.Contains(t, text, "nenhum")
	assert.Equal(t, []string{cbRestart}, buttons(kb))
}

func TestCalendarRows(t *testing.T) {
	v := viewAt(wizard.StepDateTime)
	rows := calendarRows(v, visibleMonth(v, models.Date{}))
	require.GreaterOrEqual(t, len(rows), 6)

	assert.Contains(t, rows[0][1].Text, "Março 2025")
	// first month: no way back, forward enabled
	assert.Equal(t, cbNoop, *rows[0][0].CallbackData)
	assert.Equal(t, "cal:2025-04", *rows[0][2].CallbackData)

	// 2025-03-01 is a Saturday: five blanks before it
	week := rows[2]
	require.Len(t, week, 7)
	assert.Equal(t, "1", week[5].Text)
	assert.Equal(t, "date:2025-03-01", *week[5].CallbackData)
	assert.Equal(t, "·", week[6].Text, "sunday is closed")
	for _, row := range rows[2:] {
		assert.Len(t, row, 7)
	}
}

func TestVisibleMonth_Clamps(t *testing.T) {
	v := viewAt(wizard.StepDateTime)
	march := models.Date{Year: 2025, Month: time.March, Day: 1}

	assert.Equal(t, march, visibleMonth(v, models.Date{Year: 2024, Month: time.December, Day: 1}))
	// 90 days from 2025-03-01 ends in May
	assert.Equal(t, models.Date{Year: 2025, Month: time.May, Day: 1}, visibleMonth(v, models.Date{Year: 2026, Month: time.January, Day: 1}))

	last := calendarRows(v, models.Date{Year: 2025, Month: time.May, Day: 1})
	assert.Equal(t, cbNoop, *last[0][2].CallbackData)
	assert.Equal(t, "cal:2025-04", *last[0][0].CallbackData)
}

func TestVisibleMonth_Unbounded(t *testing.T) {
	v := viewAt(wizard.StepDateTime)
	v.Calendar.MaxAdvanceDays = 0
	far := models.Date{Year: 2026, Month: time.January, Day: 1}
	assert.Equal(t, far, visibleMonth(v, far))

	rows := calendarRows(v, far)
	assert.Equal(t, "cal:2026-02", *rows[0][2].CallbackData)
}

func TestSlotRows_MarksSelection(t *testing.T) {
	v := viewAt(wizard.StepDateTime)
	s, err := wizard.Session{}.WithDate(models.Date{Year: 2025, Month: time.March, Day: 3}).WithTimeSlot("14:00")
	require.NoError(t, err)
	v.Session = s

	rows := slotRows(v)
	require.Len(t, rows, 4)
	assert.Len(t, rows[0], 4)
	assert.Equal(t, "✅ 14:00", rows[1][2].Text)
}
