package bot

import (
	"context"
	"fmt"
	"strings"

	"agenda/internal/logging"
	"agenda/internal/models"
	"agenda/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// render shows the chat's current screen, editing editID in place when set.
func (b *Bot) render(ctx context.Context, c *chat, editID int) {
	text, keyboard := screen(c.ctrl.Snapshot(), c.snapshotUI())

	if editID != 0 {
		_, err := b.tg.EditMessage(c.id, editID, text, keyboard)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return
		}
		logging.FromContext(ctx).Debug().Err(err).Int64("chat_id", c.id).Msg("Edit failed, sending new message")
	}

	var err error
	if keyboard != nil {
		_, err = b.tg.SendWithInlineKeyboard(c.id, text, *keyboard)
	} else {
		_, err = b.tg.SendMessage(c.id, text)
	}
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Int64("chat_id", c.id).Msg("Failed to render screen")
	}
}

func screen(v wizard.View, ui uiState) (string, *tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString(header(v))

	var rows [][]tgbotapi.InlineKeyboardButton
	switch v.Step {
	case wizard.StepWelcome:
		rows = welcomeScreen(&sb)
	case wizard.StepLogin:
		rows = loginScreen(&sb, ui.form)
	case wizard.StepProfessionals:
		rows = professionalsScreen(&sb, v)
	case wizard.StepServices:
		rows = servicesScreen(&sb, v)
	case wizard.StepDateTime:
		rows = dateTimeScreen(&sb, v, ui.month)
	case wizard.StepNotes:
		rows = notesScreen(&sb, v, ui.notes)
	case wizard.StepConfirmation:
		rows = confirmationScreen(&sb, v)
	case wizard.StepMyBookings:
		rows = bookingsScreen(&sb, v)
	}

	text := strings.TrimRight(sb.String(), "\n")
	if len(rows) == 0 {
		return text, nil
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return text, &keyboard
}

// header draws the progress bar and, once signed in, the greeting.
func header(v wizard.View) string {
	var sb strings.Builder
	if v.Step != wizard.StepWelcome {
		filled := v.Progress() / 20
		fmt.Fprintf(&sb, "%s%s %d%%\n", strings.Repeat("▰", filled), strings.Repeat("▱", 5-filled), v.Progress())
	}
	if v.Authenticated() {
		fmt.Fprintf(&sb, "Olá, %s!\n", v.Identity.DisplayName())
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}

func button(label, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, data)
}

func backRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(button("⬅️ Voltar", cbBack))
}

func welcomeScreen(sb *strings.Builder) [][]tgbotapi.InlineKeyboardButton {
	sb.WriteString("✨ Experiência Única\n\n")
	sb.WriteString("👥 Profissionais Qualificados: equipe especializada e avaliada\n")
	sb.WriteString("🕒 Horários Flexíveis: escolha o melhor horário para você\n")
	sb.WriteString("💬 Atendimento personalizado\n")
	return [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(button("📅 Agendar horário", cbStart)),
	}
}

func loginScreen(sb *strings.Builder, form *loginForm) [][]tgbotapi.InlineKeyboardButton {
	sb.WriteString("🔐 Entre ou Cadastre-se\n")
	sb.WriteString("Para continuar com seu agendamento\n")
	if form != nil && !form.done() {
		if form.signUp {
			sb.WriteString("\n📝 Cadastro\n")
		} else {
			sb.WriteString("\n🔑 Entrar\n")
		}
		sb.WriteString("➡️ " + form.current().prompt + "\n")
	}
	return [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(button("🔑 Entrar", cbSignIn), button("📝 Criar conta", cbSignUp)),
		backRow(),
	}
}

func professionalsScreen(sb *strings.Builder, v wizard.View) [][]tgbotapi.InlineKeyboardButton {
	sb.WriteString("👤 Escolha seu Profissional\n")
	sb.WriteString("Selecione o profissional de sua preferência\n")

	if !v.ProfessionalsLoaded {
		sb.WriteString("\n⚠️ Não foi possível carregar os profissionais.\n")
		return [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(button("🔄 Tentar novamente", cbReload)),
			backRow(),
		}
	}
	if len(v.Professionals) == 0 {
		sb.WriteString("\nNenhum profissional disponível no momento.\n")
	}

	selected, hasSelected := v.Session.Professional()
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range v.Professionals {
		label := p.Name
		if p.Specialty != "" {
			label += " · " + p.Specialty
		}
		if hasSelected && selected.ID == p.ID {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(label, fmt.Sprintf("%s%d", prefixPro, p.ID))))
	}
	return append(rows, backRow())
}

func servicesScreen(sb *strings.Builder, v wizard.View) [][]tgbotapi.InlineKeyboardButton {
	p, _ := v.Session.Professional()
	sb.WriteString("💇 Escolha o Serviço\n")
	fmt.Fprintf(sb, "Profissional: %s\n", p.Name)

	if !v.ServicesLoaded {
		sb.WriteString("\n⚠️ Não foi possível carregar os serviços.\n")
		return [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(button("🔄 Tentar novamente", cbReload)),
			backRow(),
		}
	}
	if len(v.Services) == 0 {
		sb.WriteString("\nEste profissional não tem serviços disponíveis.\n")
	}

	selected, hasSelected := v.Session.Service()
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range v.Services {
		label := fmt.Sprintf("%s · %s · %s", s.Name, s.DurationLabel(), s.PriceLabel())
		if hasSelected && selected.ID == s.ID {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(label, fmt.Sprintf("%s%d", prefixSvc, s.ID))))
	}
	return append(rows, backRow())
}

func dateTimeScreen(sb *strings.Builder, v wizard.View, requested models.Date) [][]tgbotapi.InlineKeyboardButton {
	svc, _ := v.Session.Service()
	sb.WriteString("📅 Escolha Data e Horário\n")
	fmt.Fprintf(sb, "Serviço: %s (%s)\n", svc.Name, svc.DurationLabel())

	rows := calendarRows(v, visibleMonth(v, requested))
	if d, ok := v.Session.Date(); ok {
		fmt.Fprintf(sb, "Data: %s\n", d.Display())
		sb.WriteString("\n🕒 Horários Disponíveis\n")
		rows = append(rows, slotRows(v)...)
	} else {
		sb.WriteString("\nSelecione a Data\n")
	}
	return append(rows, backRow())
}

func writeSummary(sb *strings.Builder, s wizard.Session) {
	p, _ := s.Professional()
	svc, _ := s.Service()
	d, _ := s.Date()
	slot, _ := s.TimeSlot()
	fmt.Fprintf(sb, "Profissional: %s\n", p.Name)
	fmt.Fprintf(sb, "Serviço: %s\n", svc.Name)
	fmt.Fprintf(sb, "Preço: %s\n", svc.PriceLabel())
	fmt.Fprintf(sb, "Data: %s\n", d.Display())
	fmt.Fprintf(sb, "Horário: %s\n", slot)
}

func notesScreen(sb *strings.Builder, v wizard.View, notes string) [][]tgbotapi.InlineKeyboardButton {
	sb.WriteString("📋 Detalhes do Agendamento\n\n")
	writeSummary(sb, v.Session)
	if notes != "" {
		fmt.Fprintf(sb, "Observações: %s\n", notes)
	}

	if v.Submitting {
		sb.WriteString("\n⏳ Enviando seu agendamento...\n")
		return nil
	}
	sb.WriteString("\n✏️ Alguma informação adicional? (Opcional)\nEnvie uma mensagem com suas observações.\n")
	return [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(button("✅ Confirmar agendamento", cbSubmit)),
		tgbotapi.NewInlineKeyboardRow(button("⏭ Pular observações", cbNotesSkip)),
		backRow(),
	}
}

func confirmationScreen(sb *strings.Builder, v wizard.View) [][]tgbotapi.InlineKeyboardButton {
	sb.WriteString("🎉 Agendamento Confirmado!\n")
	sb.WriteString("Seu horário foi marcado com sucesso\n\n")
	if v.Appointment != nil {
		fmt.Fprintf(sb, "Nº %d\n", v.Appointment.ID)
	}
	writeSummary(sb, v.Session)
	if notes, ok := v.Session.Notes(); ok {
		fmt.Fprintf(sb, "Observações: %s\n", notes)
	}
	if v.Identity != nil && v.Identity.Phone != "" {
		fmt.Fprintf(sb, "Contato: %s\n", formatPhone(v.Identity.Phone))
	}
	return [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(button("📋 Meus Agendamentos", cbBookings)),
		tgbotapi.NewInlineKeyboardRow(button("➕ Novo agendamento", cbRestart)),
	}
}

func bookingsScreen(sb *strings.Builder, v wizard.View) [][]tgbotapi.InlineKeyboardButton {
	sb.WriteString("📋 Meus Agendamentos\n")
	sb.WriteString("Gerencie seus horários marcados\n")

	if !v.HistoryLoaded {
		sb.WriteString("\n⚠️ Não foi possível carregar seus agendamentos.\n")
		return [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(button("🔄 Tentar novamente", cbReload)),
			tgbotapi.NewInlineKeyboardRow(button("➕ Novo agendamento", cbRestart)),
		}
	}

	sb.WriteString("\nPróximos Agendamentos\n")
	writeAppointments(sb, v, v.Upcoming())
	sb.WriteString("\nHistórico\n")
	writeAppointments(sb, v, v.Past())

	rows := [][]tgbotapi.InlineKeyboardButton{}
	if len(v.History) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("📥 Exportar planilha", cbExport)))
	}
	return append(rows, tgbotapi.NewInlineKeyboardRow(button("➕ Novo agendamento", cbRestart)))
}

func writeAppointments(sb *strings.Builder, v wizard.View, list []models.Appointment) {
	if len(list) == 0 {
		sb.WriteString("• nenhum\n")
		return
	}
	for _, a := range list {
		fmt.Fprintf(sb, "• %s %s · %s com %s\n", a.Date.Display(), a.TimeSlot, serviceName(v, a.ServiceID), professionalName(v, a.ProfessionalID))
	}
}

func professionalName(v wizard.View, id int64) string {
	if p, ok := v.ProfessionalByID(id); ok {
		return p.Name
	}
	return fmt.Sprintf("profissional #%d", id)
}

func serviceName(v wizard.View, id int64) string {
	if s, ok := v.ServiceByID(id); ok {
		return s.Name
	}
	if s, ok := v.Session.Service(); ok && s.ID == id {
		return s.Name
	}
	return fmt.Sprintf("serviço #%d", id)
}
