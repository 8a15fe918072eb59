package bot

import (
	"errors"

	"agenda/internal/auth"
	"agenda/internal/wizard"
)

const defaultErrorMessage = "❌ Ocorreu um erro ao processar sua solicitação. Tente novamente em instantes."

// userMessage maps a wizard or auth failure to the text shown in the chat.
func userMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "⚠️ E-mail ou senha incorretos."
	case errors.Is(err, auth.ErrEmailTaken):
		return "⚠️ Este e-mail já está cadastrado. Use a opção Entrar."
	case errors.Is(err, auth.ErrRateLimited):
		return "⏳ Muitas tentativas de login. Aguarde alguns minutos e tente novamente."
	case errors.Is(err, auth.ErrSessionExpired):
		return "🔐 Sua sessão expirou. Entre novamente para continuar."
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, wizard.ErrInvalidInput):
		return "⚠️ Dados inválidos. Verifique as informações e tente novamente."
	case errors.Is(err, wizard.ErrNotAuthenticated):
		return "🔐 Entre na sua conta para continuar."
	case errors.Is(err, wizard.ErrSubmissionInFlight):
		return "⏳ Seu agendamento já está sendo enviado."
	case errors.Is(err, wizard.ErrIncompleteSession):
		return "⚠️ Escolha profissional, serviço, data e horário antes de confirmar."
	case errors.Is(err, wizard.ErrDateNotSelectable):
		return "📅 Esta data não está disponível. Escolha outro dia."
	case errors.Is(err, wizard.ErrInvalidTimeSlot):
		return "🕒 Horário indisponível. Escolha outro horário."
	case errors.Is(err, wizard.ErrUnknownProfessional), errors.Is(err, wizard.ErrUnknownService),
		errors.Is(err, wizard.ErrServiceMismatch):
		return "⚠️ Esta opção não está mais disponível. Atualize a lista."
	case errors.Is(err, wizard.ErrIllegalTransition), errors.Is(err, errInvalidCallback):
		return "⚠️ Esta ação não está disponível agora."
	}

	var (
		loadErr    *wizard.LoadError
		profileErr *wizard.ProfileResolutionError
		submitErr  *wizard.SubmissionError
		authErr    *wizard.AuthError
	)
	switch {
	case errors.As(err, &loadErr):
		return "⚠️ Não foi possível carregar os dados. Tente novamente."
	case errors.As(err, &profileErr):
		return "⚠️ Não foi possível carregar seu perfil. Tente novamente."
	case errors.As(err, &submitErr):
		return "❌ Não foi possível concluir seu agendamento. Tente novamente."
	case errors.As(err, &authErr):
		return "⚠️ Não foi possível entrar na sua conta. Tente novamente."
	}

	return defaultErrorMessage
}
