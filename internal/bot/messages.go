package bot

import (
	"context"
	"strings"

	"agenda/internal/logging"
	"agenda/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `ℹ️ Como agendar:
1. Toque em "Agendar horário" e entre na sua conta
2. Escolha o profissional e o serviço
3. Selecione a data e o horário
4. Adicione observações, se quiser, e confirme

Comandos:
/start - mostrar a tela atual
/logout - sair da conta
/help - esta ajuda`

func (b *Bot) handleMessage(ctx context.Context, c *chat, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, c, msg)
		return
	}
	if msg.Text == "" {
		return
	}
	if b.handleFormInput(ctx, c, msg) {
		b.render(ctx, c, 0)
		return
	}

	if c.ctrl.Step() == wizard.StepNotes {
		c.mu.Lock()
		c.notes = strings.TrimSpace(msg.Text)
		c.mu.Unlock()
		b.render(ctx, c, 0)
		return
	}

	b.sendMessage(c.id, "Use os botões abaixo para continuar.")
	b.render(ctx, c, 0)
}

func (b *Bot) handleCommand(ctx context.Context, c *chat, msg *tgbotapi.Message) {
	logging.FromContext(ctx).Debug().Str("command", msg.Command()).Int64("chat_id", c.id).Msg("Command received")
	switch msg.Command() {
	case "start":
		c.mu.Lock()
		c.form = nil
		c.mu.Unlock()
		b.render(ctx, c, 0)
	case "logout":
		err := c.ctrl.SignOut(ctx)
		b.logResult(ctx, c, "logout", err)
		if err == nil {
			c.resetUI()
			b.sendMessage(c.id, "👋 Você saiu da sua conta.")
		}
		b.render(ctx, c, 0)
	case "help":
		b.sendMessage(c.id, helpText)
	default:
		b.sendMessage(c.id, "Comando desconhecido. Use /help.")
	}
}
