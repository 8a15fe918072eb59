package bot

import (
	"context"
	"strings"

	"agenda/internal/config"
	"agenda/internal/logging"
	"agenda/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nyaruka/phonenumbers"
)

type formField struct {
	name   string
	prompt string
	secret bool
}

var (
	signInFields = []formField{
		{name: "email", prompt: "Digite seu e-mail:"},
		{name: "password", prompt: "Digite sua senha:", secret: true},
	}
	signUpFields = []formField{
		{name: "name", prompt: "Digite seu nome completo:"},
		{name: "phone", prompt: "Digite seu WhatsApp com DDD:"},
		{name: "email", prompt: "Digite seu e-mail:"},
		{name: "password", prompt: "Crie uma senha (mínimo 6 caracteres):", secret: true},
	}
)

// loginForm collects sign-in or sign-up fields one chat message at a time.
type loginForm struct {
	signUp bool
	next   int
	values map[string]string
}

func (f *loginForm) fields() []formField {
	if f.signUp {
		return signUpFields
	}
	return signInFields
}

func (f *loginForm) current() formField {
	return f.fields()[f.next]
}

func (f *loginForm) done() bool {
	return f.next >= len(f.fields())
}

func (b *Bot) openLoginForm(_ context.Context, c *chat, signUp bool) error {
	if step := c.ctrl.Step(); step != wizard.StepLogin {
		return wizard.ErrIllegalTransition
	}
	c.mu.Lock()
	c.form = &loginForm{signUp: signUp, values: make(map[string]string)}
	c.mu.Unlock()
	return nil
}

// handleFormInput stores one answer. It returns false when no form is open.
func (b *Bot) handleFormInput(ctx context.Context, c *chat, msg *tgbotapi.Message) bool {
	c.mu.Lock()
	form := c.form
	if form == nil {
		c.mu.Unlock()
		return false
	}
	field := form.current()
	value := msg.Text
	if !field.secret {
		value = strings.TrimSpace(value)
	}
	if field.name == "phone" {
		value = normalizePhone(value, b.phoneRegion())
		if value == "" {
			c.mu.Unlock()
			b.sendMessage(c.id, "⚠️ Telefone inválido. Informe DDD e número, por exemplo (11) 98765-4321.")
			return true
		}
	}
	form.values[field.name] = value
	form.next++
	finished := form.done()
	if finished {
		c.form = nil
	}
	c.mu.Unlock()

	if field.secret {
		if err := b.tg.DeleteMessage(c.id, msg.MessageID); err != nil {
			logging.FromContext(ctx).Debug().Err(err).Msg("Failed to delete password message")
		}
	}
	if !finished {
		return true
	}

	var err error
	if form.signUp {
		err = c.ctrl.SignUp(ctx, wizard.SignUpForm{
			Name:     form.values["name"],
			Phone:    form.values["phone"],
			Email:    form.values["email"],
			Password: form.values["password"],
		})
	} else {
		err = c.ctrl.SignIn(ctx, form.values["email"], form.values["password"])
	}
	b.logResult(ctx, c, "login", err)
	return true
}

func (b *Bot) phoneRegion() string {
	if b.config.Bot.PhoneRegion != "" {
		return b.config.Bot.PhoneRegion
	}
	return config.DefaultPhoneRegion
}

// normalizePhone returns the number in E.164, or "" when it is not a valid
// number. Numbers without a country code are read as local to region.
func normalizePhone(phone, region string) string {
	num, err := phonenumbers.Parse(phone, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// formatPhone renders a stored E.164 number for display, +55 11 98765-4321.
// Anything it cannot parse is shown as is.
func formatPhone(phone string) string {
	num, err := phonenumbers.Parse(phone, config.DefaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return phone
	}
	return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
}
