package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agenda/internal/logging"
	"agenda/internal/models"
	"agenda/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data values carried by inline buttons.
const (
	cbStart     = "start"
	cbBack      = "back"
	cbSignIn    = "auth:signin"
	cbSignUp    = "auth:signup"
	cbNotesSkip = "notes:skip"
	cbSubmit    = "notes:submit"
	cbBookings  = "bookings"
	cbExport    = "export"
	cbRestart   = "restart"
	cbReload    = "reload"
	cbNoop      = "noop"
	prefixPro   = "pro:"
	prefixSvc   = "svc:"
	prefixMonth = "cal:"
	prefixDate  = "date:"
	prefixSlot  = "slot:"
	monthLayout = "2006-01"
)

var errInvalidCallback = errors.New("invalid callback data")

type action struct {
	name  string
	id    int64
	date  models.Date
	month models.Date
	slot  string
}

func parseCallback(data string) (action, error) {
	switch data {
	case cbStart, cbBack, cbSignIn, cbSignUp, cbNotesSkip, cbSubmit, cbBookings, cbExport, cbRestart, cbReload, cbNoop:
		return action{name: data}, nil
	}

	switch {
	case strings.HasPrefix(data, prefixPro), strings.HasPrefix(data, prefixSvc):
		prefix := data[:4]
		id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
		if err != nil || id <= 0 {
			return action{}, fmt.Errorf("%w: %q", errInvalidCallback, data)
		}
		return action{name: prefix, id: id}, nil
	case strings.HasPrefix(data, prefixMonth):
		t, err := time.Parse(monthLayout, strings.TrimPrefix(data, prefixMonth))
		if err != nil {
			return action{}, fmt.Errorf("%w: %q", errInvalidCallback, data)
		}
		return action{name: prefixMonth, month: models.DateOf(t)}, nil
	case strings.HasPrefix(data, prefixDate):
		d, err := models.ParseDate(strings.TrimPrefix(data, prefixDate))
		if err != nil {
			return action{}, fmt.Errorf("%w: %q", errInvalidCallback, data)
		}
		return action{name: prefixDate, date: d}, nil
	case strings.HasPrefix(data, prefixSlot):
		return action{name: prefixSlot, slot: strings.TrimPrefix(data, prefixSlot)}, nil
	}
	return action{}, fmt.Errorf("%w: %q", errInvalidCallback, data)
}

func (b *Bot) handleCallback(ctx context.Context, c *chat, cb *tgbotapi.CallbackQuery) {
	// Отвечаем на callback сразу, чтобы убрать "часики"
	if err := b.tg.AnswerCallback(cb.ID, ""); err != nil {
		logging.FromContext(ctx).Debug().Err(err).Msg("Failed to answer callback")
	}

	act, err := parseCallback(cb.Data)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Int64("chat_id", c.id).Msg("Unknown callback")
		b.sendMessage(c.id, userMessage(err))
		return
	}
	if act.name == cbNoop {
		return
	}

	err = b.apply(ctx, c, act)
	b.logResult(ctx, c, act.name, err)
	b.render(ctx, c, cb.Message.MessageID)
}

// apply runs one button press against the chat's wizard. Failures were
// already shown to the user by the controller's notifier.
func (b *Bot) apply(ctx context.Context, c *chat, act action) error {
	ctrl := c.ctrl
	switch act.name {
	case cbStart:
		return ctrl.Begin(ctx)
	case cbBack:
		c.mu.Lock()
		c.form = nil
		c.mu.Unlock()
		return ctrl.Back(ctx)
	case cbSignIn, cbSignUp:
		return b.openLoginForm(ctx, c, act.name == cbSignUp)
	case prefixPro:
		if ctrl.Step() == wizard.StepServices {
			if err := ctrl.Back(ctx); err != nil {
				return err
			}
		}
		return ctrl.SelectProfessional(ctx, act.id)
	case prefixSvc:
		return ctrl.SelectService(ctx, act.id)
	case prefixMonth:
		c.mu.Lock()
		c.month = act.month
		c.mu.Unlock()
		return nil
	case prefixDate:
		return ctrl.SelectDate(ctx, act.date)
	case prefixSlot:
		return ctrl.SelectTime(ctx, act.slot)
	case cbNotesSkip:
		if err := ctrl.SkipNotes(ctx); err != nil {
			return err
		}
		c.resetUI()
		return nil
	case cbSubmit:
		if err := ctrl.Submit(ctx, c.snapshotUI().notes); err != nil {
			return err
		}
		c.resetUI()
		return nil
	case cbBookings:
		return ctrl.ViewBookings(ctx)
	case cbExport:
		if err := b.sendExport(ctx, c); err != nil {
			b.sendMessage(c.id, "❌ Não foi possível gerar a planilha. Tente novamente.")
			return err
		}
		return nil
	case cbRestart:
		if err := ctrl.Restart(ctx); err != nil {
			return err
		}
		c.resetUI()
		return nil
	case cbReload:
		return ctrl.Reload(ctx)
	}
	return fmt.Errorf("%w: %q", errInvalidCallback, act.name)
}

func (b *Bot) logResult(ctx context.Context, c *chat, op string, err error) {
	if err == nil || errors.Is(err, wizard.ErrSuperseded) {
		return
	}
	l := logging.FromContext(ctx)
	if wizard.IsUserError(err) {
		l.Debug().Err(err).Int64("chat_id", c.id).Str("op", op).Msg("Rejected user action")
		return
	}
	l.Warn().Err(err).Int64("chat_id", c.id).Str("op", op).Msg("Wizard operation failed")
}
