package bot

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"agenda/internal/domain"
	"agenda/internal/events"
	"agenda/internal/logging"
	"agenda/internal/models"
	"agenda/internal/wizard"
)

// chat is the per-chat state kept next to the wizard controller.
type chat struct {
	id    int64
	ctrl  *wizard.Controller
	start sync.Once

	mu    sync.Mutex
	form  *loginForm
	notes string
	month models.Date
}

// uiState is the chat-side input that is not part of the wizard session.
type uiState struct {
	form  *loginForm
	notes string
	month models.Date
}

func (c *chat) snapshotUI() uiState {
	c.mu.Lock()
	defer c.mu.Unlock()
	ui := uiState{notes: c.notes, month: c.month}
	if c.form != nil {
		cp := *c.form
		ui.form = &cp
	}
	return ui
}

func (c *chat) resetUI() {
	c.mu.Lock()
	c.form = nil
	c.notes = ""
	c.month = models.Date{}
	c.mu.Unlock()
}

type chatRegistry struct {
	mu    sync.Mutex
	byKey map[string]*chat
}

func newChatRegistry() *chatRegistry {
	return &chatRegistry{byKey: make(map[string]*chat)}
}

func sessionKey(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func (r *chatRegistry) lookup(key string) *chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byKey[key]
}

func (r *chatRegistry) getOrCreate(key string, create func() *chat) *chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byKey[key]; ok {
		return c
	}
	c := create()
	r.byKey[key] = c
	return c
}

// chatFor returns the chat's state, starting its wizard on first contact.
func (b *Bot) chatFor(ctx context.Context, chatID int64) *chat {
	key := sessionKey(chatID)
	c := b.chats.getOrCreate(key, func() *chat {
		return &chat{
			id: chatID,
			ctrl: wizard.NewController(wizard.Options{
				Key:      key,
				Store:    b.store,
				Auth:     b.auth,
				Events:   b.events,
				Notifier: b.notifierFor(chatID),
				Metrics:  b.wizardMetrics,
				Calendar: b.calendar,
				Logger:   b.logger,
			}),
		}
	})
	c.start.Do(func() {
		if err := c.ctrl.Start(ctx); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to start wizard")
		}
	})
	return c
}

// routeAuthEvent forwards provider events to the chat owning the session key.
func (b *Bot) routeAuthEvent(ctx context.Context, key string, event domain.AuthEvent, identity *models.Identity) {
	b.publishAuthEvent(ctx, key, event, identity)

	c := b.chats.lookup(key)
	if c == nil {
		return
	}
	if c.ctrl.HandleAuthEvent(ctx, event, identity) {
		logging.FromContext(ctx).Debug().Str("session_key", key).Str("event", string(event)).Msg("Auth event advanced wizard")
	}
}

// notifierFor shows wizard failures to the chat.
func (b *Bot) notifierFor(chatID int64) wizard.Notifier {
	return wizard.NotifierFunc(func(ctx context.Context, n wizard.Notification) {
		switch n.Kind {
		case wizard.KindError:
			if n.Err == nil || errors.Is(n.Err, wizard.ErrSuperseded) || errors.Is(n.Err, context.Canceled) {
				return
			}
			b.sendMessage(chatID, userMessage(n.Err))
		case wizard.KindBooked:
			if n.Appointment != nil {
				logging.FromContext(ctx).Info().
					Int64("chat_id", chatID).
					Int64("appointment_id", n.Appointment.ID).
					Msg("Booking confirmed in chat")
			}
		}
	})
}

func (b *Bot) publishAuthEvent(ctx context.Context, key string, event domain.AuthEvent, identity *models.Identity) {
	if b.events == nil {
		return
	}
	eventType := events.EventUserSignedOut
	if event == domain.AuthSignedIn {
		eventType = events.EventUserSignedIn
	}
	payload := events.AuthPayload{Key: key}
	if identity != nil {
		payload.UserID = identity.UserID
	}
	if err := b.events.PublishJSON(eventType, payload); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("event", eventType).Msg("Failed to publish auth event")
	}
}
