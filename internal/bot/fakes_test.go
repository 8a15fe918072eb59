package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"agenda/internal/auth"
	"agenda/internal/config"
	"agenda/internal/database"
	"agenda/internal/models"
	"agenda/internal/repository"
	"agenda/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type outgoing struct {
	chatID   int64
	edit     int
	text     string
	keyboard *tgbotapi.InlineKeyboardMarkup
}

type document struct {
	chatID int64
	name   string
	data   []byte
}

// fakeTelegram records everything the bot sends.
type fakeTelegram struct {
	mu        sync.Mutex
	out       []outgoing
	deleted   []int
	documents []document
	answered  []string
	nextID    int
}

func (f *fakeTelegram) record(o outgoing) tgbotapi.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, o)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID, Chat: &tgbotapi.Chat{ID: o.chatID}, Text: o.text}
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeTelegram) GetSelf() tgbotapi.User { return tgbotapi.User{UserName: "agenda_test_bot"} }

func (f *fakeTelegram) StopReceivingUpdates() {}

func (f *fakeTelegram) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	return f.record(outgoing{chatID: chatID, text: text}), nil
}

func (f *fakeTelegram) SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	return f.record(outgoing{chatID: chatID, text: text, keyboard: &keyboard}), nil
}

func (f *fakeTelegram) EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	return f.record(outgoing{chatID: chatID, edit: messageID, text: text, keyboard: keyboard}), nil
}

func (f *fakeTelegram) DeleteMessage(chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTelegram) SendDocument(chatID int64, name string, data []byte) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(data) == 0 {
		return tgbotapi.Message{}, fmt.Errorf("empty document")
	}
	f.documents = append(f.documents, document{chatID: chatID, name: name, data: data})
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) AnswerCallback(callbackID string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, text)
	return nil
}

// screen returns the last output that carried a keyboard or was an edit.
func (f *fakeTelegram) screen(t *testing.T) outgoing {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.out) - 1; i >= 0; i-- {
		if f.out[i].keyboard != nil || f.out[i].edit != 0 {
			return f.out[i]
		}
	}
	t.Fatal("no screen rendered")
	return outgoing{}
}

// texts returns every plain text message sent so far.
func (f *fakeTelegram) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, o := range f.out {
		if o.keyboard == nil && o.edit == 0 {
			out = append(out, o.text)
		}
	}
	return out
}

func (f *fakeTelegram) hasText(substr string) bool {
	for _, text := range f.texts() {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

func buttons(kb *tgbotapi.InlineKeyboardMarkup) []string {
	if kb == nil {
		return nil
	}
	var data []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil && *b.CallbackData != cbNoop {
				data = append(data, *b.CallbackData)
			}
		}
	}
	return data
}

var testCatalog = &models.Catalog{
	Professionals: []models.Professional{
		{ID: 1, Name: "Ana Souza", Specialty: "Cabeleireira", IsActive: true},
		{ID: 2, Name: "Bruno Lima", Specialty: "Barbeiro", IsActive: true},
	},
	Services: []models.Service{
		{ID: 11, Name: "Corte", DurationMinutes: 60, PriceCents: 4500, ProfessionalID: 1, IsActive: true},
		{ID: 12, Name: "Escova", DurationMinutes: 45, PriceCents: 6000, ProfessionalID: 1, IsActive: true},
		{ID: 21, Name: "Barba", DurationMinutes: 30, PriceCents: 3000, ProfessionalID: 2, IsActive: true},
	},
}

// testCalendar is anchored on Saturday 2025-03-01.
func testCalendar() wizard.Calendar {
	cal := wizard.DefaultCalendar()
	cal.Now = func() time.Time { return time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC) }
	return cal
}

type harness struct {
	bot *Bot
	tg  *fakeTelegram
	db  *database.DB
	cfg *config.Config
}

func newHarness(t *testing.T, mutate func(cfg *config.Config)) *harness {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.SyncCatalog(context.Background(), testCatalog))

	cfg := &config.Config{}
	cfg.Exports.Path = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	sessions := repository.NewMemorySessionRepository(time.Hour)
	provider := auth.NewProvider(config.AuthConfig{JWTSecret: "test-secret", BcryptCost: bcrypt.MinCost}, db, sessions, &logger)

	tg := &fakeTelegram{}
	b := NewBot(Deps{
		Telegram: tg,
		Config:   cfg,
		Store:    db,
		Auth:     provider,
		Limiter:  sessions,
		Calendar: testCalendar(),
		Logger:   &logger,
	})
	t.Cleanup(b.Stop)
	return &harness{bot: b, tg: tg, db: db, cfg: cfg}
}

var nextMessageID = struct {
	sync.Mutex
	n int
}{n: 1000}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	nextMessageID.Lock()
	nextMessageID.n++
	id := nextMessageID.n
	nextMessageID.Unlock()

	msg := &tgbotapi.Message{
		MessageID: id,
		From:      &tgbotapi.User{ID: chatID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])}}
	}
	return tgbotapi.Update{Message: msg}
}

func pressUpdate(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func (h *harness) send(chatID int64, text string) {
	h.bot.processUpdate(context.Background(), textUpdate(chatID, text))
}

func (h *harness) press(chatID int64, data string) {
	h.bot.processUpdate(context.Background(), pressUpdate(chatID, data))
}

func (h *harness) view(t *testing.T, chatID int64) wizard.View {
	t.Helper()
	c := h.bot.chats.lookup(sessionKey(chatID))
	require.NotNil(t, c)
	return c.ctrl.Snapshot()
}

// signUp walks a fresh chat from welcome to professionals.
func (h *harness) signUp(t *testing.T, chatID int64, email string) {
	t.Helper()
	h.send(chatID, "/start")
	h.press(chatID, cbStart)
	h.press(chatID, cbSignUp)
	h.send(chatID, "Maria Silva")
	h.send(chatID, "(11) 98765-4321")
	h.send(chatID, email)
	h.send(chatID, "secret123")
	require.Equal(t, wizard.StepProfessionals, h.view(t, chatID).Step)
}
