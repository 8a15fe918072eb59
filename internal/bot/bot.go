// Package bot is the Telegram front end of the booking wizard: every inline
// button is one wizard operation and every screen is a rendering of the
// chat's wizard.View.
package bot

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"agenda/internal/config"
	"agenda/internal/domain"
	"agenda/internal/models"
	"agenda/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RateLimiter limits how many updates one user may send per window.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Deps struct {
	Telegram      domain.TelegramService
	Config        *config.Config
	Store         wizard.Store
	Auth          domain.AuthProvider
	Limiter       RateLimiter
	Events        domain.EventPublisher
	Calendar      wizard.Calendar
	Metrics       *Metrics
	WizardMetrics wizard.Recorder
	Logger        *zerolog.Logger
}

type Bot struct {
	tg            domain.TelegramService
	config        *config.Config
	store         wizard.Store
	auth          domain.AuthProvider
	limiter       RateLimiter
	events        domain.EventPublisher
	calendar      wizard.Calendar
	metrics       *Metrics
	wizardMetrics wizard.Recorder
	logger        *zerolog.Logger

	chats       *chatRegistry
	unsubscribe func()
	sem         chan struct{}
	wg          sync.WaitGroup
}

func NewBot(deps Deps) *Bot {
	logger := deps.Logger
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	workers := cfg.Bot.MaxConcurrentUpdates
	if workers <= 0 {
		workers = 64
	}

	b := &Bot{
		tg:            deps.Telegram,
		config:        cfg,
		store:         deps.Store,
		auth:          deps.Auth,
		limiter:       deps.Limiter,
		events:        deps.Events,
		calendar:      deps.Calendar,
		metrics:       deps.Metrics,
		wizardMetrics: deps.WizardMetrics,
		logger:        logger,
		chats:         newChatRegistry(),
		sem:           make(chan struct{}, workers),
	}
	b.unsubscribe = b.auth.OnAuthStateChange(b.routeAuthEvent)
	return b
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			b.wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates and detaches from the auth provider.
func (b *Bot) Stop() {
	if b == nil {
		return
	}
	b.tg.StopReceivingUpdates()
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
}

// dispatch handles the update on its own goroutine, at most
// MaxConcurrentUpdates at a time.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	b.wg.Add(1)
	go func() {
		defer func() {
			<-b.sem
			b.wg.Done()
		}()
		b.processUpdate(ctx, update)
	}()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	timeout := time.Duration(b.config.Bot.UpdateTimeout) * time.Second
	if timeout <= 0 {
		timeout = models.DefaultUpdateTimeout
	}
	// Создаем контекст для обработки каждого обновления
	updateCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID, chatID int64
		kind := "other"
		switch {
		case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
			userID = update.CallbackQuery.From.ID
			chatID = update.CallbackQuery.Message.Chat.ID
			kind = "callback"
		case update.Message != nil && update.Message.From != nil:
			userID = update.Message.From.ID
			chatID = update.Message.Chat.ID
			kind = "message"
		}
		if b.metrics != nil {
			b.metrics.UpdatesTotal.WithLabelValues(kind).Inc()
		}
		if userID == 0 || chatID == 0 {
			return
		}

		if !b.allow(updateCtx, userID) {
			if update.CallbackQuery != nil {
				_ = b.tg.AnswerCallback(update.CallbackQuery.ID, "Aguarde um momento")
			} else {
				b.sendMessage(chatID, "⚠️ Você está enviando mensagens rápido demais. Aguarde um pouco.")
			}
			return
		}

		c := b.chatFor(updateCtx, chatID)
		if update.CallbackQuery != nil {
			b.handleCallback(updateCtx, c, update.CallbackQuery)
			return
		}
		b.handleMessage(updateCtx, c, update.Message)
	})
}

func (b *Bot) allow(ctx context.Context, userID int64) bool {
	if b.limiter == nil {
		return true
	}
	limit := b.config.Bot.RateLimitMessages
	if limit <= 0 {
		limit = models.RateLimitMessages
	}
	window := time.Duration(b.config.Bot.RateLimitWindow) * time.Second
	if window <= 0 {
		window = models.RateLimitWindow * time.Second
	}

	allowed, err := b.limiter.CheckRateLimit(ctx, "chat:"+strconv.FormatInt(userID, 10), limit, window)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Rate limit check failed")
		return true
	}
	if !allowed {
		b.logger.Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
		if b.metrics != nil {
			b.metrics.RateLimited.Inc()
		}
	}
	return allowed
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tg.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}
