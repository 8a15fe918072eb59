package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"agenda/internal/api"
	"agenda/internal/auth"
	"agenda/internal/bot"
	"agenda/internal/config"
	"agenda/internal/database"
	"agenda/internal/domain"
	"agenda/internal/events"
	"agenda/internal/google"
	"agenda/internal/logging"
	"agenda/internal/metrics"
	"agenda/internal/postgres"
	"agenda/internal/repository"
	"agenda/internal/service"
	"agenda/internal/wizard"
	"agenda/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, sqliteDB, err := openStore(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Booking.CatalogFile != "" {
		if err := syncCatalog(ctx, cfg.Booking.CatalogFile, store); err != nil {
			logger.Error().Err(err).Str("file", cfg.Booking.CatalogFile).Msg("Ошибка синхронизации каталога")
		}
	}

	calendar, err := bookingCalendar(cfg.Booking)
	if err != nil {
		return err
	}

	redisClient, sessions := initSessions(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}

	metrics.Register()
	eventBus := events.NewEventBus()
	provider := auth.NewProvider(cfg.Auth, store, sessions, &logger)

	if cfg.Google.Enabled() {
		mirror, err := initMirror(ctx, cfg, redisClient, &logger)
		if err != nil {
			// бот работает и без таблицы
			logger.Warn().Err(err).Msg("Google Sheets mirror disabled")
		} else {
			mirror.Subscribe(eventBus)
			go mirror.Start(ctx)
		}
	}

	if sqliteDB != nil && cfg.Backup.Enabled {
		backupService := database.NewBackupService(sqliteDB, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	if cfg.Monitoring.PrometheusEnabled && !cfg.API.Enabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.API.Enabled {
		shutdown, err := startAPI(ctx, cfg, store, redisClient, &logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	return startBot(ctx, cfg, store, provider, sessions, eventBus, calendar, &logger)
}

// openStore returns the configured store. The *database.DB is non-nil only
// for SQLite, which also gets file backups.
func openStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.Store, *database.DB, error) {
	if cfg.Database.Driver == config.DriverPostgres {
		pg, err := postgres.Open(ctx, cfg.Database.Postgres, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Ошибка подключения к PostgreSQL")
			return nil, nil, err
		}
		return pg, nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return nil, nil, err
	}
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return nil, nil, err
	}
	return db, db, nil
}

func syncCatalog(ctx context.Context, path string, store domain.CatalogWriter) error {
	catalog, err := config.LoadCatalog(path)
	if err != nil {
		return err
	}
	return store.SyncCatalog(ctx, catalog)
}

func bookingCalendar(cfg config.BookingConfig) (wizard.Calendar, error) {
	closed, err := cfg.Weekdays()
	if err != nil {
		return wizard.Calendar{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return wizard.Calendar{}, err
	}
	return wizard.Calendar{
		MaxAdvanceDays: cfg.MaxAdvanceDays,
		ClosedWeekdays: closed,
		Location:       loc,
	}, nil
}

// initSessions keeps auth sessions in Redis when it is configured, falling
// back to memory whenever Redis stops answering.
func initSessions(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.SessionRepository) {
	memory := repository.NewMemorySessionRepository(cfg.Auth.SessionTTL)
	if cfg.Redis.Address == "" {
		logger.Info().Msg("Redis not configured, sessions kept in memory")
		return nil, memory
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	}
	primary := repository.NewRedisSessionRepository(redisClient, cfg.Auth.SessionTTL)
	return redisClient, repository.NewFailoverSessionRepository(primary, memory, logger)
}

func initMirror(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) (*worker.MirrorWorker, error) {
	sheetsService, err := google.NewSheetsService(ctx, cfg.Google)
	if err != nil {
		return nil, err
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		if email, emailErr := google.ServiceAccountEmail(cfg.Google.CredentialsFile); emailErr == nil {
			logger.Warn().Str("service_account", email).Msg("Share the spreadsheet with the service account")
		}
		return nil, err
	}
	if err := sheetsService.EnsureHeader(ctx); err != nil {
		return nil, err
	}

	logger.Info().Str("spreadsheet_id", cfg.Google.SpreadsheetID).Msg("Google Sheets service initialized successfully")
	return worker.NewMirrorWorker(sheetsService, redisClient, worker.DefaultRetryPolicy(), logger), nil
}

func startAPI(ctx context.Context, cfg *config.Config, store domain.Store, redisClient *redis.Client, logger *zerolog.Logger) (func(), error) {
	checks := []api.Check{{Name: "database", Ping: store.Ping}}
	if redisClient != nil {
		checks = append(checks, api.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return repository.Ping(ctx, redisClient)
		}})
	}

	var httpServer *api.HTTPServer
	if cfg.API.HTTP.Enabled {
		httpServer = api.NewHTTPServer(&cfg.API, store, checks, logger)
		go func() {
			if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
	}

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		var err error
		grpcServer, err = api.NewGRPCServer(&cfg.API, logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			if httpServer != nil {
				_ = httpServer.Shutdown(context.Background())
			}
			return nil, err
		}
		grpcServer.SetServing(true)
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("gRPC server error")
			}
		}()
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if grpcServer != nil {
			grpcServer.Shutdown(shutdownCtx)
		}
		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP shutdown")
			}
		}
	}, nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	store domain.Store,
	provider domain.AuthProvider,
	sessions domain.SessionRepository,
	eventBus *events.EventBus,
	calendar wizard.Calendar,
	logger *zerolog.Logger,
) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	tgService := service.NewTelegramService(service.NewBotWrapper(botAPI))

	telegramBot := bot.NewBot(bot.Deps{
		Telegram:      tgService,
		Config:        cfg,
		Store:         store,
		Auth:          provider,
		Limiter:       sessions,
		Events:        eventBus,
		Calendar:      calendar,
		Metrics:       bot.NewMetrics(prometheus.DefaultRegisterer),
		WizardMetrics: metrics.Wizard{},
		Logger:        logger,
	})

	go func() {
		<-ctx.Done()
		telegramBot.Stop()
	}()

	logger.Info().Msg("Бот запущен...")
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}
