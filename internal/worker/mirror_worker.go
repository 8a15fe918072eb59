package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"agenda/internal/domain"
	"agenda/internal/events"
	"agenda/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultQueueKey      = "sheets:queue"
	DefaultDeadLetterKey = "sheets:deadletter"
)

var ErrQueueFull = errors.New("mirror queue is full")

// MirrorWorker copies created appointments to the spreadsheet. Tasks go
// through Redis when a client is configured and through an in-memory
// channel otherwise; failed tasks are retried with backoff and finally
// parked on the dead-letter list.
type MirrorWorker struct {
	sheets        domain.SheetsWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan *models.MirrorTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	logger        zerolog.Logger

	pending sync.WaitGroup
	mu      sync.Mutex
	dead    []*models.MirrorTask
}

func NewMirrorWorker(sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *MirrorWorker {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "mirror_worker").Logger()
	}

	return &MirrorWorker{
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan *models.MirrorTask, models.WorkerQueueSize),
		redisQueueKey: DefaultQueueKey,
		deadLetterKey: DefaultDeadLetterKey,
		pollInterval:  time.Second,
		logger:        l,
	}
}

// Subscribe hooks the worker to appointment_created events.
func (w *MirrorWorker) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventAppointmentCreated, w.HandleEvent)
}

// HandleEvent turns an appointment_created event into a queued task.
func (w *MirrorWorker) HandleEvent(event *events.Event) error {
	var payload events.AppointmentCreatedPayload
	if err := event.Decode(&payload); err != nil {
		return err
	}
	return w.Enqueue(context.Background(), TaskFromPayload(payload))
}

func TaskFromPayload(p events.AppointmentCreatedPayload) *models.MirrorTask {
	return &models.MirrorTask{
		AppointmentID:    p.AppointmentID,
		ClientName:       p.ClientName,
		ClientEmail:      p.ClientEmail,
		ProfessionalName: p.ProfessionalName,
		ServiceName:      p.ServiceName,
		Date:             p.Date,
		TimeSlot:         p.TimeSlot,
		Notes:            p.Notes,
		CreatedAt:        p.CreatedAt,
	}
}

// Enqueue schedules the task. It never blocks.
func (w *MirrorWorker) Enqueue(ctx context.Context, task *models.MirrorTask) error {
	if task == nil || task.AppointmentID == 0 {
		return errors.New("appointment id is required")
	}

	// Try redis first for durability.
	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Int64("appointment_id", task.AppointmentID).Msg("Redis push failed, using memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
		return nil
	default:
		w.logger.Error().Int64("appointment_id", task.AppointmentID).Msg("Memory queue full, task dropped")
		return ErrQueueFull
	}
}

// Start runs the worker until ctx is done, then waits for scheduled retries
// to be abandoned.
func (w *MirrorWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Mirror worker started")
	defer w.logger.Info().Msg("Mirror worker stopped")
	defer w.pending.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, t)
			continue
		default:
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, t)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, t)
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *MirrorWorker) tryRedis(ctx context.Context) (*models.MirrorTask, bool) {
	if w.redis == nil {
		return nil, false
	}
	res, err := w.redis.BRPop(ctx, w.pollInterval, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Warn().Err(err).Msg("Redis BRPOP failed")
		}
		return nil, false
	}
	if len(res) != 2 {
		return nil, false
	}
	var task models.MirrorTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("Failed to decode queued task")
		return nil, false
	}
	return &task, true
}

func (w *MirrorWorker) processTask(ctx context.Context, task *models.MirrorTask) {
	if err := w.sheets.AppendAppointment(ctx, task); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}
	w.logger.Debug().Int64("appointment_id", task.AppointmentID).Msg("Appointment mirrored")
}

func (w *MirrorWorker) retryOrFail(ctx context.Context, task *models.MirrorTask, cause error) {
	task.RetryCount++
	task.LastError = cause.Error()
	if w.retryPolicy.Exhausted(task.RetryCount) {
		w.logger.Error().Err(cause).Int64("appointment_id", task.AppointmentID).Int("attempts", task.RetryCount).Msg("Mirror task failed")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.RetryCount)
	w.logger.Warn().Err(cause).Int64("appointment_id", task.AppointmentID).Dur("retry_in", delay).Msg("Mirror task will be retried")

	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			w.pushDeadLetter(context.Background(), task)
		case <-timer.C:
			if err := w.Enqueue(ctx, task); err != nil {
				w.pushDeadLetter(context.Background(), task)
			}
		}
	}()
}

func (w *MirrorWorker) pushRedis(ctx context.Context, key string, task *models.MirrorTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *MirrorWorker) pushDeadLetter(ctx context.Context, task *models.MirrorTask) {
	if w.redis != nil {
		err := w.pushRedis(ctx, w.deadLetterKey, task)
		if err == nil {
			return
		}
		w.logger.Error().Err(err).Int64("appointment_id", task.AppointmentID).Msg("Dead-letter push failed")
	}
	w.mu.Lock()
	w.dead = append(w.dead, task)
	w.mu.Unlock()
}

// DeadLetters returns the tasks parked in memory because Redis was absent.
func (w *MirrorWorker) DeadLetters() []*models.MirrorTask {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*models.MirrorTask(nil), w.dead...)
}
