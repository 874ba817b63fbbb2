package scheduler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"

	"leadbot_backend/internal/conversation"
	"leadbot_backend/platform/config"
	"leadbot_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const (
	defaultQueue       = "default"
	defaultConcurrency = 10
)

// RequirementWriter persists requirement rows.
type RequirementWriter interface {
	SaveRequirement(ctx context.Context, req conversation.RequirementRecord) error
}

// Worker drains the partial-save queue into storage.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	store  RequirementWriter
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, store RequirementWriter, log *logger.Logger) (*Worker, error) {
	if cfg.GetRedisURL() == "" {
		return nil, errors.New("redis url not configured")
	}
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cmp.Or(cfg.GetAsynqQueueName(), defaultQueue)
	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	w := &Worker{mux: asynq.NewServeMux(), store: store, log: log}
	w.server = asynq.NewServer(opt, asynq.Config{
		Concurrency:  concurrency,
		Queues:       map[string]int{queue: 1},
		Logger:       asynqLogger{log},
		LogLevel:     asynq.WarnLevel,
		ErrorHandler: asynq.ErrorHandlerFunc(w.reportFailure),
	})
	w.mux.HandleFunc(TaskPartialLeadSave, w.handlePartialLeadSave)
	log.Info("scheduler worker configured", "queue", queue, "concurrency", concurrency)
	return w, nil
}

// Run processes tasks until ctx is cancelled, then waits for in-flight
// handlers to finish.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

// handlePartialLeadSave writes a queued idle snapshot. The storage upsert
// ignores it when the conversation was finalized in the meantime.
func (w *Worker) handlePartialLeadSave(ctx context.Context, task *asynq.Task) error {
	payload, err := ParsePartialLeadSavePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	rec, err := payload.Record()
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if err := w.store.SaveRequirement(ctx, rec); err != nil {
		return err
	}
	w.log.WithTenant(payload.TenantID).Debug("queued partial lead saved", "conversationId", payload.ConversationID, "category", payload.Category)
	return nil
}

func (w *Worker) reportFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	w.log.Warn("scheduler task failed", "type", task.Type(), "retried", retried, "skipRetry", errors.Is(err, asynq.SkipRetry), "error", err)
}

// asynqLogger routes asynq's own logging through the application logger.
type asynqLogger struct{ log *logger.Logger }

func (l asynqLogger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) {
	l.log.Error(fmt.Sprint(args...))
	os.Exit(1)
}
