package scheduler

import (
	"context"
	"fmt"

	"outreach_backend/internal/events"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker consumes presence tasks and republishes them on the in-process bus.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 4
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskPresenceDetected, w.handlePresenceDetected)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handlePresenceDetected never asks asynq to retry: a stale presence signal
// is worthless and a retried turn could double-send.
func (w *Worker) handlePresenceDetected(ctx context.Context, task *asynq.Task) error {
	payload, err := ParsePresenceDetectedPayload(task)
	if err != nil {
		return fmt.Errorf("parse presence payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.ChatAddress == "" {
		return nil
	}

	err = w.bus.PublishSync(ctx, events.PresenceDetected{
		BaseEvent:   events.NewBaseEvent(),
		Session:     payload.Session,
		ChatAddress: payload.ChatAddress,
		Status:      payload.Status,
	})
	if err != nil {
		w.log.Error("presence dispatch failed", "chat_id", payload.ChatAddress, "status", payload.Status, "error", err)
		return fmt.Errorf("presence dispatch: %v: %w", err, asynq.SkipRetry)
	}
	return nil
}
