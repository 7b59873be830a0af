package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"presales_backend/platform/config"
	"presales_backend/platform/logger"
)

// SessionSweeper removes idle chat sessions. The chat module implements this.
type SessionSweeper interface {
	SweepIdleSessions(ctx context.Context, maxIdle time.Duration) int
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	sweeper SessionSweeper
	maxIdle time.Duration
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sweeper SessionSweeper, log *logger.Logger) (*Worker, error) {
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
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		sweeper: sweeper,
		maxIdle: cfg.GetSessionMaxIdle(),
		log:     log,
	}

	mux.HandleFunc(TaskSessionSweep, w.handleSessionSweep)

	return w, nil
}

func (w *Worker) handleSessionSweep(ctx context.Context, task *asynq.Task) error {
	if w.sweeper == nil {
		return nil
	}

	payload, err := ParseSessionSweepPayload(task)
	if err != nil {
		return err
	}

	maxIdle := time.Duration(payload.MaxIdleSeconds) * time.Second
	if maxIdle <= 0 {
		maxIdle = w.maxIdle
	}
	if maxIdle <= 0 {
		// Without a positive idle bound the sweep would take every live
		// session with it. Skip rather than wipe.
		w.log.Warn("session sweep skipped, no positive max idle configured")
		return nil
	}

	count := w.sweeper.SweepIdleSessions(ctx, maxIdle)
	w.log.Info("session sweep completed", "swept", count)
	return nil
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
