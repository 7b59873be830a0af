// Command scheduler periodically enqueues maintenance tasks. The sweep
// itself runs in the API process, which owns the in-memory session store;
// this binary only schedules it through Redis.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"presales_backend/internal/scheduler"
	"presales_backend/platform/config"
	"presales_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer client.Close()

	interval := cfg.GetSessionSweepInterval()
	if interval <= 0 {
		interval = time.Hour
	}
	maxIdle := cfg.GetSessionMaxIdle()

	log.Info("scheduler running", "sweep_interval", interval, "session_max_idle", maxIdle)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received, stopping scheduler")
			return
		case now := <-ticker.C:
			if err := client.EnqueueSessionSweep(ctx, maxIdle, now); err != nil {
				log.Error("failed to enqueue session sweep", "error", err)
				continue
			}
			log.Info("session sweep enqueued")
		}
	}
}
