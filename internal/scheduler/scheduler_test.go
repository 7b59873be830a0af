package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"

	"presales_backend/platform/logger"
)

func testLogger() *logger.Logger {
	return logger.New("development")
}

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string                    { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool              { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string              { return "default" }
func (c testSchedulerConfig) GetAsynqConcurrency() int               { return 1 }
func (c testSchedulerConfig) GetSessionMaxIdle() time.Duration       { return 24 * time.Hour }
func (c testSchedulerConfig) GetSessionSweepInterval() time.Duration { return time.Hour }

func TestSessionSweepPayloadRoundTrip(t *testing.T) {
	task, err := NewSessionSweepTask(SessionSweepPayload{MaxIdleSeconds: 3600})
	if err != nil {
		t.Fatalf("NewSessionSweepTask() error: %v", err)
	}
	if task.Type() != TaskSessionSweep {
		t.Errorf("task type = %q, want %q", task.Type(), TaskSessionSweep)
	}

	payload, err := ParseSessionSweepPayload(task)
	if err != nil {
		t.Fatalf("ParseSessionSweepPayload() error: %v", err)
	}
	if payload.MaxIdleSeconds != 3600 {
		t.Errorf("MaxIdleSeconds = %d, want 3600", payload.MaxIdleSeconds)
	}
}

func TestParseSessionSweepPayloadRejectsGarbage(t *testing.T) {
	task := asynq.NewTask(TaskSessionSweep, []byte("not json"))
	if _, err := ParseSessionSweepPayload(task); err == nil {
		t.Error("expected parse error")
	}
}

func TestClientEnqueueSessionSweep(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	defer client.Close()

	err = client.EnqueueSessionSweep(context.Background(), time.Hour, time.Now())
	if err != nil {
		t.Fatalf("EnqueueSessionSweep() error: %v", err)
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Error("expected error for missing redis url")
	}
}

type countingSweeper struct {
	calls       int
	lastMaxIdle time.Duration
	result      int
}

func (s *countingSweeper) SweepIdleSessions(_ context.Context, maxIdle time.Duration) int {
	s.calls++
	s.lastMaxIdle = maxIdle
	return s.result
}

func TestHandleSessionSweepUsesPayloadIdle(t *testing.T) {
	sweeper := &countingSweeper{result: 3}
	w := &Worker{sweeper: sweeper, maxIdle: 24 * time.Hour, log: testLogger()}

	task, _ := NewSessionSweepTask(SessionSweepPayload{MaxIdleSeconds: 600})
	if err := w.handleSessionSweep(context.Background(), task); err != nil {
		t.Fatalf("handleSessionSweep() error: %v", err)
	}
	if sweeper.lastMaxIdle != 10*time.Minute {
		t.Errorf("maxIdle = %v, want 10m", sweeper.lastMaxIdle)
	}

	// zero payload falls back to the configured default
	task, _ = NewSessionSweepTask(SessionSweepPayload{})
	if err := w.handleSessionSweep(context.Background(), task); err != nil {
		t.Fatalf("handleSessionSweep() error: %v", err)
	}
	if sweeper.lastMaxIdle != 24*time.Hour {
		t.Errorf("maxIdle = %v, want 24h", sweeper.lastMaxIdle)
	}
}

func TestHandleSessionSweepSkipsWithoutPositiveIdle(t *testing.T) {
	sweeper := &countingSweeper{}
	w := &Worker{sweeper: sweeper, maxIdle: 0, log: testLogger()}

	// neither the payload nor the config provides a usable bound; sweeping
	// anyway would delete every live session
	task, _ := NewSessionSweepTask(SessionSweepPayload{})
	if err := w.handleSessionSweep(context.Background(), task); err != nil {
		t.Fatalf("handleSessionSweep() error: %v", err)
	}
	if sweeper.calls != 0 {
		t.Errorf("sweeper called %d times, want 0", sweeper.calls)
	}
}
