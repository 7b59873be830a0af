// Package scheduler provides background task scheduling on top of asynq.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSessionSweep = "chat.sessions.sweep"

type SessionSweepPayload struct {
	MaxIdleSeconds int64 `json:"maxIdleSeconds"`
}

func NewSessionSweepTask(payload SessionSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionSweep, data), nil
}

func ParseSessionSweepPayload(task *asynq.Task) (SessionSweepPayload, error) {
	var payload SessionSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SessionSweepPayload{}, err
	}
	return payload, nil
}
