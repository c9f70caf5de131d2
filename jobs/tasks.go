package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotifyDispatch delivers one outbox notification.
	TaskNotifyDispatch = "notify:dispatch"
	// TaskOutboxSweep re-enqueues pending outbox rows whose original
	// enqueue was lost after commit.
	TaskOutboxSweep = "notify:outbox_sweep"
)

// NotifyDispatchPayload identifies the outbox row to deliver.
type NotifyDispatchPayload struct {
	OutboxID string `json:"outbox_id"`
}

// NewNotifyDispatchTask constructs an Asynq task for one outbox row.
func NewNotifyDispatchTask(outboxID string) (*asynq.Task, error) {
	data, err := json.Marshal(NotifyDispatchPayload{OutboxID: outboxID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyDispatch, data), nil
}

// NewOutboxSweepTask constructs the periodic sweep task.
func NewOutboxSweepTask() *asynq.Task {
	return asynq.NewTask(TaskOutboxSweep, nil)
}
