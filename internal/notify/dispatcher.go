package notify

import (
	"context"
	"log/slog"
)

// Enqueuer submits a dispatch job for one outbox message. Implemented by
// the jobs client.
type Enqueuer interface {
	EnqueueNotifyDispatch(ctx context.Context, outboxID string) error
}

// Dispatcher hands committed outbox messages to the job queue. Every
// failure is logged and swallowed: dispatch runs after the billing
// transaction committed and must never surface an error to the caller.
type Dispatcher struct {
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewDispatcher constructs Dispatcher.
func NewDispatcher(enqueuer Enqueuer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{enqueuer: enqueuer, logger: logger}
}

// Dispatch enqueues each message id, best-effort. Rows that fail to
// enqueue stay PENDING and are picked up by the periodic sweep.
func (d *Dispatcher) Dispatch(ctx context.Context, outboxIDs []string) {
	if d == nil || d.enqueuer == nil {
		return
	}
	for _, id := range outboxIDs {
		if err := d.enqueuer.EnqueueNotifyDispatch(ctx, id); err != nil {
			d.logger.Warn("notification enqueue failed", slog.String("outbox_id", id), slog.Any("error", err))
		}
	}
}
