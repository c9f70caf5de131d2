package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atlas-ops/atlas-ops/internal/notify"
)

// sweepGrace keeps the sweep from racing freshly committed rows whose
// dispatch job is still in flight.
const sweepGrace = 2 * time.Minute

// NotifyDispatcher delivers outbox messages from the queue.
type NotifyDispatcher struct {
	repo     *notify.Repository
	notifier notify.Notifier
	enqueuer notify.Enqueuer
	logger   *slog.Logger
}

// NewNotifyDispatcher constructs NotifyDispatcher.
func NewNotifyDispatcher(repo *notify.Repository, notifier notify.Notifier, enqueuer notify.Enqueuer, logger *slog.Logger) *NotifyDispatcher {
	return &NotifyDispatcher{repo: repo, notifier: notifier, enqueuer: enqueuer, logger: logger}
}

// HandleDispatch processes one notify:dispatch task.
func (d *NotifyDispatcher) HandleDispatch(ctx context.Context, task *asynq.Task) error {
	var payload NotifyDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	msg, err := d.repo.Get(ctx, payload.OutboxID)
	if err != nil {
		if errors.Is(err, notify.ErrMessageNotFound) {
			d.logger.Warn("outbox row gone", slog.String("outbox_id", payload.OutboxID))
			return asynq.SkipRetry
		}
		return err
	}
	if msg.Status != notify.StatusPending {
		return nil
	}

	switch msg.Audience {
	case notify.AudienceRole:
		err = d.notifier.NotifyRole(ctx, msg.Role, msg.CentroID, msg.Title, msg.Body, msg.Link)
	case notify.AudienceUser:
		err = d.notifier.NotifyUser(ctx, msg.UserID, msg.Title, msg.Body, msg.Link)
	default:
		d.logger.Warn("unknown outbox audience", slog.String("outbox_id", msg.ID), slog.String("audience", string(msg.Audience)))
		return asynq.SkipRetry
	}
	if err != nil {
		if markErr := d.repo.MarkFailed(ctx, msg.ID); markErr != nil {
			d.logger.Warn("mark failed", slog.String("outbox_id", msg.ID), slog.Any("error", markErr))
		}
		return err
	}
	return d.repo.MarkSent(ctx, msg.ID)
}

// HandleOutboxSweep re-enqueues pending rows that lost their original
// dispatch job, typically when the process died right after commit.
func (d *NotifyDispatcher) HandleOutboxSweep(ctx context.Context, _ *asynq.Task) error {
	msgs, err := d.repo.ListPending(ctx, sweepGrace, 200)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if err := d.enqueuer.EnqueueNotifyDispatch(ctx, msg.ID); err != nil {
			d.logger.Warn("sweep enqueue failed", slog.String("outbox_id", msg.ID), slog.Any("error", err))
		}
	}
	if len(msgs) > 0 {
		d.logger.Info("outbox sweep", slog.Int("re_enqueued", len(msgs)))
	}
	return nil
}
