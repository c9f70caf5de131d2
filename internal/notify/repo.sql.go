package notify

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMessageNotFound indicates a missing outbox row.
var ErrMessageNotFound = errors.New("outbox message not found")

// Repository reads and settles outbox rows. Inserts happen inside the
// billing transaction through the cuts repository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns one outbox message.
func (r *Repository) Get(ctx context.Context, id string) (Message, error) {
	var m Message
	err := r.pool.QueryRow(ctx, `SELECT id, audience, role, centro_id, user_id, title, body, link, status, created_at
FROM notification_outbox WHERE id=$1`, id).
		Scan(&m.ID, &m.Audience, &m.Role, &m.CentroID, &m.UserID, &m.Title, &m.Body, &m.Link, &m.Status, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, ErrMessageNotFound
		}
		return Message{}, err
	}
	return m, nil
}

// ListPending returns pending messages older than the grace window,
// used by the periodic sweep to recover enqueues lost after commit.
func (r *Repository) ListPending(ctx context.Context, olderThan time.Duration, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, audience, role, centro_id, user_id, title, body, link, status, created_at
FROM notification_outbox WHERE status=$1 AND created_at < $2 ORDER BY created_at ASC LIMIT $3`,
		StatusPending, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Audience, &m.Role, &m.CentroID, &m.UserID, &m.Title, &m.Body, &m.Link, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkSent settles a delivered message.
func (r *Repository) MarkSent(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE notification_outbox SET status=$1, settled_at=NOW() WHERE id=$2`, StatusSent, id)
	return err
}

// MarkFailed records a delivery failure.
func (r *Repository) MarkFailed(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE notification_outbox SET status=$1, settled_at=NOW() WHERE id=$2`, StatusFailed, id)
	return err
}
