package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ops/atlas-ops/internal/orders"
	"github.com/atlas-ops/atlas-ops/internal/shared"
)

// Repository persists execution entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ExecutedTotal sums all reported quantity for a line, all time.
func (r *Repository) ExecutedTotal(ctx context.Context, ref orders.LineRef) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM execution_entries WHERE line_kind=$1 AND line_id=$2`,
		string(ref.Kind), ref.ID).Scan(&total)
	return total, err
}

// ExecutedInPeriod sums reported quantity for a line inside the window.
// Open window ends are unbounded.
func (r *Repository) ExecutedInPeriod(ctx context.Context, ref orders.LineRef, period shared.Period) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM execution_entries
WHERE line_kind=$1 AND line_id=$2
  AND reported_at >= COALESCE($3, '-infinity'::timestamptz)
  AND reported_at <= COALESCE($4, 'infinity'::timestamptz)`,
		string(ref.Kind), ref.ID, period.Start, period.End).Scan(&total)
	return total, err
}

// Insert appends an execution entry.
func (r *Repository) Insert(ctx context.Context, e Entry) (int64, error) {
	if e.ReportedAt.IsZero() {
		e.ReportedAt = time.Now()
	}
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO execution_entries (order_id, line_kind, line_id, quantity, unit_price, note, request_id, reported_by, reported_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		e.OrderID, string(e.Line.Kind), e.Line.ID, e.Quantity, e.UnitPrice, e.Note, e.RequestID, e.ReportedBy, e.ReportedAt).Scan(&id)
	return id, err
}

// ListForOrder returns entries reported against an order, oldest first.
func (r *Repository) ListForOrder(ctx context.Context, orderID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, line_kind, line_id, quantity, unit_price, note, request_id, reported_by, reported_at
FROM execution_entries WHERE order_id=$1 ORDER BY reported_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.ID, &e.OrderID, &kind, &e.Line.ID, &e.Quantity, &e.UnitPrice, &e.Note, &e.RequestID, &e.ReportedBy, &e.ReportedAt); err != nil {
			return nil, err
		}
		e.Line.Kind = orders.LineKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
