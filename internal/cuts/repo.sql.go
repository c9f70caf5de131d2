package cuts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-ops/atlas-ops/internal/notify"
	"github.com/atlas-ops/atlas-ops/internal/orders"
	"github.com/atlas-ops/atlas-ops/internal/platform/db"
	"github.com/atlas-ops/atlas-ops/internal/shared"
)

// ErrCutNotFound indicates a missing cut.
var ErrCutNotFound = errors.New("cut not found")

// Repository provides PostgreSQL backed persistence for cuts.
type Repository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRepository constructs a repository. lockTimeout bounds how long the
// cut transaction waits for its row locks; zero keeps the server default.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, lockTimeout: lockTimeout}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a serializable transaction. The cut flow
// is a read-then-write invariant check, so anything weaker admits
// double-billing under concurrency.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		if r.lockTimeout > 0 {
			if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
				return fmt.Errorf("cuts: set lock timeout: %w", err)
			}
		}
		return fn(ctx, &txRepo{tx: tx})
	})
}

// IsSerializationFailure reports whether the error is a transient
// transaction conflict worth retrying: serialization failure, deadlock,
// or lock timeout.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

const orderColumns = `id, folio, centro_id, service_id, area_id, team_lead_id, description,
status, split_status, parent_ot_id, split_index, quality_result,
subtotal, tax_amount, total_amount, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (orders.WorkOrder, error) {
	var o orders.WorkOrder
	err := row.Scan(
		&o.ID, &o.Folio, &o.CentroID, &o.ServiceID, &o.AreaID, &o.TeamLeadID, &o.Description,
		&o.Status, &o.SplitStatus, &o.ParentOTID, &o.SplitIndex, &o.QualityResult,
		&o.Subtotal, &o.TaxAmount, &o.TotalAmount, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return orders.WorkOrder{}, orders.ErrNotFound
		}
		return orders.WorkOrder{}, err
	}
	return o, nil
}

// GetOrder returns the order header.
func (r *Repository) GetOrder(ctx context.Context, orderID int64) (orders.WorkOrder, error) {
	return scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM work_orders WHERE id=$1`, orderID))
}

// conceptQuery flattens one line representation with its aggregates. The
// window bounds default to +/- infinity so a missing period yields the
// all-time executed sum.
const serviceLineConcepts = `SELECT l.id, l.label, l.service_id, l.contracted, l.unit_price,
  COALESCE(ex.total, 0), COALESCE(exw.total, 0), COALESCE(cd.total, 0)
FROM work_order_lines l
LEFT JOIN LATERAL (
  SELECT SUM(e.quantity) AS total FROM execution_entries e
  WHERE e.line_kind = 'SERVICE_LINE' AND e.line_id = l.id
) ex ON TRUE
LEFT JOIN LATERAL (
  SELECT SUM(e.quantity) AS total FROM execution_entries e
  WHERE e.line_kind = 'SERVICE_LINE' AND e.line_id = l.id
    AND e.reported_at >= COALESCE($2, '-infinity'::timestamptz)
    AND e.reported_at <= COALESCE($3, 'infinity'::timestamptz)
) exw ON TRUE
LEFT JOIN LATERAL (
  SELECT SUM(d.quantity) AS total FROM cut_details d
  JOIN cuts c ON c.id = d.cut_id
  WHERE d.line_kind = 'SERVICE_LINE' AND d.line_id = l.id AND c.status <> 'VOID'
) cd ON TRUE
WHERE l.order_id = $1
ORDER BY l.id`

const legacyItemConcepts = `SELECT i.id, i.label, 0::bigint, i.contracted, i.unit_price,
  COALESCE(ex.total, 0), COALESCE(exw.total, 0), COALESCE(cd.total, 0)
FROM work_order_items i
LEFT JOIN LATERAL (
  SELECT SUM(e.quantity) AS total FROM execution_entries e
  WHERE e.line_kind = 'LEGACY_ITEM' AND e.line_id = i.id
) ex ON TRUE
LEFT JOIN LATERAL (
  SELECT SUM(e.quantity) AS total FROM execution_entries e
  WHERE e.line_kind = 'LEGACY_ITEM' AND e.line_id = i.id
    AND e.reported_at >= COALESCE($2, '-infinity'::timestamptz)
    AND e.reported_at <= COALESCE($3, 'infinity'::timestamptz)
) exw ON TRUE
LEFT JOIN LATERAL (
  SELECT SUM(d.quantity) AS total FROM cut_details d
  JOIN cuts c ON c.id = d.cut_id
  WHERE d.line_kind = 'LEGACY_ITEM' AND d.line_id = i.id AND c.status <> 'VOID'
) cd ON TRUE
WHERE i.order_id = $1
ORDER BY i.id`

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryConcepts(ctx context.Context, q rowQuerier, orderID int64, period shared.Period, forUpdate bool) ([]Concept, error) {
	lineQuery := serviceLineConcepts
	itemQuery := legacyItemConcepts
	if forUpdate {
		lineQuery += " FOR UPDATE OF l"
		itemQuery += " FOR UPDATE OF i"
	}

	concepts, err := scanConcepts(ctx, q, lineQuery, orders.KindServiceLine, orderID, period)
	if err != nil {
		return nil, err
	}
	if len(concepts) > 0 {
		if err := loadSubItems(ctx, q, concepts); err != nil {
			return nil, err
		}
		return concepts, nil
	}
	return scanConcepts(ctx, q, itemQuery, orders.KindLegacyItem, orderID, period)
}

func scanConcepts(ctx context.Context, q rowQuerier, query string, kind orders.LineKind, orderID int64, period shared.Period) ([]Concept, error) {
	rows, err := q.Query(ctx, query, orderID, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var concepts []Concept
	for rows.Next() {
		c := Concept{Ref: orders.LineRef{Kind: kind}}
		if err := rows.Scan(&c.Ref.ID, &c.Label, &c.ServiceID, &c.Contracted, &c.UnitPrice,
			&c.ExecutedTotal, &c.ExecutedInPeriod, &c.CutPreviously); err != nil {
			return nil, err
		}
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

func loadSubItems(ctx context.Context, q rowQuerier, concepts []Concept) error {
	for i := range concepts {
		rows, err := q.Query(ctx, `SELECT id, line_id, label, planned FROM work_order_sub_items WHERE line_id=$1 ORDER BY id`, concepts[i].Ref.ID)
		if err != nil {
			return err
		}
		var subs []orders.ServiceSubItem
		for rows.Next() {
			var s orders.ServiceSubItem
			if err := rows.Scan(&s.ID, &s.LineID, &s.Label, &s.Planned); err != nil {
				rows.Close()
				return err
			}
			subs = append(subs, s)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		concepts[i].SubItems = subs
	}
	return nil
}

// Concepts returns the order's flattened lines with aggregates, without
// locking. Used by the preview path.
func (r *Repository) Concepts(ctx context.Context, orderID int64, period shared.Period) ([]Concept, error) {
	return queryConcepts(ctx, r.pool, orderID, period, false)
}

// GetCut returns a cut with its details.
func (r *Repository) GetCut(ctx context.Context, cutID int64) (Cut, []CutDetail, error) {
	var c Cut
	err := r.pool.QueryRow(ctx, `SELECT id, order_id, folio, period_start, period_end, status, total_amount, created_by, child_order_id, created_at, updated_at
FROM cuts WHERE id=$1`, cutID).
		Scan(&c.ID, &c.OrderID, &c.Folio, &c.PeriodStart, &c.PeriodEnd, &c.Status, &c.TotalAmount, &c.CreatedBy, &c.ChildOrderID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cut{}, nil, ErrCutNotFound
		}
		return Cut{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, cut_id, line_kind, line_id, label, quantity, unit_price, amount
FROM cut_details WHERE cut_id=$1 ORDER BY id`, cutID)
	if err != nil {
		return Cut{}, nil, err
	}
	defer rows.Close()

	var details []CutDetail
	for rows.Next() {
		var d CutDetail
		var kind string
		if err := rows.Scan(&d.ID, &d.CutID, &kind, &d.Line.ID, &d.Label, &d.Quantity, &d.UnitPrice, &d.Amount); err != nil {
			return Cut{}, nil, err
		}
		d.Line.Kind = orders.LineKind(kind)
		details = append(details, d)
	}
	return c, details, rows.Err()
}

// ListCuts returns an order's cuts, newest first.
func (r *Repository) ListCuts(ctx context.Context, orderID int64) ([]Cut, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, folio, period_start, period_end, status, total_amount, created_by, child_order_id, created_at, updated_at
FROM cuts WHERE order_id=$1 ORDER BY created_at DESC, id DESC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cuts := []Cut{}
	for rows.Next() {
		var c Cut
		if err := rows.Scan(&c.ID, &c.OrderID, &c.Folio, &c.PeriodStart, &c.PeriodEnd, &c.Status, &c.TotalAmount, &c.CreatedBy, &c.ChildOrderID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cuts = append(cuts, c)
	}
	return cuts, rows.Err()
}

// SetCutStatus moves a cut from one status to another. The update is
// conditional on the origin status so two racing transitions cannot
// both land; the loser sees the status that actually won.
func (r *Repository) SetCutStatus(ctx context.Context, cutID int64, from, to CutStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cuts SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`,
		string(to), cutID, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var current string
		err := r.pool.QueryRow(ctx, `SELECT status FROM cuts WHERE id=$1`, cutID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCutNotFound
		}
		if err != nil {
			return err
		}
		return &TransitionError{From: CutStatus(current), To: to}
	}
	return nil
}

// Transactional operations.

func (t *txRepo) LockOrder(ctx context.Context, orderID int64) (orders.WorkOrder, error) {
	return scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM work_orders WHERE id=$1 FOR UPDATE`, orderID))
}

func (t *txRepo) GetOrder(ctx context.Context, orderID int64) (orders.WorkOrder, error) {
	return scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM work_orders WHERE id=$1`, orderID))
}

func (t *txRepo) ConceptsForUpdate(ctx context.Context, orderID int64, period shared.Period) ([]Concept, error) {
	return queryConcepts(ctx, t.tx, orderID, period, true)
}

func (t *txRepo) NextCutSequence(ctx context.Context, orderID int64) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM cuts WHERE order_id=$1`, orderID).Scan(&count)
	return count + 1, err
}

func (t *txRepo) InsertCut(ctx context.Context, cut Cut) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO cuts (order_id, folio, period_start, period_end, status, total_amount, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW()) RETURNING id`,
		cut.OrderID, cut.Folio, cut.PeriodStart, cut.PeriodEnd, string(cut.Status), cut.TotalAmount, cut.CreatedBy).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrFolioTaken
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) InsertCutDetail(ctx context.Context, d CutDetail) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO cut_details (cut_id, line_kind, line_id, label, quantity, unit_price, amount)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.CutID, string(d.Line.Kind), d.Line.ID, d.Label, d.Quantity, d.UnitPrice, d.Amount)
	return err
}

func (t *txRepo) SetCutChild(ctx context.Context, cutID, childOrderID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE cuts SET child_order_id=$1, updated_at=NOW() WHERE id=$2`, childOrderID, cutID)
	return err
}

func (t *txRepo) NextSplitIndex(ctx context.Context, rootID int64) (int, error) {
	var maxIndex int
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(MAX(split_index), 0) FROM work_orders WHERE parent_ot_id=$1`, rootID).Scan(&maxIndex)
	return maxIndex + 1, err
}

func (t *txRepo) InsertChildOrder(ctx context.Context, o orders.WorkOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO work_orders (folio, centro_id, service_id, area_id, team_lead_id, description, status, split_status, parent_ot_id, split_index, subtotal, tax_amount, total_amount, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,0,0,0,$11,NOW(),NOW()) RETURNING id`,
		o.Folio, o.CentroID, o.ServiceID, o.AreaID, o.TeamLeadID, o.Description,
		string(o.Status), string(o.SplitStatus), o.ParentOTID, o.SplitIndex, o.CreatedBy).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrFolioTaken
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) InsertChildLine(ctx context.Context, line orders.ServiceLine) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO work_order_lines (order_id, service_id, label, contracted, unit_price, created_at)
VALUES ($1,$2,$3,$4,$5,NOW()) RETURNING id`,
		line.OrderID, line.ServiceID, line.Label, line.Contracted, line.UnitPrice).Scan(&id)
	return id, err
}

func (t *txRepo) InsertChildSubItem(ctx context.Context, sub orders.ServiceSubItem) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO work_order_sub_items (line_id, label, planned) VALUES ($1,$2,$3)`,
		sub.LineID, sub.Label, sub.Planned)
	return err
}

func (t *txRepo) InsertChildItem(ctx context.Context, item orders.LegacyItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO work_order_items (order_id, label, contracted, unit_price, created_at)
VALUES ($1,$2,$3,$4,NOW()) RETURNING id`,
		item.OrderID, item.Label, item.Contracted, item.UnitPrice).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateOrderTotals(ctx context.Context, orderID int64, subtotal, tax, total float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE work_orders SET subtotal=$1, tax_amount=$2, total_amount=$3, updated_at=NOW() WHERE id=$4`,
		subtotal, tax, total, orderID)
	return err
}

func (t *txRepo) SetSplitStatus(ctx context.Context, orderID int64, status orders.SplitStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE work_orders SET split_status=$1, updated_at=NOW() WHERE id=$2`, string(status), orderID)
	return err
}

func (t *txRepo) SetWorkflowStatus(ctx context.Context, orderID int64, status orders.WorkOrderStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE work_orders SET status=$1, updated_at=NOW() WHERE id=$2`, string(status), orderID)
	return err
}

func (t *txRepo) InitQualityResult(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE work_orders SET quality_result=$1, updated_at=NOW() WHERE id=$2 AND quality_result IS NULL`,
		orders.QualityPending, orderID)
	return err
}

func (t *txRepo) InsertOutbox(ctx context.Context, m notify.Message) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO notification_outbox (id, audience, role, centro_id, user_id, title, body, link, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())`,
		m.ID, string(m.Audience), m.Role, m.CentroID, m.UserID, m.Title, m.Body, m.Link, m.Status)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
