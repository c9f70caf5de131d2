package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates a missing work order.
var ErrNotFound = errors.New("work order not found")

// Repository provides read access to work orders in PostgreSQL. Writes
// against orders happen inside the cut transaction owned by the cuts
// package.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, folio, centro_id, service_id, area_id, team_lead_id, description,
status, split_status, parent_ot_id, split_index, quality_result,
subtotal, tax_amount, total_amount, created_by, created_at, updated_at`

// Get returns the order with its lines or legacy items.
func (r *Repository) Get(ctx context.Context, id int64) (*WorkOrder, error) {
	o, err := r.scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM work_orders WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadConcepts(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByFolio returns the order identified by its human folio.
func (r *Repository) GetByFolio(ctx context.Context, folio string) (*WorkOrder, error) {
	o, err := r.scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM work_orders WHERE folio=$1`, folio))
	if err != nil {
		return nil, err
	}
	if err := r.loadConcepts(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	CentroID    *int64
	Status      *WorkOrderStatus
	SplitStatus *SplitStatus
	ParentOTID  *int64
	Limit       int
	Offset      int
}

// List returns order headers matching the filter plus the total count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]WorkOrder, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argPos := 1

	if filter.CentroID != nil {
		where += fmt.Sprintf(" AND centro_id = $%d", argPos)
		args = append(args, *filter.CentroID)
		argPos++
	}
	if filter.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *filter.Status)
		argPos++
	}
	if filter.SplitStatus != nil {
		where += fmt.Sprintf(" AND split_status = $%d", argPos)
		args = append(args, *filter.SplitStatus)
		argPos++
	}
	if filter.ParentOTID != nil {
		where += fmt.Sprintf(" AND parent_ot_id = $%d", argPos)
		args = append(args, *filter.ParentOTID)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM work_orders "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT `+orderColumns+` FROM work_orders %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := []WorkOrder{}
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

func (r *Repository) scanOrder(row pgx.Row) (*WorkOrder, error) {
	var o WorkOrder
	err := row.Scan(
		&o.ID, &o.Folio, &o.CentroID, &o.ServiceID, &o.AreaID, &o.TeamLeadID, &o.Description,
		&o.Status, &o.SplitStatus, &o.ParentOTID, &o.SplitIndex, &o.QualityResult,
		&o.Subtotal, &o.TaxAmount, &o.TotalAmount, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *Repository) loadConcepts(ctx context.Context, o *WorkOrder) error {
	lines, err := r.serviceLines(ctx, o.ID)
	if err != nil {
		return err
	}
	if len(lines) > 0 {
		o.Lines = lines
		return nil
	}
	items, err := r.legacyItems(ctx, o.ID)
	if err != nil {
		return err
	}
	o.Items = items
	return nil
}

func (r *Repository) serviceLines(ctx context.Context, orderID int64) ([]ServiceLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, service_id, label, contracted, unit_price, created_at
FROM work_order_lines WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ServiceLine
	for rows.Next() {
		var l ServiceLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ServiceID, &l.Label, &l.Contracted, &l.UnitPrice, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range lines {
		subs, err := r.subItems(ctx, lines[i].ID)
		if err != nil {
			return nil, err
		}
		lines[i].SubItems = subs
	}
	return lines, nil
}

func (r *Repository) subItems(ctx context.Context, lineID int64) ([]ServiceSubItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, line_id, label, planned FROM work_order_sub_items WHERE line_id=$1 ORDER BY id`, lineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []ServiceSubItem
	for rows.Next() {
		var s ServiceSubItem
		if err := rows.Scan(&s.ID, &s.LineID, &s.Label, &s.Planned); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *Repository) legacyItems(ctx context.Context, orderID int64) ([]LegacyItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, label, contracted, unit_price, created_at
FROM work_order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LegacyItem
	for rows.Next() {
		var it LegacyItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Label, &it.Contracted, &it.UnitPrice, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
