// Package ledger owns the append-only execution record: reported work
// quantities per order line. The billing core reads aggregates from it
// and never mutates entries.
package ledger

import (
	"time"

	"github.com/atlas-ops/atlas-ops/internal/orders"
)

// Entry is one immutable execution report against a line.
type Entry struct {
	ID         int64           `json:"id" db:"id"`
	OrderID    int64           `json:"order_id" db:"order_id"`
	Line       orders.LineRef  `json:"line" db:"-"`
	Quantity   float64         `json:"quantity" db:"quantity"`
	UnitPrice  float64         `json:"unit_price" db:"unit_price"`
	Note       string          `json:"note,omitempty" db:"note"`
	RequestID  string          `json:"request_id" db:"request_id"`
	ReportedBy int64           `json:"reported_by" db:"reported_by"`
	ReportedAt time.Time       `json:"reported_at" db:"reported_at"`
}
