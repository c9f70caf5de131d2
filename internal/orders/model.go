package orders

import "time"

// WorkOrderStatus is the business workflow status of a work order.
type WorkOrderStatus string

const (
	StatusGenerated        WorkOrderStatus = "GENERATED"
	StatusAssigned         WorkOrderStatus = "ASSIGNED"
	StatusInProgress       WorkOrderStatus = "IN_PROGRESS"
	StatusCompleted        WorkOrderStatus = "COMPLETED"
	StatusClientAuthorized WorkOrderStatus = "CLIENT_AUTHORIZED"
	StatusInvoiced         WorkOrderStatus = "INVOICED"
	StatusDelivered        WorkOrderStatus = "DELIVERED"
)

// Terminal reports whether the workflow status must never be overwritten
// by the billing flow.
func (s WorkOrderStatus) Terminal() bool {
	switch s {
	case StatusClientAuthorized, StatusInvoiced, StatusDelivered:
		return true
	}
	return false
}

// SplitStatus tracks whether the order's contracted quantity has been
// fully carved into billing cuts. Orthogonal to the workflow status.
type SplitStatus string

const (
	SplitActive   SplitStatus = "ACTIVE"
	SplitPartial  SplitStatus = "PARTIAL"
	SplitClosed   SplitStatus = "CLOSED"
	SplitCanceled SplitStatus = "CANCELED"
)

// QualityPending is the initial quality-review result set when an order
// is first closed out by billing.
const QualityPending = "PENDING"

// TaxRate applied when recomputing order totals from lines.
const TaxRate = 0.16

// WorkOrder is the billable unit of contracted work. An order carries
// either ServiceLines (multi-service shape) or Items (legacy shape),
// never both.
type WorkOrder struct {
	ID            int64           `json:"id" db:"id"`
	Folio         string          `json:"folio" db:"folio"`
	CentroID      int64           `json:"centro_id" db:"centro_id"`
	ServiceID     int64           `json:"service_id" db:"service_id"`
	AreaID        int64           `json:"area_id" db:"area_id"`
	TeamLeadID    int64           `json:"team_lead_id" db:"team_lead_id"`
	Description   string          `json:"description" db:"description"`
	Status        WorkOrderStatus `json:"status" db:"status"`
	SplitStatus   SplitStatus     `json:"split_status" db:"split_status"`
	ParentOTID    *int64          `json:"parent_ot_id,omitempty" db:"parent_ot_id"`
	SplitIndex    int             `json:"split_index" db:"split_index"`
	QualityResult *string         `json:"quality_result,omitempty" db:"quality_result"`
	Subtotal      float64         `json:"subtotal" db:"subtotal"`
	TaxAmount     float64         `json:"tax_amount" db:"tax_amount"`
	TotalAmount   float64         `json:"total_amount" db:"total_amount"`
	CreatedBy     int64           `json:"created_by" db:"created_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
	Lines         []ServiceLine   `json:"lines,omitempty" db:"-"`
	Items         []LegacyItem    `json:"items,omitempty" db:"-"`
}

// RootID returns the top-most ancestor id of the split chain. Children
// always point at the root, never at an intermediate child.
func (o WorkOrder) RootID() int64 {
	if o.ParentOTID != nil {
		return *o.ParentOTID
	}
	return o.ID
}

// LineKind tags which of the two coexisting line representations a
// reference points at.
type LineKind string

const (
	KindServiceLine LineKind = "SERVICE_LINE"
	KindLegacyItem  LineKind = "LEGACY_ITEM"
)

// LineRef identifies a billable concept across both representations.
type LineRef struct {
	Kind LineKind `json:"kind"`
	ID   int64    `json:"id"`
}

// ServiceLine is a billable concept in the multi-service shape.
type ServiceLine struct {
	ID          int64            `json:"id" db:"id"`
	OrderID     int64            `json:"order_id" db:"order_id"`
	ServiceID   int64            `json:"service_id" db:"service_id"`
	Label       string           `json:"label" db:"label"`
	Contracted  float64          `json:"contracted" db:"contracted"`
	UnitPrice   float64          `json:"unit_price" db:"unit_price"`
	SubItems    []ServiceSubItem `json:"sub_items,omitempty" db:"-"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// ServiceSubItem is a planned sub-quantity inside a service line.
type ServiceSubItem struct {
	ID      int64  `json:"id" db:"id"`
	LineID  int64  `json:"line_id" db:"line_id"`
	Label   string `json:"label" db:"label"`
	Planned int    `json:"planned" db:"planned"`
}

// LegacyItem is a billable concept in the legacy single-item shape. It
// exposes the same semantic fields as ServiceLine.
type LegacyItem struct {
	ID         int64     `json:"id" db:"id"`
	OrderID    int64     `json:"order_id" db:"order_id"`
	Label      string    `json:"label" db:"label"`
	Contracted float64   `json:"contracted" db:"contracted"`
	UnitPrice  float64   `json:"unit_price" db:"unit_price"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
