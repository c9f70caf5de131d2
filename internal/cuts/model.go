// Package cuts implements partial billing of work orders: carving
// already-executed, not-yet-billed quantity into billing cuts, spawning
// child orders that carry any unbilled remainder forward, and keeping
// the order's split lifecycle consistent.
package cuts

import (
	"math"
	"time"

	"github.com/atlas-ops/atlas-ops/internal/orders"
)

// CutStatus is the billing lifecycle of a cut.
type CutStatus string

const (
	CutStatusDraft       CutStatus = "DRAFT"
	CutStatusReadyToBill CutStatus = "READY_TO_BILL"
	CutStatusBilled      CutStatus = "BILLED"
	CutStatusVoid        CutStatus = "VOID"
)

// Cut is one billing-cut event against exactly one order.
type Cut struct {
	ID           int64      `json:"id" db:"id"`
	OrderID      int64      `json:"order_id" db:"order_id"`
	Folio        string     `json:"folio" db:"folio"`
	PeriodStart  *time.Time `json:"period_start,omitempty" db:"period_start"`
	PeriodEnd    *time.Time `json:"period_end,omitempty" db:"period_end"`
	Status       CutStatus  `json:"status" db:"status"`
	TotalAmount  float64    `json:"total_amount" db:"total_amount"`
	CreatedBy    int64      `json:"created_by" db:"created_by"`
	ChildOrderID *int64     `json:"child_order_id,omitempty" db:"child_order_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// CutDetail is one concept's contribution to a cut. Price and amount are
// snapshots frozen at cut time.
type CutDetail struct {
	ID        int64          `json:"id" db:"id"`
	CutID     int64          `json:"cut_id" db:"cut_id"`
	Line      orders.LineRef `json:"line" db:"-"`
	Label     string         `json:"label" db:"label"`
	Quantity  float64        `json:"quantity" db:"quantity"`
	UnitPrice float64        `json:"unit_price" db:"unit_price"`
	Amount    float64        `json:"amount" db:"amount"`
}

// Concept is one billable line flattened across the two order
// representations, carrying the aggregates the engine needs. The
// repository resolves which representation the order uses; from here on
// the engine is representation-agnostic.
type Concept struct {
	Ref              orders.LineRef
	Label            string
	ServiceID        int64
	Contracted       float64
	UnitPrice        float64
	ExecutedTotal    float64
	ExecutedInPeriod float64
	CutPreviously    float64
	SubItems         []orders.ServiceSubItem
}

// ExecutedNotCut is the executed quantity not yet consumed by any
// non-void cut. Never negative.
func (c Concept) ExecutedNotCut() float64 {
	if v := c.ExecutedTotal - c.CutPreviously; v > 0 {
		return v
	}
	return 0
}

// ConceptSuggestion is one preview row.
type ConceptSuggestion struct {
	Line             orders.LineRef `json:"line"`
	Label            string         `json:"label"`
	Contracted       float64        `json:"contracted"`
	ExecutedTotal    float64        `json:"executed_total"`
	CutPreviously    float64        `json:"cut_previously"`
	ExecutedNotCut   float64        `json:"executed_not_cut"`
	ExecutedInPeriod float64        `json:"executed_in_period"`
	UnitPrice        float64        `json:"unit_price"`
	Suggestion       float64        `json:"suggestion"`
	SuggestedAmount  float64        `json:"suggested_amount"`
}

// ChildOrderRef is the compact child reference returned in cut results.
type ChildOrderRef struct {
	ID          int64              `json:"id"`
	Folio       string             `json:"folio"`
	SplitStatus orders.SplitStatus `json:"split_status"`
}

// CutResult is the full API shape of a cut.
type CutResult struct {
	ID           int64          `json:"id"`
	Folio        string         `json:"folio"`
	OrderID      int64          `json:"order_id"`
	PeriodStart  *time.Time     `json:"period_start,omitempty"`
	PeriodEnd    *time.Time     `json:"period_end,omitempty"`
	Status       CutStatus      `json:"status"`
	TotalAmount  float64        `json:"total_amount"`
	CreatedBy    int64          `json:"created_by"`
	ChildOrder   *ChildOrderRef `json:"child_order,omitempty"`
	Details      []CutDetail    `json:"details"`
	CreatedAt    time.Time      `json:"created_at"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
