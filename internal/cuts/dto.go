package cuts

import "time"

// CreateCutRequest is the JSON payload for cut creation.
type CreateCutRequest struct {
	PeriodStart *time.Time            `json:"period_start,omitempty"`
	PeriodEnd   *time.Time            `json:"period_end,omitempty"`
	Details     []CreateCutDetailReq  `json:"details" validate:"required,min=1,dive"`
	SpawnChild  *bool                 `json:"spawn_child,omitempty"`
	ActorID     int64                 `json:"actor_id" validate:"required,gt=0"`
	RequestID   string                `json:"request_id,omitempty" validate:"omitempty,uuid4"`
}

// CreateCutDetailReq is one requested detail row.
type CreateCutDetailReq struct {
	LineKind string  `json:"line_kind" validate:"required,oneof=SERVICE_LINE LEGACY_ITEM"`
	LineID   int64   `json:"line_id" validate:"required,gt=0"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
}

// UpdateCutStatusRequest asks for a status transition.
type UpdateCutStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=DRAFT READY_TO_BILL BILLED VOID"`
	ActorID int64  `json:"actor_id" validate:"required,gt=0"`
}
