package ledger

// ReportProgressRequest is the JSON payload for a progress report.
type ReportProgressRequest struct {
	LineKind  string  `json:"line_kind" validate:"required,oneof=SERVICE_LINE LEGACY_ITEM"`
	LineID    int64   `json:"line_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	Note      string  `json:"note,omitempty" validate:"max=500"`
	RequestID string  `json:"request_id,omitempty" validate:"omitempty,uuid4"`
	ActorID   int64   `json:"actor_id" validate:"required,gt=0"`
}
