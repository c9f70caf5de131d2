package orders

// ListWorkOrdersRequest carries list filters parsed from the query string.
type ListWorkOrdersRequest struct {
	CentroID    *int64           `json:"centro_id,omitempty"`
	Status      *WorkOrderStatus `json:"status,omitempty"`
	SplitStatus *SplitStatus     `json:"split_status,omitempty"`
	Limit       int              `json:"limit" validate:"gte=0,lte=1000"`
	Offset      int              `json:"offset" validate:"gte=0"`
}
