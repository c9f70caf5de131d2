package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/atlas-ops/atlas-ops/internal/orders"
	"github.com/atlas-ops/atlas-ops/internal/shared"
)

// Progress-report validation failures.
var (
	ErrInvalidQuantity = errors.New("reported quantity must be positive")
	ErrUnknownLine     = errors.New("line does not belong to order")
	ErrOverExecution   = errors.New("reported quantity exceeds contracted")
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	ExecutedTotal(ctx context.Context, ref orders.LineRef) (float64, error)
	ExecutedInPeriod(ctx context.Context, ref orders.LineRef, period shared.Period) (float64, error)
	Insert(ctx context.Context, e Entry) (int64, error)
	ListForOrder(ctx context.Context, orderID int64) ([]Entry, error)
}

// OrdersPort exposes the order lookup the service needs.
type OrdersPort interface {
	Get(ctx context.Context, id int64) (*orders.WorkOrder, error)
}

// Service handles progress reporting and aggregate reads.
type Service struct {
	repo        RepositoryPort
	orders      OrdersPort
	idempotency *shared.IdempotencyStore
}

// NewService builds Service.
func NewService(repo RepositoryPort, ordersPort OrdersPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, orders: ordersPort, idempotency: idem}
}

// ReportInput describes one progress report.
type ReportInput struct {
	OrderID   int64
	Line      orders.LineRef
	Quantity  float64
	Note      string
	RequestID string
	ActorID   int64
}

// Report appends an execution entry. Duplicate submissions carrying the
// same request id are rejected with ErrIdempotencyConflict instead of
// double-counting.
func (s *Service) Report(ctx context.Context, input ReportInput) (Entry, error) {
	if input.Quantity <= 0 {
		return Entry{}, ErrInvalidQuantity
	}

	order, err := s.orders.Get(ctx, input.OrderID)
	if err != nil {
		return Entry{}, fmt.Errorf("get order: %w", err)
	}

	contracted, unitPrice, ok := findConcept(order, input.Line)
	if !ok {
		return Entry{}, ErrUnknownLine
	}

	executed, err := s.repo.ExecutedTotal(ctx, input.Line)
	if err != nil {
		return Entry{}, fmt.Errorf("executed total: %w", err)
	}
	if executed+input.Quantity > contracted {
		return Entry{}, fmt.Errorf("%w: reported %v + executed %v > contracted %v",
			ErrOverExecution, input.Quantity, executed, contracted)
	}

	if input.RequestID == "" {
		input.RequestID = uuid.NewString()
	}
	inserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, "LEDGER:"+input.RequestID, "ledger.report"); err != nil {
			return Entry{}, err
		}
		inserted = true
	}

	entry := Entry{
		OrderID:    input.OrderID,
		Line:       input.Line,
		Quantity:   input.Quantity,
		UnitPrice:  unitPrice,
		Note:       input.Note,
		RequestID:  input.RequestID,
		ReportedBy: input.ActorID,
	}
	id, err := s.repo.Insert(ctx, entry)
	if err != nil {
		if inserted {
			_ = s.idempotency.Delete(ctx, "LEDGER:"+input.RequestID)
		}
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	entry.ID = id
	return entry, nil
}

// ListForOrder returns the order's execution history.
func (s *Service) ListForOrder(ctx context.Context, orderID int64) ([]Entry, error) {
	return s.repo.ListForOrder(ctx, orderID)
}

func findConcept(order *orders.WorkOrder, ref orders.LineRef) (contracted, unitPrice float64, ok bool) {
	switch ref.Kind {
	case orders.KindServiceLine:
		for _, l := range order.Lines {
			if l.ID == ref.ID {
				return l.Contracted, l.UnitPrice, true
			}
		}
	case orders.KindLegacyItem:
		for _, it := range order.Items {
			if it.ID == ref.ID {
				return it.Contracted, it.UnitPrice, true
			}
		}
	}
	return 0, 0, false
}
