package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-ops/atlas-ops/internal/orders"
	"github.com/atlas-ops/atlas-ops/internal/shared"
)

type memoryLedger struct {
	entries []Entry
	nextID  int64
}

func (m *memoryLedger) ExecutedTotal(_ context.Context, ref orders.LineRef) (float64, error) {
	total := 0.0
	for _, e := range m.entries {
		if e.Line == ref {
			total += e.Quantity
		}
	}
	return total, nil
}

func (m *memoryLedger) ExecutedInPeriod(_ context.Context, ref orders.LineRef, period shared.Period) (float64, error) {
	total := 0.0
	for _, e := range m.entries {
		if e.Line == ref && period.Contains(e.ReportedAt) {
			total += e.Quantity
		}
	}
	return total, nil
}

func (m *memoryLedger) Insert(_ context.Context, e Entry) (int64, error) {
	m.nextID++
	e.ID = m.nextID
	m.entries = append(m.entries, e)
	return e.ID, nil
}

func (m *memoryLedger) ListForOrder(_ context.Context, orderID int64) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memoryOrders struct {
	order *orders.WorkOrder
}

func (m *memoryOrders) Get(_ context.Context, id int64) (*orders.WorkOrder, error) {
	if m.order == nil || m.order.ID != id {
		return nil, orders.ErrNotFound
	}
	return m.order, nil
}

func seedLedgerOrder() *orders.WorkOrder {
	return &orders.WorkOrder{
		ID:    1,
		Folio: "OT-2025-0011",
		Lines: []orders.ServiceLine{
			{ID: 11, OrderID: 1, Label: "Fixture replacement", Contracted: 200, UnitPrice: 180},
		},
		Items: []orders.LegacyItem{
			{ID: 21, OrderID: 1, Label: "Bumper replacement", Contracted: 12, UnitPrice: 450},
		},
	}
}

func TestReportAppendsEntry(t *testing.T) {
	repo := &memoryLedger{}
	svc := NewService(repo, &memoryOrders{order: seedLedgerOrder()}, nil)
	ctx := context.Background()

	entry, err := svc.Report(ctx, ReportInput{
		OrderID:  1,
		Line:     orders.LineRef{Kind: orders.KindServiceLine, ID: 11},
		Quantity: 80,
		Note:     "week 24",
		ActorID:  9,
	})
	require.NoError(t, err)
	require.NotZero(t, entry.ID)
	require.InDelta(t, 180.0, entry.UnitPrice, 0.001)
	require.NotEmpty(t, entry.RequestID)

	total, err := repo.ExecutedTotal(ctx, entry.Line)
	require.NoError(t, err)
	require.InDelta(t, 80.0, total, 0.001)
}

func TestReportLegacyItem(t *testing.T) {
	repo := &memoryLedger{}
	svc := NewService(repo, &memoryOrders{order: seedLedgerOrder()}, nil)

	entry, err := svc.Report(context.Background(), ReportInput{
		OrderID:  1,
		Line:     orders.LineRef{Kind: orders.KindLegacyItem, ID: 21},
		Quantity: 6,
		ActorID:  9,
	})
	require.NoError(t, err)
	require.InDelta(t, 450.0, entry.UnitPrice, 0.001)
}

func TestReportRejectsOverExecution(t *testing.T) {
	repo := &memoryLedger{}
	svc := NewService(repo, &memoryOrders{order: seedLedgerOrder()}, nil)
	ctx := context.Background()

	_, err := svc.Report(ctx, ReportInput{
		OrderID:  1,
		Line:     orders.LineRef{Kind: orders.KindServiceLine, ID: 11},
		Quantity: 150,
		ActorID:  9,
	})
	require.NoError(t, err)

	// 150 + 60 would exceed the contracted 200.
	_, err = svc.Report(ctx, ReportInput{
		OrderID:  1,
		Line:     orders.LineRef{Kind: orders.KindServiceLine, ID: 11},
		Quantity: 60,
		ActorID:  9,
	})
	require.ErrorIs(t, err, ErrOverExecution)
	require.Len(t, repo.entries, 1)
}

func TestReportValidation(t *testing.T) {
	repo := &memoryLedger{}
	svc := NewService(repo, &memoryOrders{order: seedLedgerOrder()}, nil)
	ctx := context.Background()

	_, err := svc.Report(ctx, ReportInput{OrderID: 1, Line: orders.LineRef{Kind: orders.KindServiceLine, ID: 11}, Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Report(ctx, ReportInput{OrderID: 1, Line: orders.LineRef{Kind: orders.KindServiceLine, ID: 99}, Quantity: 1})
	require.ErrorIs(t, err, ErrUnknownLine)

	_, err = svc.Report(ctx, ReportInput{OrderID: 77, Line: orders.LineRef{Kind: orders.KindServiceLine, ID: 11}, Quantity: 1})
	require.ErrorIs(t, err, orders.ErrNotFound)
}
