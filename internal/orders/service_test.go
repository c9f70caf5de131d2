package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryOrders struct {
	byID map[int64]*WorkOrder
}

func (m *memoryOrders) Get(_ context.Context, id int64) (*WorkOrder, error) {
	if o, ok := m.byID[id]; ok {
		return o, nil
	}
	return nil, ErrNotFound
}

func (m *memoryOrders) GetByFolio(_ context.Context, folio string) (*WorkOrder, error) {
	for _, o := range m.byID {
		if o.Folio == folio {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryOrders) List(_ context.Context, filter ListFilter) ([]WorkOrder, int, error) {
	var out []WorkOrder
	for _, o := range m.byID {
		if filter.ParentOTID != nil && (o.ParentOTID == nil || *o.ParentOTID != *filter.ParentOTID) {
			continue
		}
		out = append(out, *o)
	}
	return out, len(out), nil
}

func TestChildren(t *testing.T) {
	rootID := int64(1)
	repo := &memoryOrders{byID: map[int64]*WorkOrder{
		1: {ID: 1, Folio: "OT-ROOT"},
		2: {ID: 2, Folio: "OT-ROOT-R1", ParentOTID: &rootID, SplitIndex: 1},
		3: {ID: 3, Folio: "OT-ROOT-R2", ParentOTID: &rootID, SplitIndex: 2},
		4: {ID: 4, Folio: "OT-OTHER"},
	}}
	svc := NewService(repo)
	ctx := context.Background()

	children, err := svc.Children(ctx, rootID)
	require.NoError(t, err)
	require.Len(t, children, 2)

	_, err = svc.Children(ctx, 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRootID(t *testing.T) {
	rootID := int64(7)
	require.Equal(t, int64(7), WorkOrder{ID: 7}.RootID())
	require.Equal(t, int64(7), WorkOrder{ID: 12, ParentOTID: &rootID}.RootID())
}
