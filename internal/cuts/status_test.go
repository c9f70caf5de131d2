package cuts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-ops/atlas-ops/internal/orders"
)

func TestValidateCutTransition(t *testing.T) {
	cases := []struct {
		from, to CutStatus
		ok       bool
	}{
		{CutStatusDraft, CutStatusReadyToBill, true},
		{CutStatusDraft, CutStatusVoid, true},
		{CutStatusDraft, CutStatusBilled, false},
		{CutStatusReadyToBill, CutStatusBilled, true},
		{CutStatusReadyToBill, CutStatusVoid, true},
		{CutStatusReadyToBill, CutStatusDraft, false},
		{CutStatusBilled, CutStatusVoid, false},
		{CutStatusBilled, CutStatusReadyToBill, false},
		{CutStatusVoid, CutStatusDraft, false},
		{CutStatusVoid, CutStatusReadyToBill, false},
	}
	for _, tc := range cases {
		err := ValidateCutTransition(tc.from, tc.to)
		if tc.ok {
			require.NoError(t, err, "%s -> %s", tc.from, tc.to)
		} else {
			require.ErrorIs(t, err, ErrIllegalTransition, "%s -> %s", tc.from, tc.to)
		}
	}
}

func TestCoordinateParentRemainderKeepsSplitOpen(t *testing.T) {
	order := orders.WorkOrder{Status: orders.StatusInProgress, SplitStatus: orders.SplitActive}

	ch := coordinateParent(order, true)
	require.True(t, ch.SplitChanged)
	require.Equal(t, orders.SplitPartial, ch.SplitStatus)
	require.True(t, ch.AdvanceWorkflow)
	require.True(t, ch.InitQuality)
}

func TestCoordinateParentClosesWhenFullyCut(t *testing.T) {
	order := orders.WorkOrder{Status: orders.StatusInProgress, SplitStatus: orders.SplitPartial}

	ch := coordinateParent(order, false)
	require.True(t, ch.SplitChanged)
	require.Equal(t, orders.SplitClosed, ch.SplitStatus)
}

func TestCoordinateParentSplitNeverRegresses(t *testing.T) {
	// PARTIAL stays PARTIAL while a remainder persists.
	ch := coordinateParent(orders.WorkOrder{SplitStatus: orders.SplitPartial}, true)
	require.False(t, ch.SplitChanged)

	// CLOSED and CANCELED are never touched.
	for _, s := range []orders.SplitStatus{orders.SplitClosed, orders.SplitCanceled} {
		ch := coordinateParent(orders.WorkOrder{SplitStatus: s}, false)
		require.False(t, ch.SplitChanged, string(s))
	}
}

func TestCoordinateParentTerminalWorkflow(t *testing.T) {
	for _, s := range []orders.WorkOrderStatus{orders.StatusClientAuthorized, orders.StatusInvoiced, orders.StatusDelivered} {
		ch := coordinateParent(orders.WorkOrder{Status: s, SplitStatus: orders.SplitActive}, true)
		require.False(t, ch.AdvanceWorkflow, string(s))
	}
	ch := coordinateParent(orders.WorkOrder{Status: orders.StatusAssigned, SplitStatus: orders.SplitActive}, true)
	require.True(t, ch.AdvanceWorkflow)
}

func TestCoordinateParentQualityInitOnce(t *testing.T) {
	passed := "PASSED"
	ch := coordinateParent(orders.WorkOrder{QualityResult: &passed}, false)
	require.False(t, ch.InitQuality)

	ch = coordinateParent(orders.WorkOrder{}, false)
	require.True(t, ch.InitQuality)
}
