package cuts

import "github.com/atlas-ops/atlas-ops/internal/orders"

// ValidateCutTransition checks a requested cut status change. BILLED and
// VOID are terminal.
func ValidateCutTransition(from, to CutStatus) error {
	switch from {
	case CutStatusDraft:
		if to == CutStatusReadyToBill || to == CutStatusVoid {
			return nil
		}
	case CutStatusReadyToBill:
		if to == CutStatusBilled || to == CutStatusVoid {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

// parentChanges describes the status updates applied to the parent order
// once a cut commits.
type parentChanges struct {
	SplitStatus     orders.SplitStatus
	SplitChanged    bool
	AdvanceWorkflow bool
	InitQuality     bool
}

// coordinateParent decides the parent order's post-cut status updates.
// CLOSED means fully cut, so the split only closes when no line carries
// a remainder, whether or not a child order was spawned for it. The
// split status only moves forward: PARTIAL and CLOSED never regress to
// ACTIVE, and a CLOSED or CANCELED order is left untouched.
func coordinateParent(order orders.WorkOrder, hasRemainder bool) parentChanges {
	ch := parentChanges{
		AdvanceWorkflow: !order.Status.Terminal(),
		InitQuality:     order.QualityResult == nil,
	}

	switch order.SplitStatus {
	case orders.SplitClosed, orders.SplitCanceled:
		return ch
	}

	target := orders.SplitClosed
	if hasRemainder {
		target = orders.SplitPartial
	}
	if target != order.SplitStatus {
		ch.SplitStatus = target
		ch.SplitChanged = true
	}
	return ch
}
