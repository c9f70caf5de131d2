package cuts

import (
	"errors"
	"fmt"

	"github.com/atlas-ops/atlas-ops/internal/orders"
)

// Sentinel errors for the cut validation taxonomy. The typed errors
// below wrap these so callers can branch with errors.Is while the
// message still names the offending concept and the violated bound.
var (
	ErrInvalidInput      = errors.New("invalid cut input")
	ErrOverCut           = errors.New("quantity exceeds executed-not-yet-cut")
	ErrOverContract      = errors.New("quantity exceeds contracted")
	ErrEmptyCut          = errors.New("a cut must bill at least one concept")
	ErrIllegalTransition = errors.New("illegal cut status transition")

	// ErrFolioTaken is internal: the folio sequence collided and the
	// whole transaction is retried. Never returned to the caller.
	ErrFolioTaken = errors.New("cut folio already taken")
)

// OverCutError reports a detail row asking for more than the line's
// executed-not-yet-cut quantity.
type OverCutError struct {
	Line      orders.LineRef
	Label     string
	Requested float64
	Available float64
}

func (e *OverCutError) Error() string {
	return fmt.Sprintf("quantity to cut (%v) exceeds executed-not-yet-cut (%v) for concept %s",
		e.Requested, e.Available, e.Label)
}

func (e *OverCutError) Unwrap() error { return ErrOverCut }

// OverContractError reports a detail row asking for more than the line's
// contracted quantity.
type OverContractError struct {
	Line       orders.LineRef
	Label      string
	Requested  float64
	Contracted float64
}

func (e *OverContractError) Error() string {
	return fmt.Sprintf("quantity to cut (%v) exceeds contracted (%v) for concept %s",
		e.Requested, e.Contracted, e.Label)
}

func (e *OverContractError) Unwrap() error { return ErrOverContract }

// InputError reports a structurally invalid request, e.g. a line that
// does not belong to the order.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid cut input: %s", e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// TransitionError reports a rejected cut status change.
type TransitionError struct {
	From CutStatus
	To   CutStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal cut status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// IsValidationError reports whether the error belongs to the
// caller-correctable taxonomy (HTTP 422, no retry).
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrOverCut) ||
		errors.Is(err, ErrOverContract) ||
		errors.Is(err, ErrEmptyCut) ||
		errors.Is(err, ErrIllegalTransition)
}
