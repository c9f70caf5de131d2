package cuts

import "fmt"

// CutFolio derives the human folio for a cut from the parent order's
// folio and the per-order sequence number. Stable and sortable by
// creation order within an order.
func CutFolio(orderFolio string, seq int) string {
	return fmt.Sprintf("%s-C%02d", orderFolio, seq)
}

// ChildFolio derives the folio for a remainder child order from the root
// ancestor's folio and the split index.
func ChildFolio(rootFolio string, splitIndex int) string {
	return fmt.Sprintf("%s-R%d", rootFolio, splitIndex)
}
