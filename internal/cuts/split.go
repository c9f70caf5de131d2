package cuts

import (
	"context"
	"fmt"
	"math"

	"github.com/atlas-ops/atlas-ops/internal/orders"
)

// quantities this close to zero are treated as fully consumed
const remainderEpsilon = 1e-9

// spawnChild creates the order that carries unbilled remainders forward.
// Runs inside the cut transaction. Returns nil when every line is fully
// cut, which is the normal terminal case.
func (s *Service) spawnChild(ctx context.Context, tx TxRepository, parent orders.WorkOrder, concepts []Concept, cutNow map[orders.LineRef]float64, actorID int64) (*orders.WorkOrder, error) {
	var remaining []Concept
	var remainders []float64
	for _, c := range concepts {
		rem := c.Contracted - (c.CutPreviously + cutNow[c.Ref])
		if rem > remainderEpsilon {
			remaining = append(remaining, c)
			remainders = append(remainders, rem)
		}
	}
	if len(remaining) == 0 {
		return nil, nil
	}

	// Children always hang off the top-most ancestor so the chain stays
	// one level deep.
	rootID := parent.RootID()
	rootFolio := parent.Folio
	if rootID != parent.ID {
		root, err := tx.GetOrder(ctx, rootID)
		if err != nil {
			return nil, fmt.Errorf("get root order: %w", err)
		}
		rootFolio = root.Folio
	}

	splitIndex, err := tx.NextSplitIndex(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("next split index: %w", err)
	}

	child := orders.WorkOrder{
		Folio:       ChildFolio(rootFolio, splitIndex),
		CentroID:    parent.CentroID,
		ServiceID:   parent.ServiceID,
		AreaID:      parent.AreaID,
		TeamLeadID:  parent.TeamLeadID,
		Description: fmt.Sprintf("Remainder carried forward from order %s", parent.Folio),
		Status:      orders.StatusGenerated,
		SplitStatus: orders.SplitActive,
		ParentOTID:  &rootID,
		SplitIndex:  splitIndex,
		CreatedBy:   actorID,
	}
	childID, err := tx.InsertChildOrder(ctx, child)
	if err != nil {
		return nil, fmt.Errorf("insert child order: %w", err)
	}
	child.ID = childID

	var subtotal float64
	for i, c := range remaining {
		rem := remainders[i]
		subtotal += rem * c.UnitPrice

		switch c.Ref.Kind {
		case orders.KindServiceLine:
			lineID, err := tx.InsertChildLine(ctx, orders.ServiceLine{
				OrderID:    childID,
				ServiceID:  c.ServiceID,
				Label:      c.Label,
				Contracted: rem,
				UnitPrice:  c.UnitPrice,
			})
			if err != nil {
				return nil, fmt.Errorf("insert child line: %w", err)
			}
			qtys := distributeRemainder(c.SubItems, rem)
			for j, sub := range c.SubItems {
				if qtys[j] == 0 {
					continue
				}
				if err := tx.InsertChildSubItem(ctx, orders.ServiceSubItem{
					LineID:  lineID,
					Label:   sub.Label,
					Planned: qtys[j],
				}); err != nil {
					return nil, fmt.Errorf("insert child sub item: %w", err)
				}
			}
		case orders.KindLegacyItem:
			if _, err := tx.InsertChildItem(ctx, orders.LegacyItem{
				OrderID:    childID,
				Label:      c.Label,
				Contracted: rem,
				UnitPrice:  c.UnitPrice,
			}); err != nil {
				return nil, fmt.Errorf("insert child item: %w", err)
			}
		}
	}

	subtotal = round2(subtotal)
	tax := round2(subtotal * orders.TaxRate)
	if err := tx.UpdateOrderTotals(ctx, childID, subtotal, tax, round2(subtotal+tax)); err != nil {
		return nil, fmt.Errorf("update child totals: %w", err)
	}
	child.Subtotal = subtotal
	child.TaxAmount = tax
	child.TotalAmount = round2(subtotal + tax)

	return &child, nil
}

// distributeRemainder splits a line's remainder across its sub-items
// proportionally to each sub-item's share of the planned total, rounding
// down to whole units. The leftover units from truncation go to the
// sub-item with the largest planned share so the distributed quantities
// sum exactly to the rounded remainder. With no planned quantities the
// split is even.
func distributeRemainder(subItems []orders.ServiceSubItem, remainder float64) []int {
	qtys := make([]int, len(subItems))
	if len(subItems) == 0 {
		return qtys
	}
	units := int(math.Round(remainder))
	if units <= 0 {
		return qtys
	}

	totalPlanned := 0
	for _, s := range subItems {
		totalPlanned += s.Planned
	}

	if totalPlanned == 0 {
		base := units / len(subItems)
		extra := units % len(subItems)
		for i := range qtys {
			qtys[i] = base
			if i < extra {
				qtys[i]++
			}
		}
		return qtys
	}

	assigned := 0
	largest := 0
	for i, s := range subItems {
		qtys[i] = int(math.Floor(float64(units) * float64(s.Planned) / float64(totalPlanned)))
		assigned += qtys[i]
		if s.Planned > subItems[largest].Planned {
			largest = i
		}
	}
	qtys[largest] += units - assigned
	return qtys
}
