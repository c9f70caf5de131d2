package cuts

import (
	"context"
	"fmt"

	"github.com/atlas-ops/atlas-ops/internal/shared"
)

// Preview computes per-concept billable suggestions for an order without
// persisting anything. Read-only and idempotent; the authoritative check
// happens again under lock inside CreateCut.
func (s *Service) Preview(ctx context.Context, orderID int64, period shared.Period) ([]ConceptSuggestion, error) {
	if _, err := s.repo.GetOrder(ctx, orderID); err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	concepts, err := s.repo.Concepts(ctx, orderID, period)
	if err != nil {
		return nil, fmt.Errorf("load concepts: %w", err)
	}

	suggestions := make([]ConceptSuggestion, 0, len(concepts))
	for _, c := range concepts {
		notCut := c.ExecutedNotCut()
		suggestion := minOf(c.ExecutedInPeriod, notCut, c.Contracted)
		suggestions = append(suggestions, ConceptSuggestion{
			Line:             c.Ref,
			Label:            c.Label,
			Contracted:       c.Contracted,
			ExecutedTotal:    c.ExecutedTotal,
			CutPreviously:    c.CutPreviously,
			ExecutedNotCut:   notCut,
			ExecutedInPeriod: c.ExecutedInPeriod,
			UnitPrice:        c.UnitPrice,
			Suggestion:       suggestion,
			SuggestedAmount:  round2(suggestion * c.UnitPrice),
		})
	}
	return suggestions, nil
}

func minOf(values ...float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
