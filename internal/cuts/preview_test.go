package cuts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-ops/atlas-ops/internal/orders"
	"github.com/atlas-ops/atlas-ops/internal/shared"
)

func TestPreviewSuggestions(t *testing.T) {
	repo := newMemoryRepo()
	seedOrder(repo)
	repo.concepts[1] = append(repo.concepts[1], Concept{
		Ref:              orders.LineRef{Kind: orders.KindLegacyItem, ID: 31},
		Label:            "Bumper replacement",
		Contracted:       12,
		UnitPrice:        450,
		ExecutedTotal:    10,
		ExecutedInPeriod: 10,
		CutPreviously:    7,
	})
	svc := newTestService(repo)

	suggestions, err := svc.Preview(context.Background(), 1, shared.Period{})
	require.NoError(t, err)
	require.Len(t, suggestions, 3)

	// Window-bounded: in-period execution is the smallest of the three.
	fence := suggestions[0]
	require.Equal(t, "Fence installation", fence.Label)
	require.InDelta(t, 25.0, fence.Suggestion, 0.001)
	require.InDelta(t, 8750.0, fence.SuggestedAmount, 0.001)

	// Previous cuts shrink what is left to bill: 10 executed - 7 cut = 3.
	bumper := suggestions[2]
	require.InDelta(t, 3.0, bumper.ExecutedNotCut, 0.001)
	require.InDelta(t, 3.0, bumper.Suggestion, 0.001)
	require.InDelta(t, 1350.0, bumper.SuggestedAmount, 0.001)
}

func TestPreviewIsReadOnlyAndRepeatable(t *testing.T) {
	repo := newMemoryRepo()
	seedOrder(repo)
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Preview(ctx, 1, shared.Period{})
	require.NoError(t, err)
	second, err := svc.Preview(ctx, 1, shared.Period{})
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Empty(t, repo.cuts)
}

func TestPreviewNeverSuggestsNegative(t *testing.T) {
	repo := newMemoryRepo()
	seedOrder(repo)
	// Cut beyond what was executed, e.g. after manual corrections.
	repo.concepts[1] = []Concept{{
		Ref:           orders.LineRef{Kind: orders.KindServiceLine, ID: 11},
		Label:         "Fence installation",
		Contracted:    120,
		UnitPrice:     350,
		ExecutedTotal: 30,
		CutPreviously: 45,
	}}
	svc := newTestService(repo)

	suggestions, err := svc.Preview(context.Background(), 1, shared.Period{})
	require.NoError(t, err)
	require.InDelta(t, 0.0, suggestions[0].ExecutedNotCut, 0.001)
	require.InDelta(t, 0.0, suggestions[0].Suggestion, 0.001)
}

func TestPreviewUnknownOrder(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.Preview(context.Background(), 42, shared.Period{})
	require.ErrorIs(t, err, orders.ErrNotFound)
}
