package cuts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-ops/atlas-ops/internal/orders"
)

func subItems(planned ...int) []orders.ServiceSubItem {
	out := make([]orders.ServiceSubItem, len(planned))
	for i, p := range planned {
		out[i] = orders.ServiceSubItem{ID: int64(i + 1), Planned: p}
	}
	return out
}

func TestDistributeRemainderProportional(t *testing.T) {
	qtys := distributeRemainder(subItems(40, 60, 20), 95)
	require.Equal(t, []int{31, 49, 15}, qtys)

	sum := 0
	for _, q := range qtys {
		sum += q
	}
	require.Equal(t, 95, sum)
}

func TestDistributeRemainderLeftoverGoesToLargestShare(t *testing.T) {
	// 10 units over shares 1:1:1 leaves one truncated unit; it lands on
	// the first largest sub-item, never disappears.
	qtys := distributeRemainder(subItems(5, 5, 5), 10)
	require.Equal(t, []int{4, 3, 3}, qtys)
}

func TestDistributeRemainderEvenWhenUnplanned(t *testing.T) {
	qtys := distributeRemainder(subItems(0, 0, 0), 7)
	require.Equal(t, []int{3, 2, 2}, qtys)
}

func TestDistributeRemainderExactShares(t *testing.T) {
	qtys := distributeRemainder(subItems(2, 3, 5), 10)
	require.Equal(t, []int{2, 3, 5}, qtys)
}

func TestDistributeRemainderEdges(t *testing.T) {
	require.Empty(t, distributeRemainder(nil, 10))
	require.Equal(t, []int{0, 0}, distributeRemainder(subItems(1, 1), 0))
	require.Equal(t, []int{0, 0}, distributeRemainder(subItems(1, 1), 0.3))
	require.Equal(t, []int{1}, distributeRemainder(subItems(100), 1))
}
