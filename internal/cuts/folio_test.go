package cuts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCutFolio(t *testing.T) {
	require.Equal(t, "OT-2025-0007-C01", CutFolio("OT-2025-0007", 1))
	require.Equal(t, "OT-2025-0007-C12", CutFolio("OT-2025-0007", 12))
	// More than 99 cuts widens the suffix instead of wrapping.
	require.Equal(t, "OT-2025-0007-C103", CutFolio("OT-2025-0007", 103))
}

func TestChildFolio(t *testing.T) {
	require.Equal(t, "OT-2025-0007-R1", ChildFolio("OT-2025-0007", 1))
	require.Equal(t, "OT-2025-0007-R10", ChildFolio("OT-2025-0007", 10))
}
