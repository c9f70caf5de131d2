package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewPeriod(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)

	p, err := NewPeriod(&start, &end)
	require.NoError(t, err)
	require.False(t, p.IsZero())

	_, err = NewPeriod(&end, &start)
	require.ErrorIs(t, err, ErrInvalidPeriod)

	// Open-ended windows are valid.
	p, err = NewPeriod(&start, nil)
	require.NoError(t, err)
	require.False(t, p.IsZero())

	p, err = NewPeriod(nil, nil)
	require.NoError(t, err)
	require.True(t, p.IsZero())
}

func TestPeriodContains(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	p := Period{Start: &start, End: &end}

	require.True(t, p.Contains(start))
	require.True(t, p.Contains(end))
	require.True(t, p.Contains(start.AddDate(0, 0, 15)))
	require.False(t, p.Contains(start.Add(-time.Second)))
	require.False(t, p.Contains(end.Add(time.Second)))

	// Zero window matches everything.
	require.True(t, Period{}.Contains(time.Now()))

	open := Period{Start: &start}
	require.True(t, open.Contains(end.AddDate(1, 0, 0)))
	require.False(t, open.Contains(start.Add(-time.Hour)))
}
