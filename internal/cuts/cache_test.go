package cuts

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestListCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewListCache(client, time.Minute)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 1)
	require.False(t, ok)

	results := []CutResult{{ID: 5, Folio: "OT-1-C01", OrderID: 1, Status: CutStatusReadyToBill, TotalAmount: 100, Details: []CutDetail{}}}
	cache.Set(ctx, 1, results)

	got, ok := cache.Get(ctx, 1)
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Equal(t, "OT-1-C01", got[0].Folio)

	cache.Invalidate(ctx, 1)
	_, ok = cache.Get(ctx, 1)
	require.False(t, ok)
}

func TestListCacheExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewListCache(client, time.Second)
	ctx := context.Background()

	cache.Set(ctx, 7, []CutResult{{ID: 1, OrderID: 7}})
	mr.FastForward(2 * time.Second)

	_, ok := cache.Get(ctx, 7)
	require.False(t, ok)
}

func TestListCacheNilSafe(t *testing.T) {
	var cache *ListCache
	ctx := context.Background()

	_, ok := cache.Get(ctx, 1)
	require.False(t, ok)
	cache.Set(ctx, 1, nil)
	cache.Invalidate(ctx, 1)
}

func TestListCacheServesAfterInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repo := newMemoryRepo()
	seedOrder(repo)
	svc := NewService(repo, nil, nil, nil, NewListCache(client, time.Minute), testLogger(), ServiceConfig{})
	ctx := context.Background()

	first, err := svc.ListCuts(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, first)

	created, err := svc.CreateCut(ctx, CreateCutInput{
		OrderID: 1,
		Details: []CutDetailInput{
			{Line: repo.concepts[1][0].Ref, Quantity: 5},
		},
		ActorID: 9,
	})
	require.NoError(t, err)

	// The write invalidated the cached empty listing.
	listed, err := svc.ListCuts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, created.ID, listed[0].ID)
}
