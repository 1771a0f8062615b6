package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tradewind-erp/tradewind-erp/internal/ledger"
)

func snapshotAtRevision(t *testing.T, revision int64) ledger.Snapshot {
	t.Helper()
	snapshot := ledger.NewSnapshot()
	snapshot.Products = []ledger.Product{{ID: 1, Name: "Rice", BagWeight: 25, CurrentStock: 10}}
	snapshot.Metadata.Revision = revision
	return snapshot
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, store.Save(ctx, snapshotAtRevision(t, 3)))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), loaded.Metadata.Revision)
	require.Equal(t, "Rice", loaded.Products[0].Name)
}

func TestMemoryStoreIgnoresStaleRevision(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, snapshotAtRevision(t, 5)))
	// A retried save of an older revision must not roll history back.
	require.NoError(t, store.Save(ctx, snapshotAtRevision(t, 2)))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), loaded.Metadata.Revision)
}

func TestMemoryStoreFailWith(t *testing.T) {
	store := NewMemoryStore()
	boom := errors.New("disk gone")
	store.FailWith(boom)
	require.ErrorIs(t, store.Save(context.Background(), snapshotAtRevision(t, 1)), boom)
}

func TestMemoryStoreLoadReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, snapshotAtRevision(t, 1)))

	first, err := store.Load(ctx)
	require.NoError(t, err)
	first.Products[0].Name = "mutated"

	second, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "Rice", second.Products[0].Name)
}

func newCacheClient(t *testing.T) *redis.Client {
	t.Helper()
	server := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: server.Addr()})
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	cache := NewSnapshotCache(newCacheClient(t), time.Minute)
	ctx := context.Background()

	_, err := cache.Get(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, cache.Set(ctx, snapshotAtRevision(t, 7)))
	cached, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(7), cached.Metadata.Revision)
	require.Len(t, cached.Products, 1)
}

func TestSnapshotCacheOverwritesOlderRevision(t *testing.T) {
	cache := NewSnapshotCache(newCacheClient(t), 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, snapshotAtRevision(t, 1)))
	require.NoError(t, cache.Set(ctx, snapshotAtRevision(t, 2)))

	cached, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), cached.Metadata.Revision)
}

func TestSnapshotCacheIgnoresStaleRevision(t *testing.T) {
	cache := NewSnapshotCache(newCacheClient(t), 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, snapshotAtRevision(t, 5)))
	// Queued saves can complete out of order; an older snapshot must
	// not regress the cache.
	require.NoError(t, cache.Set(ctx, snapshotAtRevision(t, 2)))

	cached, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), cached.Metadata.Revision)
}

func TestSnapshotCacheNilClient(t *testing.T) {
	var cache *SnapshotCache
	require.NoError(t, cache.Set(context.Background(), snapshotAtRevision(t, 1)))
	_, err := cache.Get(context.Background())
	require.ErrorIs(t, err, ErrNoSnapshot)
}
