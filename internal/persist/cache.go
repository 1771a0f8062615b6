package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tradewind-erp/tradewind-erp/internal/ledger"
)

const snapshotCacheKey = "tradewind:snapshot:latest"

// SnapshotCache mirrors the latest saved snapshot in Redis so
// read-only consumers do not have to hit Postgres.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache constructs the cache. A zero ttl means no expiry.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

// Set stores the snapshot unless the cache already holds a newer
// revision. Queued saves can arrive out of order, and a regressed
// cache would serve readers an older ledger than the one persisted.
func (c *SnapshotCache) Set(ctx context.Context, snapshot ledger.Snapshot) error {
	if c == nil || c.client == nil {
		return nil
	}
	if cached, err := c.cachedRevision(ctx); err == nil && cached >= snapshot.Metadata.Revision {
		return nil
	}
	state, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("persist: marshal snapshot for cache: %w", err)
	}
	return c.client.Set(ctx, snapshotCacheKey, state, c.ttl).Err()
}

// cachedRevision reads just the revision of the cached snapshot.
func (c *SnapshotCache) cachedRevision(ctx context.Context) (int64, error) {
	state, err := c.client.Get(ctx, snapshotCacheKey).Bytes()
	if err != nil {
		return 0, err
	}
	var meta struct {
		Metadata ledger.Metadata `json:"metadata"`
	}
	if err := json.Unmarshal(state, &meta); err != nil {
		return 0, err
	}
	return meta.Metadata.Revision, nil
}

// Get returns the cached snapshot, or ErrNoSnapshot on a miss.
func (c *SnapshotCache) Get(ctx context.Context) (ledger.Snapshot, error) {
	if c == nil || c.client == nil {
		return ledger.Snapshot{}, ErrNoSnapshot
	}
	state, err := c.client.Get(ctx, snapshotCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ledger.Snapshot{}, ErrNoSnapshot
		}
		return ledger.Snapshot{}, fmt.Errorf("persist: cache get: %w", err)
	}
	var snapshot ledger.Snapshot
	if err := json.Unmarshal(state, &snapshot); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("persist: cache unmarshal: %w", err)
	}
	return snapshot, nil
}
