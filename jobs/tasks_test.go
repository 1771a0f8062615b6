package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/tradewind-erp/tradewind-erp/internal/jobs"
	"github.com/tradewind-erp/tradewind-erp/internal/ledger"
	"github.com/tradewind-erp/tradewind-erp/internal/persist"
)

func sampleSnapshot(t *testing.T) ledger.Snapshot {
	t.Helper()
	snapshot := ledger.NewSnapshot()
	snapshot.Products = []ledger.Product{{ID: 1, Name: "Rice", BagWeight: 25, CostPerKg: 2.6, CurrentStock: 40}}
	snapshot.Metadata.Revision = 12
	return snapshot
}

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestLedgerPersistTaskPayload(t *testing.T) {
	task, err := NewLedgerPersistTask(sampleSnapshot(t))
	require.NoError(t, err)
	require.Equal(t, TaskLedgerPersist, task.Type())

	var payload LedgerPersistPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, int64(12), payload.Revision)

	var state ledger.Snapshot
	require.NoError(t, json.Unmarshal(payload.State, &state))
	require.Equal(t, "Rice", state.Products[0].Name)
}

func TestLedgerPersistHandlerSavesAndCaches(t *testing.T) {
	store := persist.NewMemoryStore()
	server := miniredis.RunT(t)
	cache := persist.NewSnapshotCache(redis.NewClient(&redis.Options{Addr: server.Addr()}), time.Minute)
	handler := NewLedgerPersistHandler(store, cache, testMetrics(), slog.Default())

	task, err := NewLedgerPersistTask(sampleSnapshot(t))
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(12), stored.Metadata.Revision)

	cached, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(12), cached.Metadata.Revision)
}

func TestLedgerPersistHandlerRetriesOnSaveFailure(t *testing.T) {
	store := persist.NewMemoryStore()
	boom := errors.New("postgres down")
	store.FailWith(boom)
	handler := NewLedgerPersistHandler(store, nil, testMetrics(), slog.Default())

	task, err := NewLedgerPersistTask(sampleSnapshot(t))
	require.NoError(t, err)

	err = handler(context.Background(), task)
	require.ErrorIs(t, err, boom)
	// Not SkipRetry: Asynq keeps the task for another attempt.
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestLedgerPersistHandlerSkipsBadPayload(t *testing.T) {
	store := persist.NewMemoryStore()
	handler := NewLedgerPersistHandler(store, nil, testMetrics(), slog.Default())

	task := asynq.NewTask(TaskLedgerPersist, []byte("not json"))
	err := handler(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)

	_, loadErr := store.Load(context.Background())
	require.ErrorIs(t, loadErr, persist.ErrNoSnapshot)
}
