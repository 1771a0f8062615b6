// Package jobs defines the asynchronous save pipeline: the ledger
// service enqueues committed snapshots and the worker persists them.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tradewind-erp/tradewind-erp/internal/jobs"
	"github.com/tradewind-erp/tradewind-erp/internal/ledger"
	"github.com/tradewind-erp/tradewind-erp/internal/persist"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerPersist carries one committed snapshot to durable storage.
	TaskLedgerPersist = "ledger:persist"
	// TaskSnapshotPrune trims old snapshot revisions.
	TaskSnapshotPrune = "ledger:prune"
)

// LedgerPersistPayload is the task body: the exact snapshot committed
// by the transition, so the worker never reads ahead of the state the
// caller saw.
type LedgerPersistPayload struct {
	Revision int64           `json:"revision"`
	State    json.RawMessage `json:"state"`
}

// NewLedgerPersistTask wraps a committed snapshot into an Asynq task.
func NewLedgerPersistTask(snapshot ledger.Snapshot) (*asynq.Task, error) {
	state, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(LedgerPersistPayload{Revision: snapshot.Metadata.Revision, State: state})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerPersist, payload), nil
}

// NewLedgerPersistHandler processes TaskLedgerPersist: save to the
// store, then refresh the read cache. Store saves are idempotent per
// revision, so Asynq retries are safe.
func NewLedgerPersistHandler(store persist.Store, cache *persist.SnapshotCache, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("ledger_persist")
		var payload LedgerPersistPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return tracker.End(asynq.SkipRetry)
		}
		var snapshot ledger.Snapshot
		if err := json.Unmarshal(payload.State, &snapshot); err != nil {
			logger.Error("persist task: bad snapshot", slog.Int64("revision", payload.Revision), slog.Any("error", err))
			return tracker.End(asynq.SkipRetry)
		}
		if err := store.Save(ctx, snapshot); err != nil {
			logger.Warn("persist task: save failed, will retry",
				slog.Int64("revision", payload.Revision), slog.Any("error", err))
			return tracker.End(err)
		}
		if cache != nil {
			if err := cache.Set(ctx, snapshot); err != nil {
				logger.Warn("persist task: cache refresh", slog.Any("error", err))
			}
		}
		return tracker.End(nil)
	}
}

// NewSnapshotPruneTask builds the periodic prune task.
func NewSnapshotPruneTask() *asynq.Task {
	return asynq.NewTask(TaskSnapshotPrune, nil)
}

// NewSnapshotPruneHandler trims stored history down to keep revisions.
func NewSnapshotPruneHandler(store *persist.PostgresStore, keep int, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("snapshot_prune")
		if store == nil {
			return tracker.End(nil)
		}
		err := store.Prune(ctx, keep)
		if err != nil {
			logger.Warn("snapshot prune", slog.Any("error", err))
		}
		return tracker.End(err)
	}
}

// QueueSaver implements ledger.SavePort by enqueuing persist tasks.
type QueueSaver struct {
	client *asynq.Client
}

// NewQueueSaver constructs the saver from Redis connection options.
func NewQueueSaver(opt asynq.RedisClientOpt) *QueueSaver {
	return &QueueSaver{client: asynq.NewClient(opt)}
}

// ScheduleSave enqueues the snapshot for persistence.
func (q *QueueSaver) ScheduleSave(ctx context.Context, snapshot ledger.Snapshot) error {
	task, err := NewLedgerPersistTask(snapshot)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(10),
		asynq.Timeout(30*time.Second))
	return err
}

// Close releases the underlying Asynq client.
func (q *QueueSaver) Close() error {
	return q.client.Close()
}
