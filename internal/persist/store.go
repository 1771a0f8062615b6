// Package persist implements the save collaborator: snapshot storage
// behind a small port, with Postgres for durability, Redis for the
// read cache and an in-memory store for tests.
package persist

import (
	"context"
	"errors"

	"github.com/tradewind-erp/tradewind-erp/internal/ledger"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("persist: no snapshot stored")

// Store saves and loads ledger snapshots. Save must be idempotent per
// revision so a retried save cannot corrupt history.
type Store interface {
	Save(ctx context.Context, snapshot ledger.Snapshot) error
	Load(ctx context.Context) (ledger.Snapshot, error)
}
