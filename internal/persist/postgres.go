package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewind-erp/tradewind-erp/internal/ledger"
)

// PostgresStore keeps one row per snapshot revision in
// ledger_snapshots (revision bigint primary key, state jsonb,
// saved_at timestamptz).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Save inserts the snapshot under its revision. Replaying the same
// revision is a no-op, which makes queued save retries safe.
func (s *PostgresStore) Save(ctx context.Context, snapshot ledger.Snapshot) error {
	state, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("persist: marshal snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO ledger_snapshots (revision, state, saved_at) VALUES ($1, $2, NOW())`,
		snapshot.Metadata.Revision, state)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil
		}
		return fmt.Errorf("persist: save revision %d: %w", snapshot.Metadata.Revision, err)
	}
	return nil
}

// Load returns the snapshot with the highest revision.
func (s *PostgresStore) Load(ctx context.Context) (ledger.Snapshot, error) {
	var state []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM ledger_snapshots ORDER BY revision DESC LIMIT 1`).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.NewSnapshot(), ErrNoSnapshot
		}
		return ledger.Snapshot{}, fmt.Errorf("persist: load snapshot: %w", err)
	}
	var snapshot ledger.Snapshot
	if err := json.Unmarshal(state, &snapshot); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("persist: unmarshal snapshot: %w", err)
	}
	return snapshot, nil
}

// Prune drops snapshot history older than the newest keep revisions.
func (s *PostgresStore) Prune(ctx context.Context, keep int) error {
	if keep < 1 {
		keep = 1
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM ledger_snapshots WHERE revision NOT IN (SELECT revision FROM ledger_snapshots ORDER BY revision DESC LIMIT $1)`,
		keep)
	return err
}
