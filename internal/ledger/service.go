package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// SavePort is the persistence collaborator. ScheduleSave is handed the
// exact committed snapshot after the transition completes; the ledger
// does not know the storage format or transport. A failed save leaves
// the in-memory state changed but unpersisted.
type SavePort interface {
	ScheduleSave(ctx context.Context, snapshot Snapshot) error
}

// SaveFunc adapts a function to SavePort.
type SaveFunc func(ctx context.Context, snapshot Snapshot) error

// ScheduleSave implements SavePort.
func (f SaveFunc) ScheduleSave(ctx context.Context, snapshot Snapshot) error {
	return f(ctx, snapshot)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CommandRecorder observes command outcomes for metrics.
type CommandRecorder interface {
	ObserveCommand(kind string, accepted bool, elapsed time.Duration)
}

// Service owns the live snapshot. Commands are applied strictly
// sequentially: each transition completes and is committed before the
// next one is accepted, and the save collaborator is notified with the
// committed value, never ahead of it.
type Service struct {
	mu      sync.Mutex
	state   Snapshot
	logger  *slog.Logger
	saver   SavePort
	audit   AuditPort
	metrics CommandRecorder
}

// ServiceConfig groups optional collaborators.
type ServiceConfig struct {
	Saver   SavePort
	Audit   AuditPort
	Metrics CommandRecorder
}

// NewService builds a Service around an initial snapshot.
func NewService(logger *slog.Logger, initial Snapshot, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	initial = initial.Clone()
	initial.normalizeCounters()
	return &Service{
		state:   initial,
		logger:  logger,
		saver:   cfg.Saver,
		audit:   cfg.Audit,
		metrics: cfg.Metrics,
	}
}

// Dispatch applies one command. On rejection the prior snapshot is
// returned together with the error; nothing was mutated.
func (svc *Service) Dispatch(ctx context.Context, cmd Command) (Snapshot, Result, error) {
	start := time.Now()
	svc.mu.Lock()
	next, result, err := Apply(svc.state, cmd)
	if err == nil {
		svc.state = next
	}
	committed := svc.state
	svc.mu.Unlock()

	if svc.metrics != nil {
		svc.metrics.ObserveCommand(string(cmd.CommandKind()), err == nil, time.Since(start))
	}
	if err != nil {
		svc.logger.Warn("command rejected",
			slog.String("kind", string(cmd.CommandKind())),
			slog.Any("error", err))
		return committed, result, err
	}
	svc.recordAudit(ctx, result)
	if svc.saver != nil {
		if saveErr := svc.saver.ScheduleSave(ctx, committed); saveErr != nil {
			// State and persistence are decoupled: memory keeps the
			// committed snapshot, the caller retries the save.
			svc.logger.Error("schedule save",
				slog.Int64("revision", committed.Metadata.Revision),
				slog.Any("error", saveErr))
		}
	}
	return committed, result, nil
}

// State returns the current snapshot as an independent copy.
func (svc *Service) State() Snapshot {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.state.Clone()
}

func (svc *Service) recordAudit(ctx context.Context, result Result) {
	if svc.audit == nil {
		return
	}
	entityID := "-"
	if result.Entity != nil {
		switch e := result.Entity.(type) {
		case Product:
			entityID = formatInt(e.ID)
		case Container:
			entityID = e.ID
		case Sale:
			entityID = formatInt(e.ID)
		case Expense:
			entityID = formatInt(e.ID)
		case Partner:
			entityID = e.ID
		case Withdrawal:
			entityID = e.ID
		case CashInjection:
			entityID = e.ID
		case []PriceAdjustment:
			if len(e) > 0 {
				entityID = e[0].ID
			}
		}
	}
	err := svc.audit.Record(ctx, shared.AuditLog{
		Action:   fmt.Sprintf("ledger:%s", result.Kind),
		Entity:   "ledger_command",
		EntityID: entityID,
		Meta:     map[string]any{"repaired": result.Repaired},
	})
	if err != nil {
		svc.logger.Warn("audit record", slog.Any("error", err))
	}
}
