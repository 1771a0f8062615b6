package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tradewind-erp/tradewind-erp/internal/platform/httpx"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// Handler exposes the command entry point and the state snapshot over
// HTTP. Collaborators post tagged command messages and render the
// returned snapshot; they never reach into the state directly.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	validate    *validator.Validate
	idempotency *shared.IdempotencyStore
}

// NewHandler constructs the ledger handler. idempotency may be nil.
func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		service:     service,
		validate:    validator.New(),
		idempotency: idempotency,
	}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/state", h.handleState)
	r.Post("/commands", h.handleCommand)
}

// commandEnvelope is the tagged wire message: {kind, payload}.
type commandEnvelope struct {
	Kind    CommandKind     `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// commandResponse carries the committed snapshot back to the caller
// together with what the command produced.
type commandResponse struct {
	Revision int64    `json:"revision"`
	Result   any      `json:"result,omitempty"`
	Repaired int      `json:"repaired,omitempty"`
	Snapshot Snapshot `json:"snapshot"`
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	snapshot := h.service.State()
	httpx.JSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	var envelope commandEnvelope
	if err := httpx.DecodeJSON(r, &envelope); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed command envelope")
		return
	}
	cmd, err := DecodeCommand(envelope.Kind, envelope.Payload)
	if err != nil {
		if errors.Is(err, ErrUnknownCommand) {
			httpx.Problem(w, http.StatusBadRequest, "Unknown Command", err.Error())
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.validate.Struct(cmd); err != nil {
		var invalidArg *validator.InvalidValidationError
		if !errors.As(err, &invalidArg) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
			return
		}
	}

	key := r.Header.Get("Idempotency-Key")
	insertedKey := false
	if key != "" && h.idempotency != nil {
		if _, parseErr := uuid.Parse(key); parseErr != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "idempotency key must be a UUID")
			return
		}
		if err := h.idempotency.CheckAndInsert(r.Context(), key, string(envelope.Kind)); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "command already processed")
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		insertedKey = true
	}

	snapshot, result, err := h.service.Dispatch(r.Context(), cmd)
	if err != nil {
		if insertedKey {
			_ = h.idempotency.Delete(r.Context(), key)
		}
		h.respondRejection(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, commandResponse{
		Revision: snapshot.Metadata.Revision,
		Result:   result.Entity,
		Repaired: result.Repaired,
		Snapshot: snapshot,
	})
}

// respondRejection maps the ledger error taxonomy onto HTTP statuses:
// integrity guards are conflicts, validation failures are 422.
func (h *Handler) respondRejection(w http.ResponseWriter, err error) {
	var guard *IntegrityGuardError
	if errors.As(err, &guard) {
		httpx.Problem(w, http.StatusConflict, "Blocked by Integrity Guard", guard.Error())
		return
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		status := http.StatusUnprocessableEntity
		switch {
		case errors.Is(err, ErrProductNotFound),
			errors.Is(err, ErrContainerNotFound),
			errors.Is(err, ErrSaleNotFound),
			errors.Is(err, ErrExpenseNotFound),
			errors.Is(err, ErrPartnerNotFound),
			errors.Is(err, ErrWithdrawalNotFound),
			errors.Is(err, ErrCashInjectionNotFound):
			status = http.StatusNotFound
		}
		httpx.Problem(w, status, "Command Rejected", validation.Error())
		return
	}
	h.logger.Error("command failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
