package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lorrc/identity-sync-backend/internal/core/domain"
	apperrors "github.com/lorrc/identity-sync-backend/internal/core/errors"
	"github.com/lorrc/identity-sync-backend/internal/core/ports"
	"github.com/lorrc/identity-sync-backend/internal/infrastructure/logging"
)

// EventIDHeader carries the provider's delivery ID, used for idempotent
// redelivery skipping. Deliveries without it are processed but cannot be
// deduplicated.
const EventIDHeader = "X-Event-ID"

// EventHandler receives account lifecycle webhooks from the identity
// provider. The contract is deliberately non-throwing: once the payload
// decodes, the response is always 200 with the structured outcome in the
// body, so a failed sync never makes the provider treat account creation
// itself as failed. Only an undecodable body gets a 4xx.
type EventHandler struct {
	synchronizer ports.Synchronizer
	deleter      ports.Deleter
	logger       *slog.Logger
	errorHandler *ErrorHandler
}

// NewEventHandler creates a new event handler
func NewEventHandler(
	synchronizer ports.Synchronizer,
	deleter ports.Deleter,
	logger *slog.Logger,
	errorHandler *ErrorHandler,
) *EventHandler {
	return &EventHandler{
		synchronizer: synchronizer,
		deleter:      deleter,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// OutcomeResponse is the wire form of a sync or delete outcome.
type OutcomeResponse struct {
	Success    bool   `json:"success"`
	Attempts   int    `json:"attempts"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

func outcomeResponse(o domain.Outcome) OutcomeResponse {
	return OutcomeResponse{
		Success:    o.Success,
		Attempts:   o.Attempts,
		DurationMs: o.DurationMs(),
		Error:      o.ErrorString(),
	}
}

// HandleAccountCreated processes an account-created event.
// POST /internal/events/account-created
func (h *EventHandler) HandleAccountCreated(w http.ResponseWriter, r *http.Request) {
	var event domain.AccountCreatedEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	eventID := r.Header.Get(EventIDHeader)
	ctx := logging.WithEventID(r.Context(), eventID)

	outcome := h.synchronizer.Sync(ctx, event, eventID)
	WriteJSON(w, http.StatusOK, outcomeResponse(outcome))
}

// HandleAccountDeleted processes an account-deleted event.
// POST /internal/events/account-deleted
func (h *EventHandler) HandleAccountDeleted(w http.ResponseWriter, r *http.Request) {
	var event domain.AccountDeletedEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	eventID := r.Header.Get(EventIDHeader)
	ctx := logging.WithEventID(r.Context(), eventID)

	outcome := h.deleter.Delete(ctx, event, eventID)
	WriteJSON(w, http.StatusOK, outcomeResponse(outcome))
}
