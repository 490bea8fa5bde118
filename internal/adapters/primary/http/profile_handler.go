package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/lorrc/identity-sync-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/identity-sync-backend/internal/core/domain"
	apperrors "github.com/lorrc/identity-sync-backend/internal/core/errors"
	"github.com/lorrc/identity-sync-backend/internal/core/ports"
)

// ProfileHandler exposes the policy-gated projection rows: a verified user
// can see and edit their own row, the service principal can see any row.
type ProfileHandler struct {
	projections  ports.ProjectionService
	logger       *slog.Logger
	errorHandler *ErrorHandler
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(projections ports.ProjectionService, logger *slog.Logger, errorHandler *ErrorHandler) *ProfileHandler {
	return &ProfileHandler{
		projections:  projections,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// HandleGetMe returns the caller's own projection row.
// GET /api/v1/users/me
func (h *ProfileHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	p := mw.GetPrincipal(r.Context())

	row, err := h.projections.GetSelf(r.Context(), p)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, row)
}

// UpdateMeRequest is the profile update payload. Absent fields are left
// unchanged; fields present with an empty string clear the column.
type UpdateMeRequest struct {
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
}

// HandleUpdateMe updates the mutable fields of the caller's own row.
// PATCH /api/v1/users/me
func (h *ProfileHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	p := mw.GetPrincipal(r.Context())

	var req UpdateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	update := domain.ProfileUpdate{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	}

	row, err := h.projections.UpdateSelf(r.Context(), p, update)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, row)
}

// HandleGetUser returns a single projection row by external UID. The policy
// layer turns denials into not-found, so a verified user asking for someone
// else's UID learns nothing.
// GET /api/v1/users/{uid}
func (h *ProfileHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	p := mw.GetPrincipal(r.Context())
	uid := chi.URLParam(r, "uid")

	row, err := h.projections.Get(r.Context(), p, ports.GetParams{ExternalUID: uid})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, row)
}
