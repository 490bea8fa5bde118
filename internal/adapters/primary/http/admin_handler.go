package http

import (
	"log/slog"
	"net/http"
	"strconv"

	mw "github.com/lorrc/identity-sync-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/identity-sync-backend/internal/core/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// AdminHandler exposes the privileged listing surface. The router guards it
// with the service-only middleware, and the projection service checks the
// principal again, so a misrouted request still fails closed.
type AdminHandler struct {
	projections  ports.ProjectionService
	logger       *slog.Logger
	errorHandler *ErrorHandler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(projections ports.ProjectionService, logger *slog.Logger, errorHandler *ErrorHandler) *AdminHandler {
	return &AdminHandler{
		projections:  projections,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// HandleListUsers lists projection rows in creation order.
// GET /api/v1/admin/users?limit=&offset=
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	p := mw.GetPrincipal(r.Context())
	params := parseListParams(r)

	rows, err := h.projections.List(r.Context(), p, params)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WritePaginated(w, rows, params.Limit, params.Offset)
}

func parseListParams(r *http.Request) ports.ListParams {
	params := ports.ListParams{Limit: defaultListLimit, Offset: 0}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 32); err == nil && v > 0 {
			params.Limit = int32(v)
		}
	}
	if params.Limit > maxListLimit {
		params.Limit = maxListLimit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 32); err == nil && v >= 0 {
			params.Offset = int32(v)
		}
	}

	return params
}
