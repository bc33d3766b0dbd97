package properties

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fieldgate/fieldgate/internal/authz"
	"github.com/fieldgate/fieldgate/internal/platform/httpx"
	"github.com/fieldgate/fieldgate/internal/shared"
)

// Handler manages property endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      authz.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers property routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(authz.PermPropertiesView))
		r.Get("/", h.listProperties)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(authz.PermWorkOrdersView))
		r.Get("/workorders", h.listWorkOrders)
	})
}

func (h *Handler) listProperties(w http.ResponseWriter, r *http.Request) {
	user, params, err := callerScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.ListProperties(r.Context(), user, params)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"properties": list})
}

func (h *Handler) listWorkOrders(w http.ResponseWriter, r *http.Request) {
	user, params, err := callerScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.ListWorkOrders(r.Context(), user, params)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"work_orders": list})
}

// callerScope extracts the resolved user and the optional admin drill-down
// parameter.
func callerScope(r *http.Request) (authz.User, authz.ScopeParams, error) {
	user, ok := authz.UserFromContext(r.Context())
	if !ok {
		return authz.User{}, authz.ScopeParams{}, fmt.Errorf("%w: no credential", shared.ErrUnauthenticated)
	}
	var params authz.ScopeParams
	if raw := r.URL.Query().Get("asPropertyManagerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return authz.User{}, authz.ScopeParams{}, fmt.Errorf("%w: invalid asPropertyManagerId", shared.ErrInvalidRequest)
		}
		params.AsPropertyManagerID = id
	}
	return user, params, nil
}
