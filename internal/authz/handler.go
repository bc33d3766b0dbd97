package authz

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fieldgate/fieldgate/internal/platform/httpx"
	"github.com/fieldgate/fieldgate/internal/shared"
)

// Handler exposes the administrative API for roles and permission
// configuration.
type Handler struct {
	logger   *slog.Logger
	registry *Registry
	store    *PermissionStore
	mw       Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, registry *Registry, store *PermissionStore, mw Middleware) *Handler {
	return &Handler{
		logger:   logger,
		registry: registry,
		store:    store,
		mw:       mw,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers role and permission administration routes. Every
// mutating group stacks the admin-tier class check before the fine-grained
// permission check.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(PermRolesView))
		r.Get("/roles", h.listRoles)
		r.Get("/roles/custom", h.listCustomRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireClass(AdminTier))
		r.Use(h.mw.RequirePermission(PermRolesEdit))
		r.Put("/roles/custom/{name}", h.putCustomRole)
		r.Delete("/roles/custom/{name}", h.deleteCustomRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(PermPermissionsView))
		r.Get("/permissions", h.listPermissions)
		r.Get("/permissions/effective", h.getEffective)
		r.Get("/permissions/defaults", h.getDefaults)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireClass(AdminTier))
		r.Use(h.mw.RequirePermission(PermPermissionsEdit))
		r.Put("/permissions/effective", h.putEffective)
		r.Delete("/permissions/effective", h.resetEffective)
	})
	r.Get("/routes/default", h.defaultRoute)
}

type roleListResponse struct {
	Roles []string `json:"roles"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	names, err := h.registry.ListRoles(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roleListResponse{Roles: names})
}

func (h *Handler) listCustomRoles(w http.ResponseWriter, r *http.Request) {
	defs, err := h.registry.GetCustomRoles(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"custom_roles": defs})
}

type customRoleRequest struct {
	Permissions  []string `json:"permissions" validate:"required"`
	Label        string   `json:"label" validate:"omitempty,max=120"`
	DefaultRoute string   `json:"default_route" validate:"omitempty,startswith=/"`
}

func (h *Handler) putCustomRole(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req customRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrInvalidRequest, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrInvalidRequest, err))
		return
	}

	perms := make([]Permission, len(req.Permissions))
	for i, p := range req.Permissions {
		perms[i] = Permission(p)
	}
	def := RoleDefinition{
		Name:         name,
		Permissions:  perms,
		Label:        req.Label,
		DefaultRoute: req.DefaultRoute,
	}
	if err := h.registry.CreateOrUpdateCustomRole(r.Context(), def); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("custom role saved", slog.String("role", name))
	httpx.JSON(w, http.StatusOK, def)
}

func (h *Handler) deleteCustomRole(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.registry.DeleteCustomRole(r.Context(), name); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("custom role deleted", slog.String("role", name))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": AllPermissions()})
}

type effectiveResponse struct {
	Override    bool          `json:"override_active"`
	Permissions PermissionMap `json:"permissions"`
}

func (h *Handler) getEffective(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetEffective(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	active, err := h.store.IsOverrideActive(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, effectiveResponse{Override: active, Permissions: m})
}

func (h *Handler) getDefaults(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetDefaults(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, effectiveResponse{Override: false, Permissions: m})
}

func (h *Handler) putEffective(w http.ResponseWriter, r *http.Request) {
	var req map[string][]string
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrInvalidRequest, err))
		return
	}
	m := make(PermissionMap, len(req))
	for role, perms := range req {
		set := make([]Permission, len(perms))
		for i, p := range perms {
			set[i] = Permission(p)
		}
		m[role] = set
	}
	if err := h.store.SetEffective(r.Context(), m); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("permission override replaced", slog.Int("roles", len(m)))
	httpx.JSON(w, http.StatusOK, effectiveResponse{Override: true, Permissions: m})
}

func (h *Handler) resetEffective(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("permission override reset to defaults")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) defaultRoute(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, fmt.Errorf("%w: no credential", shared.ErrUnauthenticated))
		return
	}
	route := h.registry.DefaultRouteFor(r.Context(), user.Role.Name)
	httpx.JSON(w, http.StatusOK, map[string]string{"route": route})
}
