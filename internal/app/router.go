package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fieldgate/fieldgate/internal/auth"
	"github.com/fieldgate/fieldgate/internal/authz"
	"github.com/fieldgate/fieldgate/internal/observability"
	"github.com/fieldgate/fieldgate/internal/properties"
	"github.com/fieldgate/fieldgate/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AuthHandler       *auth.Handler
	AuthzHandler      *authz.Handler
	UsersHandler      *users.Handler
	PropertiesHandler *properties.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Fieldgate defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	var authenticator func(http.Handler) http.Handler
	if params.AuthHandler != nil {
		authenticator = params.AuthHandler.Authenticator
	}
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Config:        params.Config,
		Metrics:       params.Metrics,
		Authenticator: authenticator,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.AuthzHandler != nil {
		r.Route("/authz", params.AuthzHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.PropertiesHandler != nil {
		r.Route("/properties", params.PropertiesHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
