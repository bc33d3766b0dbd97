package authz

import "context"

// DefaultLandingRoute is the fallback destination for roles without an
// explicit metadata entry.
const DefaultLandingRoute = "/dashboard"

var builtInRoutes = map[string]string{
	RoleAdmin:           "/admin",
	RoleSeniorAdmin:     "/admin",
	RoleStaff:           "/office",
	RolePropertyManager: "/portfolio",
	RoleContractor:      "/jobs",
	RoleArtisan:         "/jobs",
	RoleCustomer:        "/home",
}

// DefaultRouteFor returns the landing destination for a role. Custom roles
// may carry a defaultRoute metadata entry; anything without one, unknown
// roles included, falls back to the generic landing path. Pure lookup, no
// failure mode beyond the fallback.
func (r *Registry) DefaultRouteFor(ctx context.Context, role string) string {
	if route, ok := builtInRoutes[role]; ok {
		return route
	}
	defs, err := r.GetCustomRoles(ctx)
	if err != nil {
		return DefaultLandingRoute
	}
	for _, def := range defs {
		if def.Name == role && def.DefaultRoute != "" {
			return def.DefaultRoute
		}
	}
	return DefaultLandingRoute
}
