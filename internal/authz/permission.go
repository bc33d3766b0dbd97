// Package authz implements the authorization engine: the role registry,
// the dynamic role-permission configuration store, the authorization
// evaluator and the row-level scope resolver.
package authz

// Permission is an atomic capability identifier. The enumeration is closed
// and versioned with the binary; permission values are never persisted as
// free text without passing Valid first.
type Permission string

const (
	PermDashboardAnalyticsView Permission = "dashboard.analytics.view"
	PermLeadsManage            Permission = "leads.manage"
	PermPaymentRequestsView    Permission = "payment_requests.view"
	PermEmployeesViewAll       Permission = "employees.view_all"
	PermAssetsView             Permission = "assets.view"
	PermLiabilitiesManage      Permission = "liabilities.manage"

	PermPropertiesView   Permission = "properties.view"
	PermPropertiesManage Permission = "properties.manage"
	PermWorkOrdersView   Permission = "workorders.view"
	PermWorkOrdersManage Permission = "workorders.manage"
	PermInvoicesView     Permission = "invoices.view"
	PermPayrollManage    Permission = "payroll.manage"

	PermUsersView       Permission = "users.view"
	PermUsersEdit       Permission = "users.edit"
	PermRolesView       Permission = "roles.view"
	PermRolesEdit       Permission = "roles.edit"
	PermPermissionsView Permission = "permissions.view"
	PermPermissionsEdit Permission = "permissions.edit"
)

// AllPermissions lists the full catalog in a stable order.
func AllPermissions() []Permission {
	return []Permission{
		PermDashboardAnalyticsView,
		PermLeadsManage,
		PermPaymentRequestsView,
		PermEmployeesViewAll,
		PermAssetsView,
		PermLiabilitiesManage,
		PermPropertiesView,
		PermPropertiesManage,
		PermWorkOrdersView,
		PermWorkOrdersManage,
		PermInvoicesView,
		PermPayrollManage,
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermPermissionsEdit,
	}
}

var permissionCatalog = func() map[Permission]struct{} {
	set := make(map[Permission]struct{})
	for _, p := range AllPermissions() {
		set[p] = struct{}{}
	}
	return set
}()

// Valid reports whether p belongs to the compiled enumeration.
func (p Permission) Valid() bool {
	_, ok := permissionCatalog[p]
	return ok
}

// PermissionMap is the effective role name to permission set mapping.
type PermissionMap map[string][]Permission

// Grants reports whether the map grants perm to role. An absent role is the
// empty permission set, never "all permissions".
func (m PermissionMap) Grants(role string, perm Permission) bool {
	for _, p := range m[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so cached maps are never aliased by callers.
func (m PermissionMap) Clone() PermissionMap {
	if m == nil {
		return nil
	}
	out := make(PermissionMap, len(m))
	for role, perms := range m {
		cp := make([]Permission, len(perms))
		copy(cp, perms)
		out[role] = cp
	}
	return out
}
