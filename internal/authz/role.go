package authz

import "github.com/google/uuid"

// Built-in role names, compiled in fixed order. Their names are reserved;
// only their permission sets may be overridden at runtime.
const (
	RoleAdmin           = "ADMIN"
	RoleSeniorAdmin     = "SENIOR_ADMIN"
	RoleStaff           = "STAFF"
	RolePropertyManager = "PROPERTY_MANAGER"
	RoleContractor      = "CONTRACTOR"
	RoleArtisan         = "ARTISAN"
	RoleCustomer        = "CUSTOMER"
)

// BuiltInRoles lists the compiled roles in their fixed display order.
func BuiltInRoles() []string {
	return []string{
		RoleAdmin,
		RoleSeniorAdmin,
		RoleStaff,
		RolePropertyManager,
		RoleContractor,
		RoleArtisan,
		RoleCustomer,
	}
}

var builtInSet = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, r := range BuiltInRoles() {
		set[r] = struct{}{}
	}
	return set
}()

// IsBuiltIn reports whether name is a compiled role.
func IsBuiltIn(name string) bool {
	_, ok := builtInSet[name]
	return ok
}

// Role is the resolved form of a user's role string. It is produced at the
// credential-resolution boundary by Registry.Resolve so downstream code
// never string-compares raw role columns.
type Role struct {
	Name    string
	BuiltIn bool
	// Known is false when the name no longer resolves in the registry,
	// e.g. a custom role deleted after assignment. Such roles degrade to
	// zero permissions and deny-all scope rather than erroring.
	Known bool
}

// RoleClass is a compiled, non-configurable grouping of roles used for
// structural checks (who IS an admin), distinct from behavioral permissions
// (what an admin CAN DO). Classes are never runtime-configurable.
type RoleClass struct {
	name    string
	members map[string]struct{}
}

func newRoleClass(name string, roles ...string) RoleClass {
	members := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		members[r] = struct{}{}
	}
	return RoleClass{name: name, members: members}
}

var (
	// AdminTier groups roles with unrestricted data visibility.
	AdminTier = newRoleClass("admin-tier", RoleAdmin, RoleSeniorAdmin)
	// OperationsTier groups back-office roles.
	OperationsTier = newRoleClass("operations-tier", RoleAdmin, RoleSeniorAdmin, RoleStaff)
)

// Name returns the class identifier used in error messages.
func (c RoleClass) Name() string { return c.name }

// Contains reports membership. Custom roles are never members of a class.
func (c RoleClass) Contains(role Role) bool {
	if !role.BuiltIn {
		return false
	}
	_, ok := c.members[role.Name]
	return ok
}

// RoleDefinition describes a custom (administrator-defined) role. Custom
// definitions are persisted; built-in definitions are compiled constants.
type RoleDefinition struct {
	Name         string       `json:"name"`
	Permissions  []Permission `json:"permissions"`
	Label        string       `json:"label,omitempty"`
	DefaultRoute string       `json:"default_route,omitempty"`
}

// User is the authorization view of an authenticated subject.
type User struct {
	ID   uuid.UUID
	Role Role
}
