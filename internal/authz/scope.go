package authz

import "github.com/google/uuid"

// ResourceKind names a scoped resource family.
type ResourceKind string

const (
	ResourceProperties      ResourceKind = "properties"
	ResourceWorkOrders      ResourceKind = "workorders"
	ResourceInvoices        ResourceKind = "invoices"
	ResourcePaymentRequests ResourceKind = "payment_requests"
)

type scopeKind int

const (
	scopeDenyAll scopeKind = iota
	scopeUnrestricted
	scopeOwner
	scopeAssignee
)

// FilterPredicate is the row-level filter a repository must apply to every
// query over a scoped resource. It is a closed value type: repositories
// translate it to WHERE clauses and cannot widen it.
type FilterPredicate struct {
	kind scopeKind
	id   uuid.UUID
}

// Unrestricted reports whether every row is visible.
func (p FilterPredicate) Unrestricted() bool { return p.kind == scopeUnrestricted }

// DenyAll reports whether no row is visible.
func (p FilterPredicate) DenyAll() bool { return p.kind == scopeDenyAll }

// OwnerID returns the owner restriction, if any.
func (p FilterPredicate) OwnerID() (uuid.UUID, bool) {
	return p.id, p.kind == scopeOwner
}

// AssigneeID returns the assignee restriction, if any.
func (p FilterPredicate) AssigneeID() (uuid.UUID, bool) {
	return p.id, p.kind == scopeAssignee
}

// ScopeParams carries caller-supplied narrowing for admin drill-down views.
type ScopeParams struct {
	// AsPropertyManagerID narrows an admin-tier view to one property
	// manager's rows. Ignored for every other role.
	AsPropertyManagerID uuid.UUID
}

// ScopeFilter returns the row-level filter for user over kind. The mapping
// is compiled logic, deliberately outside the dynamic permission
// configuration: tenancy boundaries must never be reconfigurable at
// runtime. A non-admin-tier role never receives the unrestricted
// predicate; roles with no defined rule for a kind, custom roles included,
// receive the impossible predicate.
func ScopeFilter(user User, kind ResourceKind, params ScopeParams) FilterPredicate {
	if AdminTier.Contains(user.Role) {
		if params.AsPropertyManagerID != uuid.Nil {
			return FilterPredicate{kind: scopeOwner, id: params.AsPropertyManagerID}
		}
		return FilterPredicate{kind: scopeUnrestricted}
	}
	if !user.Role.Known || !user.Role.BuiltIn {
		return FilterPredicate{}
	}

	switch user.Role.Name {
	case RoleStaff:
		// Back-office staff see assigned work only; other kinds stay closed.
		if kind == ResourceWorkOrders {
			return FilterPredicate{kind: scopeAssignee, id: user.ID}
		}
	case RolePropertyManager:
		switch kind {
		case ResourceProperties, ResourceWorkOrders, ResourceInvoices, ResourcePaymentRequests:
			return FilterPredicate{kind: scopeOwner, id: user.ID}
		}
	case RoleContractor, RoleArtisan:
		switch kind {
		case ResourceWorkOrders, ResourceInvoices, ResourcePaymentRequests:
			return FilterPredicate{kind: scopeAssignee, id: user.ID}
		}
	case RoleCustomer:
		switch kind {
		case ResourceProperties, ResourceWorkOrders, ResourceInvoices:
			return FilterPredicate{kind: scopeOwner, id: user.ID}
		}
	}
	return FilterPredicate{}
}
