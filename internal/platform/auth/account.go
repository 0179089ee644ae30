package auth

import "context"

// Known roles. Non-admin roles are free-form (responder specialties like
// "paramedic" or "firefighter"); admin is special-cased everywhere.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// StatusKind classifies an account for access decisions.
type StatusKind int

const (
	// StatusUnapproved accounts can manage their own profile and report
	// emergencies but cannot see the responder feed.
	StatusUnapproved StatusKind = iota
	// StatusApproved accounts additionally see active emergencies.
	StatusApproved
	// StatusAdmin accounts additionally manage approvals and roles.
	StatusAdmin
)

func (k StatusKind) String() string {
	switch k {
	case StatusAdmin:
		return "admin"
	case StatusApproved:
		return "approved"
	default:
		return "unapproved"
	}
}

// AccountStatus is the resolved access level of the caller, computed once from
// token claims so handlers branch on a single value instead of re-deriving
// role/approved combinations.
type AccountStatus struct {
	Kind StatusKind
	Role string
}

// StatusFor derives the account status from a role and approval flag. Admins
// are always treated as approved.
func StatusFor(role string, approved bool) AccountStatus {
	switch {
	case role == RoleAdmin:
		return AccountStatus{Kind: StatusAdmin, Role: role}
	case approved:
		return AccountStatus{Kind: StatusApproved, Role: role}
	default:
		return AccountStatus{Kind: StatusUnapproved, Role: role}
	}
}

// StatusFromContext resolves the caller's account status from the request
// context populated by the auth middleware.
func StatusFromContext(ctx context.Context) AccountStatus {
	return StatusFor(RoleFromContext(ctx), ApprovedFromContext(ctx))
}

// CanViewEmergencies reports whether this account may read the responder feed.
func (s AccountStatus) CanViewEmergencies() bool {
	return s.Kind == StatusApproved || s.Kind == StatusAdmin
}

// CanManageAccounts reports whether this account may change roles and
// approvals of other accounts.
func (s AccountStatus) CanManageAccounts() bool {
	return s.Kind == StatusAdmin
}
