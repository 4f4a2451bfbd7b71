package kernel

import "dispatch/internal/pkg/errs"

// Role is the kind of client acting on the engine.
type Role string

const (
	RoleCustomer Role = "customer"
	RolePartner  Role = "partner"
	RoleAdmin    Role = "admin"
)

// ErrUnknownRole is returned for a role other than customer, partner or admin.
var ErrUnknownRole = errs.NewValueIsInvalidError("role")

// ParseRole converts a declared or claimed role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleCustomer, RolePartner, RoleAdmin:
		return r, nil
	default:
		return "", ErrUnknownRole
	}
}

// Principal is an authenticated caller.
type Principal struct {
	ID   UUID
	Role Role
}

// IsAdmin reports whether the caller has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
