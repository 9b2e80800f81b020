package session

import "strings"

// Role is the kind of terminal a session declared itself as with AUTH.
// It is recorded for auditing and never restricts commands.
type Role string

// Known roles.
const (
	RoleUnknown  Role = "Unknown"
	RoleCustomer Role = "Customer"
	RoleStaff    Role = "Staff"
)

// ParseRole maps a declared role onto a known Role, ignoring case.
// Unrecognised values are kept verbatim.
func ParseRole(s string) Role {
	switch strings.ToLower(s) {
	case "customer":
		return RoleCustomer
	case "staff":
		return RoleStaff
	case "", "unknown":
		return RoleUnknown
	}
	return Role(s)
}

// Known reports whether r is one of the predefined roles.
func (r Role) Known() bool {
	return r == RoleUnknown || r == RoleCustomer || r == RoleStaff
}
