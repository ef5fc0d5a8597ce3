package model

import "strings"

// Role is an authorisation tier. The set is closed; anything else is rejected
// at the boundary.
type Role string

const (
	RoleUser       Role = "USER"
	RoleTechnician Role = "TECHNICIAN"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Roles lists every valid role.
var Roles = []Role{RoleUser, RoleTechnician, RoleAdmin, RoleSuperAdmin}

// Valid reports whether r is a member of the role set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleTechnician, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// ParseRole upper-cases and trims s. An empty string yields RoleUser.
func ParseRole(s string) (Role, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return RoleUser, true
	}
	r := Role(s)
	return r, r.Valid()
}
