package models

// Admin roles, ordered. Comparison goes through RoleAtLeast rather than
// ad hoc string checks so the hierarchy lives in exactly one place.
const (
	RoleEditor     = "editor"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

var roleRank = map[string]int{
	RoleEditor:     1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// RoleAtLeast reports whether role meets or exceeds required in the
// editor < admin < super_admin ordering. Unknown roles rank below editor
// and unknown requirements can never be met.
func RoleAtLeast(role, required string) bool {
	req, ok := roleRank[required]
	if !ok {
		return false
	}
	return roleRank[role] >= req
}

// ValidRole reports whether role names one of the known admin roles.
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}
