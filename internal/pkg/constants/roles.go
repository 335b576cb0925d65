package constants

const (
	Superadmin = "superadmin"
	Admin      = "admin"
	Manager    = "manager"
	Viewer     = "viewer"
)

// ValidRoles is the set of allowed values for user role, lowest first.
var ValidRoles = []string{Viewer, Manager, Admin, Superadmin}

// IsValidRole returns true if role is one of the allowed enum values.
func IsValidRole(role string) bool {
	return RoleRank(role) >= 0
}

// RoleRank orders roles by privilege; -1 for unknown roles.
func RoleRank(role string) int {
	for i, r := range ValidRoles {
		if r == role {
			return i
		}
	}
	return -1
}

// AtLeast reports whether role carries at least the privileges of min.
func AtLeast(role, min string) bool {
	r := RoleRank(role)
	return r >= 0 && r >= RoleRank(min)
}
