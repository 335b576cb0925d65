package constants

// PermissionRoles maps each permission to roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewResources:     {Viewer, Manager, Admin, Superadmin},
	ViewPlanning:      {Viewer, Manager, Admin, Superadmin},
	BookResources:     {Manager, Admin, Superadmin},
	ManageMaintenance: {Manager, Admin, Superadmin},
	ViewAudit:         {Manager, Admin, Superadmin},
	ImportBookings:    {Admin, Superadmin},
	ManagePlanning:    {Admin, Superadmin},
	AssignRole:        {Admin, Superadmin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
