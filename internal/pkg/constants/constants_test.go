package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtLeast(t *testing.T) {
	assert.True(t, AtLeast(Admin, Manager))
	assert.True(t, AtLeast(Manager, Manager))
	assert.False(t, AtLeast(Viewer, Manager))
	assert.False(t, AtLeast("owner", Viewer))
}

func TestEveryPermissionHasRoles(t *testing.T) {
	for perm, roles := range PermissionRoles {
		assert.NotEmpty(t, roles, perm)
		for _, r := range roles {
			assert.True(t, IsValidRole(r), "%s lists unknown role %s", perm, r)
		}
	}
	assert.False(t, AllowedRole(ImportBookings, Manager))
	assert.False(t, AllowedRole(AssignRole, Manager))
	assert.True(t, AllowedRole(BookResources, Manager))
	assert.False(t, AllowedRole("unknown", Superadmin))
}
