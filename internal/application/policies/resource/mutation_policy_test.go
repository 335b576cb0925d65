package policies

import (
	"context"
	"errors"
	"testing"

	"ppm-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

type roles map[string]string

func (r roles) RoleOf(_ context.Context, id string) (string, error) {
	role, ok := r[id]
	if !ok {
		return "", errors.New("unknown")
	}
	return role, nil
}

func occupiedBy(actor string) domain.PhysicalResource {
	return domain.PhysicalResource{ID: "bay-1", Status: domain.StatusOccupied, ReservedBy: &actor}
}

func TestDecide(t *testing.T) {
	free := domain.PhysicalResource{ID: "bay-1", Status: domain.StatusAvailable}
	cases := []struct {
		name  string
		r     domain.PhysicalResource
		actor string
		role  string
		want  bool
	}{
		{"admin on someone else's booking", occupiedBy("u1"), "boss", "admin", true},
		{"superadmin on free resource", free, "root", "superadmin", true},
		{"reserver releases own booking", occupiedBy("u1"), "u1", "manager", true},
		{"viewer who reserved may release", occupiedBy("u1"), "u1", "viewer", true},
		{"other manager blocked on occupied", occupiedBy("u1"), "u2", "manager", false},
		{"manager on free resource", free, "u2", "manager", true},
		{"viewer on free resource", free, "u3", "viewer", false},
		{"unknown role", free, "u4", "owner", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.r, tc.actor, tc.role))
		})
	}
}

func TestCanMutate_LooksUpRole(t *testing.T) {
	p := &MutationPolicy{Roles: roles{"a": "admin", "m": "manager"}}
	assert.True(t, p.CanMutate(occupiedBy("x"), "a"))
	assert.False(t, p.CanMutate(occupiedBy("x"), "m"))
	assert.False(t, p.CanMutate(domain.PhysicalResource{}, "ghost"))
	assert.False(t, p.CanMutate(domain.PhysicalResource{}, ""))
}
