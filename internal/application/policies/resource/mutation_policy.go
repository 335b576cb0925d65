package policies

import (
	"context"
	"time"

	"ppm-backend/internal/domain"
	"ppm-backend/internal/pkg/constants"

	"github.com/rs/zerolog/log"
)

// RoleLookup resolves an actor's role.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}

// MutationPolicy decides who may change a physical resource.
//
// Administrators always may. Otherwise an occupied resource belongs to the
// principal who reserved it, and any other resource may be changed by a
// manager or above.
type MutationPolicy struct {
	Roles   RoleLookup
	Timeout time.Duration
}

// CanMutate has the signature booking.Service expects.
func (p *MutationPolicy) CanMutate(r domain.PhysicalResource, actorID string) bool {
	if actorID == "" {
		return false
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	role, err := p.Roles.RoleOf(ctx, actorID)
	if err != nil {
		log.Info().Err(err).Str("actor_id", actorID).Str("resource_id", r.ID).Msg("role lookup failed; denying mutation")
		return false
	}
	return Decide(r, actorID, role)
}

// Decide is the pure rule behind CanMutate.
func Decide(r domain.PhysicalResource, actorID, role string) bool {
	if constants.AtLeast(role, constants.Admin) {
		return true
	}
	if r.Status == domain.StatusOccupied && r.ReservedBy != nil {
		return *r.ReservedBy == actorID
	}
	return constants.AtLeast(role, constants.Manager)
}
