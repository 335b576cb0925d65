package booking

import (
	"context"

	"ppm-backend/internal/domain"
)

// Mutation describes one version-guarded change to a resource.
//
// Guard sees the current state before the version comparison; Apply edits a
// private copy after it. Neither may touch Version. The map Apply returns is
// stored as the event payload.
type Mutation struct {
	Event string
	Actor string
	Guard func(current domain.PhysicalResource) error
	Apply func(r *domain.PhysicalResource) (map[string]interface{}, error)
}

// Store is the single authoritative table of physical resources. All writes go
// through Mutate; every resource handed out is a copy.
type Store interface {
	Get(ctx context.Context, id string) (domain.PhysicalResource, error)
	List(ctx context.Context) ([]domain.PhysicalResource, error)
	Mutate(ctx context.Context, id string, expectedVersion int64, m Mutation) (domain.PhysicalResource, error)
	Events(ctx context.Context, id string) ([]domain.ResourceEvent, error)
}

// Provisioner adds inventory. Existing ids are left untouched.
type Provisioner interface {
	Provision(ctx context.Context, resources ...domain.PhysicalResource) error
}
