package risk

import (
	"context"
	"time"

	"ppm-backend/internal/domain"
)

// Lister is the read side of the resource store.
type Lister interface {
	List(ctx context.Context) ([]domain.PhysicalResource, error)
}

// Service reads a snapshot of the inventory; it never locks or writes.
type Service struct {
	Resources Lister
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RankedResources returns every resource with its risk assessment, highest score first.
func (s *Service) RankedResources(ctx context.Context) ([]Assessment, error) {
	resources, err := s.Resources.List(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(resources, s.now()), nil
}

// Conflicts audits the whole ledger for overlapping active bookings.
func (s *Service) Conflicts(ctx context.Context) ([]ConflictPair, error) {
	resources, err := s.Resources.List(ctx)
	if err != nil {
		return nil, err
	}
	pairs := []ConflictPair{}
	for _, r := range resources {
		pairs = append(pairs, DetectOverlaps(r)...)
	}
	return pairs, nil
}
