package planning

import (
	"context"
	"sort"

	"ppm-backend/internal/domain"

	"gorm.io/gorm"
)

// Source is the read-only project and pool feed.
type Source interface {
	Pools(ctx context.Context) ([]domain.ResourcePool, error)
	Projects(ctx context.Context) ([]domain.Project, error)
}

// GormSource reads pools and projects with their requirements from the database.
type GormSource struct {
	DB *gorm.DB
}

func (s GormSource) Pools(ctx context.Context) ([]domain.ResourcePool, error) {
	var pools []domain.ResourcePool
	err := s.DB.WithContext(ctx).Order("name").Order("id").Find(&pools).Error
	return pools, err
}

func (s GormSource) Projects(ctx context.Context) ([]domain.Project, error) {
	var projects []domain.Project
	err := s.DB.WithContext(ctx).Preload("Requirements").Order("id").Find(&projects).Error
	return projects, err
}

// StaticSource serves a fixed snapshot, typically loaded from an inventory file.
type StaticSource struct {
	PoolList    []domain.ResourcePool
	ProjectList []domain.Project
}

func (s StaticSource) Pools(ctx context.Context) ([]domain.ResourcePool, error) {
	out := append([]domain.ResourcePool(nil), s.PoolList...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s StaticSource) Projects(ctx context.Context) ([]domain.Project, error) {
	return append([]domain.Project(nil), s.ProjectList...), nil
}
