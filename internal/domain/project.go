package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DurationUnit qualifies ResourceRequirement.Duration.
type DurationUnit string

const (
	UnitDay   DurationUnit = "day"
	UnitMonth DurationUnit = "month"
	UnitYear  DurationUnit = "year"
)

// Project is the read-only snapshot of a portfolio project as fed by the
// project-management side. Missing dates are stored as NULL.
type Project struct {
	ID           string                `gorm:"column:id;primaryKey" json:"id"`
	Name         string                `gorm:"column:name;not null" json:"name"`
	Status       string                `gorm:"column:status;type:varchar(32);default:'planned'" json:"status"`
	StartDate    *time.Time            `gorm:"column:start_date" json:"start_date"`
	EndDate      *time.Time            `gorm:"column:end_date" json:"end_date"`
	Requirements []ResourceRequirement `gorm:"foreignKey:ProjectID" json:"requirements"`
	CreatedAt    time.Time             `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt    time.Time             `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Project) TableName() string {
	return "Projects"
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Interval returns the project's date range; ok is false when either date is missing.
func (p Project) Interval() (Interval, bool) {
	if p.StartDate == nil || p.EndDate == nil {
		return Interval{}, false
	}
	return Interval{Start: Day(*p.StartDate), End: Day(*p.EndDate)}, true
}

// ResourceRequirement is a project's declared head-count against a pool.
type ResourceRequirement struct {
	ID             string       `gorm:"column:id;primaryKey" json:"id"`
	ProjectID      string       `gorm:"column:project_id;not null;index" json:"project_id"`
	ResourcePoolID string       `gorm:"column:resource_pool_id;not null;index" json:"resource_pool_id"`
	Count          int          `gorm:"column:count;not null" json:"count"`
	Duration       int          `gorm:"column:duration" json:"duration"`
	Unit           DurationUnit `gorm:"column:unit;type:varchar(8);default:'month'" json:"unit"`
}

func (ResourceRequirement) TableName() string {
	return "ResourceRequirements"
}

func (r *ResourceRequirement) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
