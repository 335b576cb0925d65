package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNegativeQuantity = errors.New("total quantity cannot be negative")

// ResourcePool is a fungible capacity unit such as "Backend Engineers".
type ResourcePool struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	Name          string    `gorm:"column:name;not null" json:"name"`
	TotalQuantity int       `gorm:"column:total_quantity;not null;default:0" json:"total_quantity"`
	Department    string    `gorm:"column:department" json:"department,omitempty"`
	Category      string    `gorm:"column:category" json:"category,omitempty"`
	CreatedAt     time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (ResourcePool) TableName() string {
	return "ResourcePools"
}

func (p *ResourcePool) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return p.BeforeSave(tx)
}

func (p *ResourcePool) BeforeSave(tx *gorm.DB) error {
	if p.TotalQuantity < 0 {
		return ErrNegativeQuantity
	}
	return nil
}
