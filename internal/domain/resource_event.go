package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Resource event types, one per successful mutation.
const (
	EventReserved             = "RESERVED"
	EventReleased             = "RELEASED"
	EventBookingCancelled     = "BOOKING_CANCELLED"
	EventMaintenanceStarted   = "MAINTENANCE_STARTED"
	EventMaintenanceCompleted = "MAINTENANCE_COMPLETED"
	EventReplacementLogged    = "REPLACEMENT_LOGGED"
	EventHealthReported       = "HEALTH_REPORTED"
	EventBookingsImported     = "BOOKINGS_IMPORTED"
)

// ResourceEvent is the audit trail entry written alongside each version bump.
type ResourceEvent struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ResourceID string         `gorm:"column:resource_id;not null;index" json:"resource_id"`
	EventType  string         `gorm:"column:event_type;type:varchar(32);not null" json:"event_type"`
	Version    int64          `gorm:"column:version;not null" json:"version"`
	ActorID    string         `gorm:"column:actor_id" json:"actor_id"`
	EventData  datatypes.JSON `gorm:"column:event_data;type:json" json:"event_data"`
	CreatedAt  time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (ResourceEvent) TableName() string {
	return "ResourceEvents"
}

func (e *ResourceEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
