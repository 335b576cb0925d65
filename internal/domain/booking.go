package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingStatus is the lifecycle state of a Booking.
type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking sources.
const (
	SourceReserve = "reserve"
	SourceImport  = "import"
)

// Booking reserves one PhysicalResource for one project over a closed date range.
// Only Status ever changes after creation.
type Booking struct {
	ID         string        `gorm:"column:id;primaryKey" json:"id"`
	ResourceID string        `gorm:"column:resource_id;not null;index" json:"resource_id"`
	ProjectID  string        `gorm:"column:project_id;not null;index" json:"project_id"`
	StartDate  time.Time     `gorm:"column:start_date;not null" json:"start_date"`
	EndDate    time.Time     `gorm:"column:end_date;not null" json:"end_date"`
	ReservedBy string        `gorm:"column:reserved_by;not null" json:"reserved_by"`
	Status     BookingStatus `gorm:"column:status;type:varchar(16);not null;default:'active';index" json:"status"`
	Source     string        `gorm:"column:source;type:varchar(16);default:'reserve'" json:"source"`
	CreatedAt  time.Time     `gorm:"column:createdAt" json:"createdAt"`
}

func (Booking) TableName() string {
	return "Bookings"
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Interval returns the booking's date range.
func (b Booking) Interval() Interval {
	return Interval{Start: b.StartDate, End: b.EndDate}
}

// ReplacementRecord is one entry of a resource's maintenance log.
type ReplacementRecord struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	ResourceID  string    `gorm:"column:resource_id;not null;index" json:"resource_id"`
	Part        string    `gorm:"column:part;not null" json:"part"`
	Note        string    `gorm:"column:note" json:"note,omitempty"`
	PerformedBy string    `gorm:"column:performed_by;not null" json:"performed_by"`
	PerformedAt time.Time `gorm:"column:performed_at;not null" json:"performed_at"`
}

func (ReplacementRecord) TableName() string {
	return "ReplacementRecords"
}

func (r *ReplacementRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
