package domain

import (
	"fmt"
	"time"
)

// ResourceKind is the persisted discriminator for Variant.
type ResourceKind string

const (
	KindBay     ResourceKind = "bay"
	KindMachine ResourceKind = "machine"
)

// ResourceStatus is the state of a PhysicalResource.
type ResourceStatus string

const (
	StatusAvailable   ResourceStatus = "available"
	StatusOccupied    ResourceStatus = "occupied"
	StatusMaintenance ResourceStatus = "maintenance"
)

// PhysicalResource is an indivisible, exclusively bookable asset.
// Bookings and Replacements are ordered most recent first.
type PhysicalResource struct {
	ID               string              `gorm:"column:id;primaryKey" json:"id"`
	Kind             ResourceKind        `gorm:"column:kind;type:varchar(16);not null" json:"kind"`
	Name             string              `gorm:"column:name;not null" json:"name"`
	Size             string              `gorm:"column:size" json:"size,omitempty"`
	Model            string              `gorm:"column:model" json:"model,omitempty"`
	Health           float64             `gorm:"column:health;not null;default:100" json:"health"`
	Status           ResourceStatus      `gorm:"column:status;type:varchar(16);not null;default:'available'" json:"status"`
	CurrentProjectID *string             `gorm:"column:current_project_id" json:"current_project_id"`
	ReservedBy       *string             `gorm:"column:reserved_by" json:"reserved_by"`
	LastMaintenance  *time.Time          `gorm:"column:last_maintenance" json:"last_maintenance"`
	NextMaintenance  *time.Time          `gorm:"column:next_maintenance" json:"next_maintenance"`
	Version          int64               `gorm:"column:version;not null;default:1" json:"version"`
	Bookings         []Booking           `gorm:"foreignKey:ResourceID" json:"bookings"`
	Replacements     []ReplacementRecord `gorm:"foreignKey:ResourceID" json:"replacements"`
	CreatedAt        time.Time           `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt        time.Time           `gorm:"column:updatedAt" json:"updatedAt"`
}

func (PhysicalResource) TableName() string {
	return "PhysicalResources"
}

// Variant is the kind-specific part of a PhysicalResource: Bay or Machine.
type Variant interface {
	Kind() ResourceKind
}

// Bay is a lab bay classified by size.
type Bay struct {
	Size string
}

func (Bay) Kind() ResourceKind { return KindBay }

// Machine is a specialised machine classified by model.
type Machine struct {
	Model string
}

func (Machine) Kind() ResourceKind { return KindMachine }

// Variant returns the typed variant for r, or an error for an unknown kind.
func (r PhysicalResource) Variant() (Variant, error) {
	switch r.Kind {
	case KindBay:
		return Bay{Size: r.Size}, nil
	case KindMachine:
		return Machine{Model: r.Model}, nil
	default:
		return nil, fmt.Errorf("unknown resource kind %q", r.Kind)
	}
}

// Label is a human readable description used in reports.
func (r PhysicalResource) Label() string {
	v, err := r.Variant()
	if err != nil {
		return r.Name
	}
	switch v := v.(type) {
	case Bay:
		if v.Size == "" {
			return "Bay " + r.Name
		}
		return fmt.Sprintf("Bay %s (%s)", r.Name, v.Size)
	case Machine:
		if v.Model == "" {
			return "Machine " + r.Name
		}
		return fmt.Sprintf("Machine %s [%s]", r.Name, v.Model)
	}
	return r.Name
}

// ActiveBookings returns the bookings still in status active.
func (r PhysicalResource) ActiveBookings() []Booking {
	var out []Booking
	for _, b := range r.Bookings {
		if b.Status == BookingActive {
			out = append(out, b)
		}
	}
	return out
}

// Clone returns a deep copy so callers never share slices or pointers with a store.
func (r PhysicalResource) Clone() PhysicalResource {
	c := r
	c.CurrentProjectID = clonePtr(r.CurrentProjectID)
	c.ReservedBy = clonePtr(r.ReservedBy)
	c.LastMaintenance = clonePtr(r.LastMaintenance)
	c.NextMaintenance = clonePtr(r.NextMaintenance)
	if r.Bookings != nil {
		c.Bookings = make([]Booking, len(r.Bookings))
		copy(c.Bookings, r.Bookings)
	}
	if r.Replacements != nil {
		c.Replacements = make([]ReplacementRecord, len(r.Replacements))
		copy(c.Replacements, r.Replacements)
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
