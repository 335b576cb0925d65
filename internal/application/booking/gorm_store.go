package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ppm-backend/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists resources through GORM. Each Mutate is one transaction
// whose write is a conditional UPDATE on the version column, so a concurrent
// writer holding the same version loses even without row locks. On Postgres the
// row is additionally locked FOR UPDATE for the duration of the transaction.
type GormStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s *GormStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *GormStore) load(tx *gorm.DB, id string) (domain.PhysicalResource, error) {
	var r domain.PhysicalResource
	err := tx.
		Preload("Bookings", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"createdAt" DESC`).Order("start_date DESC")
		}).
		Preload("Replacements", func(db *gorm.DB) *gorm.DB {
			return db.Order("performed_at DESC")
		}).
		Where("id = ?", id).
		First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r, &NotFoundError{Kind: "resource", ID: id}
		}
		return r, err
	}
	return r, nil
}

func (s *GormStore) lock(tx *gorm.DB, id string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	var row domain.PhysicalResource
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Kind: "resource", ID: id}
	}
	return err
}

func (s *GormStore) Get(ctx context.Context, id string) (domain.PhysicalResource, error) {
	return s.load(s.DB.WithContext(ctx), id)
}

func (s *GormStore) List(ctx context.Context) ([]domain.PhysicalResource, error) {
	var out []domain.PhysicalResource
	err := s.DB.WithContext(ctx).
		Preload("Bookings", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"createdAt" DESC`).Order("start_date DESC")
		}).
		Preload("Replacements", func(db *gorm.DB) *gorm.DB {
			return db.Order("performed_at DESC")
		}).
		Order("id").
		Find(&out).Error
	return out, err
}

func (s *GormStore) Provision(ctx context.Context, resources ...domain.PhysicalResource) error {
	if len(resources) == 0 {
		return nil
	}
	rows := make([]domain.PhysicalResource, 0, len(resources))
	for _, r := range resources {
		if r.Version == 0 {
			r.Version = 1
		}
		if r.Status == "" {
			r.Status = domain.StatusAvailable
		}
		rows = append(rows, r)
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (s *GormStore) Mutate(ctx context.Context, id string, expectedVersion int64, m Mutation) (domain.PhysicalResource, error) {
	var out domain.PhysicalResource
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lock(tx, id); err != nil {
			return err
		}
		cur, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if m.Guard != nil {
			if err := m.Guard(cur.Clone()); err != nil {
				return err
			}
		}
		if cur.Version != expectedVersion {
			return &StaleVersionError{ResourceID: id, Expected: expectedVersion, Current: cur.Version}
		}

		next := cur.Clone()
		data, err := m.Apply(&next)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", m.Event, err)
		}
		next.Version = expectedVersion + 1
		next.UpdatedAt = s.now()

		res := tx.Model(&domain.PhysicalResource{}).
			Where("id = ? AND version = ?", id, expectedVersion).
			Updates(map[string]interface{}{
				"status":             next.Status,
				"health":             next.Health,
				"current_project_id": next.CurrentProjectID,
				"reserved_by":        next.ReservedBy,
				"last_maintenance":   next.LastMaintenance,
				"next_maintenance":   next.NextMaintenance,
				"version":            next.Version,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.lostRace(tx, id, expectedVersion, m)
		}

		if err := s.persistChildren(tx, cur, next); err != nil {
			return err
		}
		if err := tx.Create(&domain.ResourceEvent{
			ResourceID: id,
			EventType:  m.Event,
			Version:    next.Version,
			ActorID:    m.Actor,
			EventData:  datatypes.JSON(payload),
		}).Error; err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return domain.PhysicalResource{}, err
	}
	return out, nil
}

// lostRace re-reads after a conditional update matched no row so the caller
// gets the guard's verdict on the winning state, or a stale-version error.
func (s *GormStore) lostRace(tx *gorm.DB, id string, expected int64, m Mutation) error {
	cur, err := s.load(tx, id)
	if err != nil {
		return err
	}
	if m.Guard != nil {
		if err := m.Guard(cur); err != nil {
			return err
		}
	}
	return &StaleVersionError{ResourceID: id, Expected: expected, Current: cur.Version}
}

func (s *GormStore) persistChildren(tx *gorm.DB, cur, next domain.PhysicalResource) error {
	known := make(map[string]domain.BookingStatus, len(cur.Bookings))
	for _, b := range cur.Bookings {
		known[b.ID] = b.Status
	}
	for _, b := range next.Bookings {
		status, ok := known[b.ID]
		switch {
		case !ok:
			if err := tx.Create(&b).Error; err != nil {
				return err
			}
		case status != b.Status:
			if err := tx.Model(&domain.Booking{}).Where("id = ?", b.ID).Update("status", b.Status).Error; err != nil {
				return err
			}
		}
	}

	logged := make(map[string]struct{}, len(cur.Replacements))
	for _, r := range cur.Replacements {
		logged[r.ID] = struct{}{}
	}
	for _, r := range next.Replacements {
		if _, ok := logged[r.ID]; ok {
			continue
		}
		if err := tx.Create(&r).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) Events(ctx context.Context, id string) ([]domain.ResourceEvent, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&domain.PhysicalResource{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, &NotFoundError{Kind: "resource", ID: id}
	}
	var events []domain.ResourceEvent
	err := s.DB.WithContext(ctx).Where("resource_id = ?", id).Order("version ASC").Find(&events).Error
	return events, err
}
