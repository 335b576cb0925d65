package booking

import (
	"context"
	"math"
	"time"

	"ppm-backend/internal/application/risk"
	"ppm-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CanMutate is the authorization collaborator's capability check.
type CanMutate func(resource domain.PhysicalResource, actorID string) bool

// Observer receives the outcome label of every mutation attempt.
type Observer interface {
	Observe(operation, outcome string)
}

// MaintenancePolicy sets the next maintenance date per resource variant.
type MaintenancePolicy struct {
	BayInterval     time.Duration
	MachineInterval time.Duration
}

// DefaultMaintenancePolicy services bays twice a year and machines quarterly.
var DefaultMaintenancePolicy = MaintenancePolicy{
	BayInterval:     180 * 24 * time.Hour,
	MachineInterval: 90 * 24 * time.Hour,
}

// NextDue returns the maintenance date following a service on day.
func (p MaintenancePolicy) NextDue(v domain.Variant, day time.Time) time.Time {
	var interval time.Duration
	switch v.(type) {
	case domain.Bay:
		interval = p.BayInterval
	case domain.Machine:
		interval = p.MachineInterval
	}
	if interval <= 0 {
		interval = DefaultMaintenancePolicy.MachineInterval
	}
	return domain.Day(day.Add(interval))
}

// Service is the booking ledger and concurrency controller. Every mutation
// takes the caller's last-observed version and either applies completely with
// version+1 or fails with a typed error and no change.
type Service struct {
	Store       Store
	CanMutate   CanMutate
	Maintenance MaintenancePolicy
	Metrics     Observer
	Now         func() time.Time
}

// Result is returned by successful mutations.
type Result struct {
	Resource domain.PhysicalResource `json:"resource"`
	Booking  *domain.Booking         `json:"booking,omitempty"`
	Version  int64                   `json:"version"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) observe(op string, err error) {
	outcome := Outcome(err)
	if s.Metrics != nil {
		s.Metrics.Observe(op, outcome)
	}
	if err != nil {
		log.Info().Str("operation", op).Str("outcome", outcome).Err(err).Msg("resource mutation rejected")
	}
}

// authorize checks the caller's version and capability against a snapshot.
// The later CAS only succeeds when the resource is still at that version, so
// the capability decision holds for the state actually written.
func (s *Service) authorize(snap domain.PhysicalResource, expected int64, actorID string) error {
	if snap.Version != expected {
		return &StaleVersionError{ResourceID: snap.ID, Expected: expected, Current: snap.Version}
	}
	if s.CanMutate != nil && !s.CanMutate(snap, actorID) {
		return &PermissionDeniedError{ResourceID: snap.ID, ActorID: actorID}
	}
	return nil
}

func overlapGuard(interval domain.Interval) func(domain.PhysicalResource) error {
	return func(cur domain.PhysicalResource) error {
		for _, b := range cur.ActiveBookings() {
			if b.Interval().Overlaps(interval) {
				return &OverlapError{ResourceID: cur.ID, Existing: b}
			}
		}
		return nil
	}
}

// ReserveInput is the request to book a resource for a project.
type ReserveInput struct {
	ResourceID      string
	ProjectID       string
	Start           time.Time
	End             time.Time
	Principal       string
	ExpectedVersion int64
}

// Reserve books an available resource. Overlap with an active booking is
// reported ahead of a stale version so colliding schedulers learn which
// booking they hit.
func (s *Service) Reserve(ctx context.Context, in ReserveInput) (res Result, err error) {
	defer func() { s.observe("reserve", err) }()

	interval := domain.Interval{Start: domain.Day(in.Start), End: domain.Day(in.End)}
	if !interval.Valid() {
		return Result{}, &InvalidIntervalError{Start: interval.Start, End: interval.End}
	}
	snap, err := s.Store.Get(ctx, in.ResourceID)
	if err != nil {
		return Result{}, err
	}
	guard := overlapGuard(interval)
	if err := guard(snap); err != nil {
		return Result{}, err
	}
	if err := s.authorize(snap, in.ExpectedVersion, in.Principal); err != nil {
		return Result{}, err
	}

	b := domain.Booking{
		ID:         uuid.NewString(),
		ResourceID: in.ResourceID,
		ProjectID:  in.ProjectID,
		StartDate:  interval.Start,
		EndDate:    interval.End,
		ReservedBy: in.Principal,
		Status:     domain.BookingActive,
		Source:     domain.SourceReserve,
		CreatedAt:  s.now(),
	}
	updated, err := s.Store.Mutate(ctx, in.ResourceID, in.ExpectedVersion, Mutation{
		Event: domain.EventReserved,
		Actor: in.Principal,
		Guard: guard,
		Apply: func(r *domain.PhysicalResource) (map[string]interface{}, error) {
			if r.Status != domain.StatusAvailable {
				return nil, &InvalidTransitionError{ResourceID: r.ID, From: r.Status, To: domain.StatusOccupied}
			}
			projectID, principal := in.ProjectID, in.Principal
			r.Bookings = append([]domain.Booking{b}, r.Bookings...)
			r.Status = domain.StatusOccupied
			r.CurrentProjectID = &projectID
			r.ReservedBy = &principal
			return map[string]interface{}{
				"booking_id": b.ID,
				"project_id": b.ProjectID,
				"start_date": b.StartDate.Format(domain.DateLayout),
				"end_date":   b.EndDate.Format(domain.DateLayout),
			}, nil
		},
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Resource: updated, Booking: &b, Version: updated.Version}, nil
}

// Release frees an occupied resource. The occupying booking is closed as
// completed, or cancelled when released before its start date.
func (s *Service) Release(ctx context.Context, resourceID string, expectedVersion int64, actorID string) (res Result, err error) {
	defer func() { s.observe("release", err) }()

	snap, err := s.Store.Get(ctx, resourceID)
	if err != nil {
		return Result{}, err
	}
	if err := s.authorize(snap, expectedVersion, actorID); err != nil {
		return Result{}, err
	}
	today := domain.Day(s.now())
	var closed *domain.Booking
	updated, err := s.Store.Mutate(ctx, resourceID, expectedVersion, Mutation{
		Event: domain.EventReleased,
		Actor: actorID,
		Apply: func(r *domain.PhysicalResource) (map[string]interface{}, error) {
			if r.Status != domain.StatusOccupied {
				return nil, &InvalidTransitionError{ResourceID: r.ID, From: r.Status, To: domain.StatusAvailable, Reason: "resource is not occupied"}
			}
			data := map[string]interface{}{}
			if r.CurrentProjectID != nil {
				data["project_id"] = *r.CurrentProjectID
				for i := range r.Bookings {
					b := &r.Bookings[i]
					if b.Status != domain.BookingActive || b.Source == domain.SourceImport || b.ProjectID != *r.CurrentProjectID {
						continue
					}
					b.Status = domain.BookingCompleted
					if today.Before(domain.Day(b.StartDate)) {
						b.Status = domain.BookingCancelled
					}
					c := *b
					closed = &c
					data["booking_id"] = b.ID
					data["booking_status"] = b.Status
					break
				}
			}
			r.Status = domain.StatusAvailable
			r.CurrentProjectID = nil
			r.ReservedBy = nil
			return data, nil
		},
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Resource: updated, Booking: closed, Version: updated.Version}, nil
}

// CancelBooking cancels one active booking. Cancelling the occupying booking
// also frees the resource.
func (s *Service) CancelBooking(ctx context.Context, resourceID, bookingID string, expectedVersion int64, actorID string) (res Result, err error) {
	defer func() { s.observe("cancel_booking", err) }()

	snap, err := s.Store.Get(ctx, resourceID)
	if err != nil {
		return Result{}, err
	}
	if err := s.authorize(snap, expectedVersion, actorID); err != nil {
		return Result{}, err
	}
	var cancelled *domain.Booking
	updated, err := s.Store.Mutate(ctx, resourceID, expectedVersion, Mutation{
		Event: domain.EventBookingCancelled,
		Actor: actorID,
		Apply: func(r *domain.PhysicalResource) (map[string]interface{}, error) {
			for i := range r.Bookings {
				b := &r.Bookings[i]
				if b.ID != bookingID {
					continue
				}
				if b.Status != domain.BookingActive {
					return nil, &NotFoundError{Kind: "active booking", ID: bookingID}
				}
				b.Status = domain.BookingCancelled
				c := *b
				cancelled = &c
				if r.Status == domain.StatusOccupied && r.CurrentProjectID != nil && *r.CurrentProjectID == b.ProjectID && !hasOtherActive(r, b.ID, b.ProjectID) {
					r.Status = domain.StatusAvailable
					r.CurrentProjectID = nil
					r.ReservedBy = nil
				}
				return map[string]interface{}{"booking_id": b.ID, "booking_status": b.Status}, nil
			}
			return nil, &NotFoundError{Kind: "booking", ID: bookingID}
		},
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Resource: updated, Booking: cancelled, Version: updated.Version}, nil
}

func hasOtherActive(r *domain.PhysicalResource, exceptID, projectID string) bool {
	for _, b := range r.Bookings {
		if b.ID != exceptID && b.Status == domain.BookingActive && b.ProjectID == projectID {
			return true
		}
	}
	return false
}

// StartMaintenance moves an available resource with no active bookings into maintenance.
func (s *Service) StartMaintenance(ctx context.Context, resourceID string, expectedVersion int64, actorID string) (res Result, err error) {
	defer func() { s.observe("start_maintenance", err) }()

	snap, err := s.Store.Get(ctx, resourceID)
	if err != nil {
		return Result{}, err
	}
	if err := s.authorize(snap, expectedVersion, actorID); err != nil {
		return Result{}, err
	}
	updated, err := s.Store.Mutate(ctx, resourceID, expectedVersion, Mutation{
		Event: domain.EventMaintenanceStarted,
		Actor: actorID,
		Apply: func(r *domain.PhysicalResource) (map[string]interface{}, error) {
			if r.Status != domain.StatusAvailable {
				return nil, &InvalidTransitionError{ResourceID: r.ID, From: r.Status, To: domain.StatusMaintenance}
			}
			if n := len(r.ActiveBookings()); n > 0 {
				return nil, &InvalidTransitionError{ResourceID: r.ID, From: r.Status, To: domain.StatusMaintenance, Reason: "resource has active bookings"}
			}
			r.Status = domain.StatusMaintenance
			return map[string]interface{}{"health": r.Health}, nil
		},
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Resource: updated, Version: updated.Version}, nil
}

// Replacement is a part swapped during maintenance.
type Replacement struct {
	Part string
	Note string
}

// CompleteMaintenance returns a resource to service with health reset to 100
// and the next maintenance date scheduled for its variant.
func (s *Service) CompleteMaintenance(ctx context.Context, resourceID string, expectedVersion int64, actorID string, replacements []Replacement) (res Result, err error) {
	defer func() { s.observe("complete_maintenance", err) }()

	snap, err := s.Store.Get(ctx, resourceID)
	if err != nil {
		return Result{}, err
	}
	if err := s.authorize(snap, expectedVersion, actorID); err != nil {
		return Result{}, err
	}
	now := s.now()
	today := domain.Day(now)
	updated, err := s.Store.Mutate(ctx, resourceID, expectedVersion, Mutation{
		Event: domain.EventMaintenanceCompleted,
		Actor: actorID,
		Apply: func(r *domain.PhysicalResource) (map[string]interface{}, error) {
			if r.Status != domain.StatusMaintenance {
				return nil, &InvalidTransitionError{ResourceID: r.ID, From: r.Status, To: domain.StatusAvailable, Reason: "resource is not in maintenance"}
			}
			v, err := r.Variant()
			if err != nil {
				return nil, err
			}
			next := s.Maintenance.NextDue(v, today)
			r.Status = domain.StatusAvailable
			r.Health = 100
			r.LastMaintenance = &today
			r.NextMaintenance = &next
			parts := make([]string, 0, len(replacements))
			for _, rep := range replacements {
				r.Replacements = append([]domain.ReplacementRecord{newRecord(r.ID, rep, actorID, now)}, r.Replacements...)
				parts = append(parts, rep.Part)
			}
			return map[string]interface{}{
				"next_maintenance": next.Format(domain.DateLayout),
				"replaced_parts":   parts,
			}, nil
		},
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Resource: updated, Version: updated.Version}, nil
}

func newRecord(resourceID string, rep Replacement, actorID string, at time.Time) domain.ReplacementRecord {
	return domain.ReplacementRecord{
		ID:          uuid.NewString(),
		ResourceID:  resourceID,
		Part:        rep.Part,
		Note:        rep.Note,
		PerformedBy: actorID,
		PerformedAt: at,
	}
}

// LogReplacement appends one entry to the maintenance log.
func (s *Service) LogReplacement(ctx context.Context, resourceID string, expectedVersion int64, actorID string, rep Replacement) (res Result, err error) {
	defer func() { s.observe("log_replacement", err) }()

	snap, err := s.Store.Get(ctx, resourceID)
	if err != nil {
		return Result{}, err
	}
	if err := s.authorize(snap, expectedVersion, actorID); err != nil {
		return Result{}, err
	}
	now := s.now()
	updated, err := s.Store.Mutate(ctx, resourceID, expectedVersion, Mutation{
		Event: domain.EventReplacementLogged,
		Actor: actorID,
		Apply: func(r *domain.PhysicalResource) (map[string]interface{}, error) {
			r.Replacements = append([]domain.ReplacementRecord{newRecord(r.ID, rep, actorID, now)}, r.Replacements...)
			return map[string]interface{}{"part": rep.Part}, nil
		},
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Resource: updated, Version: updated.Version}, nil
}

// ReportHealth records a new health reading, clamped to [0, 100].
func (s *Service) ReportHealth(ctx context.Context, resourceID string, expectedVersion int64, actorID string, health float64) (res Result, err error) {
	defer func() { s.observe("report_health", err) }()

	snap, err := s.Store.Get(ctx, resourceID)
	if err != nil {
		return Result{}, err
	}
	if err := s.authorize(snap, expectedVersion, actorID); err != nil {
		return Result{}, err
	}
	health = math.Max(0, math.Min(100, health))
	updated, err := s.Store.Mutate(ctx, resourceID, expectedVersion, Mutation{
		Event: domain.EventHealthReported,
		Actor: actorID,
		Apply: func(r *domain.PhysicalResource) (map[string]interface{}, error) {
			prev := r.Health
			r.Health = health
			return map[string]interface{}{"previous": prev, "health": health}, nil
		},
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Resource: updated, Version: updated.Version}, nil
}

// ImportedBooking is a reservation coming from another system.
type ImportedBooking struct {
	ProjectID  string
	Start      time.Time
	End        time.Time
	ReservedBy string
}

// ImportResult carries the overlaps present after an import.
type ImportResult struct {
	Result
	Imported  []domain.Booking    `json:"imported"`
	Conflicts []risk.ConflictPair `json:"conflicts"`
}

// ImportBookings appends externally sourced bookings without the overlap gate.
// Overlaps are not rejected here; they are detected, logged and reported.
func (s *Service) ImportBookings(ctx context.Context, resourceID string, expectedVersion int64, actorID string, items []ImportedBooking) (res ImportResult, err error) {
	defer func() { s.observe("import_bookings", err) }()

	now := s.now()
	imported := make([]domain.Booking, 0, len(items))
	for _, it := range items {
		interval := domain.Interval{Start: domain.Day(it.Start), End: domain.Day(it.End)}
		if !interval.Valid() {
			return ImportResult{}, &InvalidIntervalError{Start: interval.Start, End: interval.End}
		}
		reservedBy := it.ReservedBy
		if reservedBy == "" {
			reservedBy = actorID
		}
		imported = append(imported, domain.Booking{
			ID:         uuid.NewString(),
			ResourceID: resourceID,
			ProjectID:  it.ProjectID,
			StartDate:  interval.Start,
			EndDate:    interval.End,
			ReservedBy: reservedBy,
			Status:     domain.BookingActive,
			Source:     domain.SourceImport,
			CreatedAt:  now,
		})
	}

	snap, err := s.Store.Get(ctx, resourceID)
	if err != nil {
		return ImportResult{}, err
	}
	if err := s.authorize(snap, expectedVersion, actorID); err != nil {
		return ImportResult{}, err
	}
	updated, err := s.Store.Mutate(ctx, resourceID, expectedVersion, Mutation{
		Event: domain.EventBookingsImported,
		Actor: actorID,
		Apply: func(r *domain.PhysicalResource) (map[string]interface{}, error) {
			if r.Status == domain.StatusMaintenance {
				return nil, &InvalidTransitionError{ResourceID: r.ID, From: r.Status, To: r.Status, Reason: "resource is in maintenance"}
			}
			ids := make([]string, 0, len(imported))
			for i := len(imported) - 1; i >= 0; i-- {
				r.Bookings = append([]domain.Booking{imported[i]}, r.Bookings...)
			}
			for _, b := range imported {
				ids = append(ids, b.ID)
			}
			return map[string]interface{}{"booking_ids": ids}, nil
		},
	})
	if err != nil {
		return ImportResult{}, err
	}

	conflicts := risk.DetectOverlaps(updated)
	for _, c := range conflicts {
		log.Warn().Str("resource_id", c.ResourceID).Str("first", c.First.ID).Str("second", c.Second.ID).
			Msg("imported bookings overlap")
	}
	return ImportResult{
		Result:    Result{Resource: updated, Version: updated.Version},
		Imported:  imported,
		Conflicts: conflicts,
	}, nil
}

// Get returns one resource.
func (s *Service) Get(ctx context.Context, resourceID string) (domain.PhysicalResource, error) {
	return s.Store.Get(ctx, resourceID)
}

// List returns the whole inventory.
func (s *Service) List(ctx context.Context) ([]domain.PhysicalResource, error) {
	return s.Store.List(ctx)
}

// Events returns the audit trail for one resource, oldest first.
func (s *Service) Events(ctx context.Context, resourceID string) ([]domain.ResourceEvent, error) {
	return s.Store.Events(ctx, resourceID)
}

// AvailableOn returns resources that are available and have no active booking covering day.
func (s *Service) AvailableOn(ctx context.Context, day time.Time) ([]domain.PhysicalResource, error) {
	resources, err := s.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []domain.PhysicalResource{}
	for _, r := range resources {
		if r.Status != domain.StatusAvailable {
			continue
		}
		free := true
		for _, b := range r.ActiveBookings() {
			if b.Interval().Contains(day) {
				free = false
				break
			}
		}
		if free {
			out = append(out, r)
		}
	}
	return out, nil
}
