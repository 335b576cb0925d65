package booking

import (
	"errors"
	"fmt"
	"time"

	"ppm-backend/internal/domain"
)

var (
	ErrStaleVersion      = errors.New("resource was modified by another scheduler")
	ErrOverlap           = errors.New("booking overlaps an active booking")
	ErrInvalidInterval   = errors.New("invalid booking interval")
	ErrPermissionDenied  = errors.New("actor is not allowed to modify this resource")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// StaleVersionError means the caller's last-observed version is no longer current.
// The caller has to re-read the resource before retrying.
type StaleVersionError struct {
	ResourceID string
	Expected   int64
	Current    int64
}

func (e *StaleVersionError) Error() string {
	return fmt.Sprintf("resource %s: expected version %d, current version %d", e.ResourceID, e.Expected, e.Current)
}

func (e *StaleVersionError) Is(target error) bool { return target == ErrStaleVersion }

// OverlapError names the active booking that collides with the request.
type OverlapError struct {
	ResourceID string
	Existing   domain.Booking
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("resource %s: overlaps booking %s (%s to %s)", e.ResourceID, e.Existing.ID,
		e.Existing.StartDate.Format(domain.DateLayout), e.Existing.EndDate.Format(domain.DateLayout))
}

func (e *OverlapError) Is(target error) bool { return target == ErrOverlap }

// InvalidIntervalError reports a missing date or start after end.
type InvalidIntervalError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidIntervalError) Error() string {
	if e.Start.IsZero() || e.End.IsZero() {
		return "start and end dates are required"
	}
	return fmt.Sprintf("start date %s is after end date %s", e.Start.Format(domain.DateLayout), e.End.Format(domain.DateLayout))
}

func (e *InvalidIntervalError) Is(target error) bool { return target == ErrInvalidInterval }

// PermissionDeniedError is returned when the injected CanMutate predicate refuses the actor.
type PermissionDeniedError struct {
	ResourceID string
	ActorID    string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("actor %s may not modify resource %s", e.ActorID, e.ResourceID)
}

func (e *PermissionDeniedError) Is(target error) bool { return target == ErrPermissionDenied }

// NotFoundError reports an unknown resource or booking id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidTransitionError reports a move the resource state machine does not allow.
type InvalidTransitionError struct {
	ResourceID string
	From       domain.ResourceStatus
	To         domain.ResourceStatus
	Reason     string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("resource %s: cannot move from %s to %s", e.ResourceID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Outcome classifies err for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrStaleVersion):
		return "stale"
	case errors.Is(err, ErrOverlap):
		return "overlap"
	case errors.Is(err, ErrInvalidInterval):
		return "invalid_interval"
	case errors.Is(err, ErrPermissionDenied):
		return "denied"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "error"
	}
}
