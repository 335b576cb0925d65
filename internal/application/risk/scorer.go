// Package risk ranks physical resources that need intervention.
package risk

import (
	"math"
	"sort"
	"time"

	"ppm-backend/internal/domain"
)

// Score weights. The total is capped at MaxScore.
const (
	WeightLowHealth          = 40
	WeightInMaintenance      = 20
	WeightConflict           = 40
	WeightMaintenanceDueSoon = 30

	LowHealthThreshold   = 30.0
	MaintenanceDueWithin = 7
	MaxScore             = 100
)

// Factor names reported in an Assessment.
const (
	FactorLowHealth          = "low_health"
	FactorInMaintenance      = "in_maintenance"
	FactorConflict           = "booking_conflict"
	FactorMaintenanceDueSoon = "maintenance_due"
)

// ConflictPair is two active bookings on the same resource whose intervals intersect.
type ConflictPair struct {
	ResourceID string         `json:"resource_id"`
	First      domain.Booking `json:"first"`
	Second     domain.Booking `json:"second"`
}

// DetectOverlaps tests every pair of active bookings on r.
func DetectOverlaps(r domain.PhysicalResource) []ConflictPair {
	active := r.ActiveBookings()
	pairs := []ConflictPair{}
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			if active[i].Interval().Overlaps(active[j].Interval()) {
				pairs = append(pairs, ConflictPair{ResourceID: r.ID, First: active[i], Second: active[j]})
			}
		}
	}
	return pairs
}

// DaysUntil is ceil((next - now) / 24h). Negative when overdue.
func DaysUntil(next, now time.Time) int {
	return int(math.Ceil(next.Sub(now).Hours() / 24))
}

// Assessment is the derived risk view of one resource.
type Assessment struct {
	Resource             domain.PhysicalResource `json:"resource"`
	Score                int                     `json:"score"`
	Factors              []string                `json:"factors"`
	Conflicts            []ConflictPair          `json:"conflicts"`
	DaysUntilMaintenance *int                    `json:"days_until_maintenance"`
}

// Assess computes the additive, capped score for r at time now.
func Assess(r domain.PhysicalResource, now time.Time) Assessment {
	a := Assessment{Resource: r, Factors: []string{}, Conflicts: DetectOverlaps(r)}
	if r.Health < LowHealthThreshold {
		a.Score += WeightLowHealth
		a.Factors = append(a.Factors, FactorLowHealth)
	}
	if r.Status == domain.StatusMaintenance {
		a.Score += WeightInMaintenance
		a.Factors = append(a.Factors, FactorInMaintenance)
	}
	if len(a.Conflicts) > 0 {
		a.Score += WeightConflict
		a.Factors = append(a.Factors, FactorConflict)
	}
	if r.NextMaintenance != nil {
		days := DaysUntil(*r.NextMaintenance, now)
		a.DaysUntilMaintenance = &days
		if days < MaintenanceDueWithin {
			a.Score += WeightMaintenanceDueSoon
			a.Factors = append(a.Factors, FactorMaintenanceDueSoon)
		}
	}
	if a.Score > MaxScore {
		a.Score = MaxScore
	}
	return a
}

// Score returns only the 0-100 value of Assess.
func Score(r domain.PhysicalResource, now time.Time) int {
	return Assess(r, now).Score
}

// Rank assesses every resource and sorts by score descending, then by id.
func Rank(resources []domain.PhysicalResource, now time.Time) []Assessment {
	out := make([]Assessment, 0, len(resources))
	for _, r := range resources {
		out = append(out, Assess(r, now))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Resource.ID < out[j].Resource.ID
	})
	return out
}
