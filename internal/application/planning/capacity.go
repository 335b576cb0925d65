package planning

import (
	"sort"

	"ppm-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// Contribution is one project's demand inside a bucket.
type Contribution struct {
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
	Amount      int    `json:"amount"`
	Status      string `json:"status"`
}

// Allocation is the demand against one pool in one bucket.
type Allocation struct {
	Bucket        TimeBucket     `json:"bucket"`
	Capacity      int            `json:"capacity"`
	Used          int            `json:"used"`
	Utilization   float64        `json:"utilization"`
	OverAllocated bool           `json:"over_allocated"`
	Contributions []Contribution `json:"contributions"`
}

// PoolCapacity holds one Allocation per bucket, in bucket order.
type PoolCapacity struct {
	Pool        domain.ResourcePool `json:"pool"`
	Allocations []Allocation        `json:"allocations"`
}

// Utilization is used/capacity as a percentage rounded to one decimal place.
// A pool with zero capacity reports 0.
func Utilization(used, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(used)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(capacity))).
		Round(1)
	return pct.InexactFloat64()
}

// Aggregate sums every requirement whose project interval overlaps a bucket.
// Projects missing either date contribute nothing. The result does not depend
// on the order of projects.
func Aggregate(pools []domain.ResourcePool, projects []domain.Project, buckets []TimeBucket) []PoolCapacity {
	type key struct {
		pool   string
		bucket int
	}
	contrib := make(map[key][]Contribution)
	for _, p := range projects {
		interval, ok := p.Interval()
		if !ok {
			continue
		}
		for bi, b := range buckets {
			if !interval.Overlaps(b.Interval()) {
				continue
			}
			for _, req := range p.Requirements {
				k := key{pool: req.ResourcePoolID, bucket: bi}
				contrib[k] = append(contrib[k], Contribution{
					ProjectID:   p.ID,
					ProjectName: p.Name,
					Amount:      req.Count,
					Status:      p.Status,
				})
			}
		}
	}

	out := make([]PoolCapacity, 0, len(pools))
	for _, pool := range pools {
		pc := PoolCapacity{Pool: pool, Allocations: make([]Allocation, 0, len(buckets))}
		for bi, b := range buckets {
			cs := contrib[key{pool: pool.ID, bucket: bi}]
			if cs == nil {
				cs = []Contribution{}
			}
			sort.SliceStable(cs, func(i, j int) bool {
				if cs[i].ProjectID != cs[j].ProjectID {
					return cs[i].ProjectID < cs[j].ProjectID
				}
				return cs[i].Amount < cs[j].Amount
			})
			used := 0
			for _, c := range cs {
				used += c.Amount
			}
			pc.Allocations = append(pc.Allocations, Allocation{
				Bucket:        b,
				Capacity:      pool.TotalQuantity,
				Used:          used,
				Utilization:   Utilization(used, pool.TotalQuantity),
				OverAllocated: used > pool.TotalQuantity,
				Contributions: cs,
			})
		}
		out = append(out, pc)
	}
	return out
}
