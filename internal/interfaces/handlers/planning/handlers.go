package planning

import (
	"strconv"

	plansvc "ppm-backend/internal/application/planning"
	"ppm-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *plansvc.Service
}

// Capacity GET /api/v1/planning/capacity?horizon=6&period=month
func (h *Handlers) Capacity(c *fiber.Ctx) error {
	period, err := plansvc.ParsePeriod(c.Query("period"))
	if err != nil {
		return response.Error(c, "period must be week, month or quarter", fiber.StatusBadRequest, nil)
	}
	horizon := 0
	if q := c.Query("horizon"); q != "" {
		horizon, err = strconv.Atoi(q)
		if err != nil || horizon < 1 || horizon > plansvc.MaxHorizon {
			return response.Error(c, "horizon must be between 1 and "+strconv.Itoa(plansvc.MaxHorizon), fiber.StatusBadRequest, nil)
		}
	}

	table, err := h.Service.CapacityTable(c.UserContext(), horizon, period)
	if err != nil {
		log.Error().Err(err).Msg("capacity table failed")
		return response.Internal(c)
	}
	over := 0
	for _, p := range table.Pools {
		for _, a := range p.Allocations {
			if a.OverAllocated {
				over++
			}
		}
	}
	return response.Success(c, "Capacity table retrieved", table, fiber.Map{
		"buckets":        len(table.Buckets),
		"pools":          len(table.Pools),
		"over_allocated": over,
	})
}

// InvalidateCache DELETE /api/v1/planning/capacity/cache
func (h *Handlers) InvalidateCache(c *fiber.Ctx) error {
	if err := h.Service.Invalidate(c.UserContext()); err != nil {
		log.Error().Err(err).Msg("capacity cache invalidation failed")
		return response.Internal(c)
	}
	return response.Success(c, "Capacity cache cleared", nil, nil)
}
