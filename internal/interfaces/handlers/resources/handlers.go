package resources

import (
	"errors"
	"strings"
	"time"

	"ppm-backend/internal/application/booking"
	"ppm-backend/internal/application/risk"
	"ppm-backend/internal/domain"
	"ppm-backend/internal/middleware"
	"ppm-backend/internal/pkg/response"
	"ppm-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Bookings    *booking.Service
	RiskService *risk.Service
	Now         func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type versionBody struct {
	Version int64 `json:"version"`
}

type replacementBody struct {
	Part string `json:"part"`
	Note string `json:"note"`
}

// writeError maps booking errors onto the standard error envelope.
func writeError(c *fiber.Ctx, err error) error {
	var stale *booking.StaleVersionError
	var overlap *booking.OverlapError
	var transition *booking.InvalidTransitionError
	var notFound *booking.NotFoundError
	switch {
	case errors.As(err, &stale):
		return response.Error(c, "Resource was modified by another scheduler; refresh and retry", fiber.StatusConflict, fiber.Map{
			"resource_id":      stale.ResourceID,
			"expected_version": stale.Expected,
			"current_version":  stale.Current,
			"refresh":          true,
		})
	case errors.As(err, &overlap):
		return response.Error(c, "Booking overlaps an existing booking", fiber.StatusConflict, fiber.Map{
			"resource_id": overlap.ResourceID,
			"booking":     overlap.Existing,
		})
	case errors.Is(err, booking.ErrInvalidInterval):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, booking.ErrPermissionDenied):
		return response.Forbidden(c)
	case errors.As(err, &notFound):
		return response.Error(c, "Not found", fiber.StatusNotFound, fiber.Map{"kind": notFound.Kind, "id": notFound.ID})
	case errors.As(err, &transition):
		return response.Error(c, err.Error(), fiber.StatusUnprocessableEntity, fiber.Map{
			"from":   transition.From,
			"to":     transition.To,
			"reason": transition.Reason,
		})
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("resource request failed")
		return response.Internal(c)
	}
}

// parseDate returns a zero time for an empty value so the service reports the missing date.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := domain.ParseDate(value)
	if err != nil {
		return time.Time{}, errors.New(field + " must be YYYY-MM-DD")
	}
	return t, nil
}

// List GET /api/v1/resources
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Bookings.List(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Resources retrieved", list, fiber.Map{"count": len(list)})
}

// Get GET /api/v1/resources/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	r, err := h.Bookings.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Resource retrieved", r, nil)
}

// Available GET /api/v1/resources/available?date=YYYY-MM-DD (defaults to today)
func (h *Handlers) Available(c *fiber.Ctx) error {
	day := domain.Day(h.now())
	if q := c.Query("date"); q != "" {
		d, err := domain.ParseDate(q)
		if err != nil {
			return response.Error(c, "date must be YYYY-MM-DD", fiber.StatusBadRequest, nil)
		}
		day = d
	}
	list, err := h.Bookings.AvailableOn(c.UserContext(), day)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Available resources retrieved", list, fiber.Map{
		"date":  day.Format(domain.DateLayout),
		"count": len(list),
	})
}

// Risk GET /api/v1/resources/risk
func (h *Handlers) Risk(c *fiber.Ctx) error {
	ranked, err := h.riskService().RankedResources(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Risk ranking retrieved", ranked, fiber.Map{"count": len(ranked)})
}

// Conflicts GET /api/v1/resources/conflicts
func (h *Handlers) Conflicts(c *fiber.Ctx) error {
	pairs, err := h.riskService().Conflicts(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	if pairs == nil {
		pairs = []risk.ConflictPair{}
	}
	return response.Success(c, "Booking conflicts retrieved", pairs, fiber.Map{"count": len(pairs)})
}

func (h *Handlers) riskService() *risk.Service {
	if h.RiskService != nil {
		return h.RiskService
	}
	return &risk.Service{Resources: h.Bookings, Now: h.Now}
}

// Events GET /api/v1/resources/:id/events
func (h *Handlers) Events(c *fiber.Ctx) error {
	events, err := h.Bookings.Events(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if events == nil {
		events = []domain.ResourceEvent{}
	}
	return response.Success(c, "Resource events retrieved", events, fiber.Map{"count": len(events)})
}

// Reserve POST /api/v1/resources/:id/reserve
func (h *Handlers) Reserve(c *fiber.Ctx) error {
	var body struct {
		ProjectID string `json:"project_id"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Version   int64  `json:"version"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.ProjectID == "" || body.Version <= 0 {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, fiber.Map{
			"required": []string{"project_id", "start_date", "end_date", "version"},
		})
	}
	if !validation.IsValidID(body.ProjectID) {
		return response.Error(c, "Invalid project_id", fiber.StatusBadRequest, nil)
	}
	start, err := parseDate("start_date", body.StartDate)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	end, err := parseDate("end_date", body.EndDate)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}

	res, err := h.Bookings.Reserve(c.UserContext(), booking.ReserveInput{
		ResourceID:      c.Params("id"),
		ProjectID:       body.ProjectID,
		Start:           start,
		End:             end,
		Principal:       middleware.GetUserID(c),
		ExpectedVersion: body.Version,
	})
	if err != nil {
		return writeError(c, err)
	}
	return response.SuccessCreated(c, "Resource reserved", res, nil)
}

// Release POST /api/v1/resources/:id/release
func (h *Handlers) Release(c *fiber.Ctx) error {
	var body versionBody
	if err := c.BodyParser(&body); err != nil || body.Version <= 0 {
		return response.Error(c, "version is required", fiber.StatusBadRequest, nil)
	}
	res, err := h.Bookings.Release(c.UserContext(), c.Params("id"), body.Version, middleware.GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Resource released", res, nil)
}

// CancelBooking POST /api/v1/resources/:id/bookings/:bookingId/cancel
func (h *Handlers) CancelBooking(c *fiber.Ctx) error {
	var body versionBody
	if err := c.BodyParser(&body); err != nil || body.Version <= 0 {
		return response.Error(c, "version is required", fiber.StatusBadRequest, nil)
	}
	res, err := h.Bookings.CancelBooking(c.UserContext(), c.Params("id"), c.Params("bookingId"), body.Version, middleware.GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Booking cancelled", res, nil)
}

// StartMaintenance POST /api/v1/resources/:id/maintenance/start
func (h *Handlers) StartMaintenance(c *fiber.Ctx) error {
	var body versionBody
	if err := c.BodyParser(&body); err != nil || body.Version <= 0 {
		return response.Error(c, "version is required", fiber.StatusBadRequest, nil)
	}
	res, err := h.Bookings.StartMaintenance(c.UserContext(), c.Params("id"), body.Version, middleware.GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Maintenance started", res, nil)
}

// CompleteMaintenance POST /api/v1/resources/:id/maintenance/complete
func (h *Handlers) CompleteMaintenance(c *fiber.Ctx) error {
	var body struct {
		Version      int64             `json:"version"`
		Replacements []replacementBody `json:"replacements"`
	}
	if err := c.BodyParser(&body); err != nil || body.Version <= 0 {
		return response.Error(c, "version is required", fiber.StatusBadRequest, nil)
	}
	reps := make([]booking.Replacement, 0, len(body.Replacements))
	for _, r := range body.Replacements {
		if strings.TrimSpace(r.Part) == "" {
			return response.Error(c, "Each replacement needs a part", fiber.StatusBadRequest, nil)
		}
		reps = append(reps, booking.Replacement{Part: r.Part, Note: r.Note})
	}
	res, err := h.Bookings.CompleteMaintenance(c.UserContext(), c.Params("id"), body.Version, middleware.GetUserID(c), reps)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Maintenance completed", res, nil)
}

// LogReplacement POST /api/v1/resources/:id/replacements
func (h *Handlers) LogReplacement(c *fiber.Ctx) error {
	var body struct {
		Version int64  `json:"version"`
		Part    string `json:"part"`
		Note    string `json:"note"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.Version <= 0 || strings.TrimSpace(body.Part) == "" {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, fiber.Map{
			"required": []string{"part", "version"},
		})
	}
	res, err := h.Bookings.LogReplacement(c.UserContext(), c.Params("id"), body.Version, middleware.GetUserID(c),
		booking.Replacement{Part: body.Part, Note: body.Note})
	if err != nil {
		return writeError(c, err)
	}
	return response.SuccessCreated(c, "Replacement logged", res, nil)
}

// ReportHealth POST /api/v1/resources/:id/health
func (h *Handlers) ReportHealth(c *fiber.Ctx) error {
	var body struct {
		Version int64    `json:"version"`
		Health  *float64 `json:"health"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.Version <= 0 || body.Health == nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, fiber.Map{
			"required": []string{"health", "version"},
		})
	}
	res, err := h.Bookings.ReportHealth(c.UserContext(), c.Params("id"), body.Version, middleware.GetUserID(c), *body.Health)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "Health reported", res, nil)
}

// Import POST /api/v1/resources/:id/import
func (h *Handlers) Import(c *fiber.Ctx) error {
	var body struct {
		Version  int64 `json:"version"`
		Bookings []struct {
			ProjectID  string `json:"project_id"`
			StartDate  string `json:"start_date"`
			EndDate    string `json:"end_date"`
			ReservedBy string `json:"reserved_by"`
		} `json:"bookings"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.Version <= 0 || len(body.Bookings) == 0 {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, fiber.Map{
			"required": []string{"bookings", "version"},
		})
	}
	items := make([]booking.ImportedBooking, 0, len(body.Bookings))
	for i, b := range body.Bookings {
		if !validation.IsValidID(b.ProjectID) {
			return response.Error(c, "Invalid project_id", fiber.StatusBadRequest, fiber.Map{"index": i})
		}
		start, err := parseDate("start_date", b.StartDate)
		if err != nil {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, fiber.Map{"index": i})
		}
		end, err := parseDate("end_date", b.EndDate)
		if err != nil {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, fiber.Map{"index": i})
		}
		items = append(items, booking.ImportedBooking{ProjectID: b.ProjectID, Start: start, End: end, ReservedBy: b.ReservedBy})
	}
	res, err := h.Bookings.ImportBookings(c.UserContext(), c.Params("id"), body.Version, middleware.GetUserID(c), items)
	if err != nil {
		return writeError(c, err)
	}
	if res.Conflicts == nil {
		res.Conflicts = []risk.ConflictPair{}
	}
	return response.Success(c, "Bookings imported", res, fiber.Map{
		"imported":  len(res.Imported),
		"conflicts": len(res.Conflicts),
	})
}
