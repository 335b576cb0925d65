package middleware

import (
	"errors"

	"ppm-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders errors that escape handlers in the standard envelope.
// Only *fiber.Error messages reach the client; anything else is logged and
// reported as a bare 500 with the trace id.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return response.Error(c, fe.Message, fe.Code, nil)
	}
	Logger(c).Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	details := fiber.Map{}
	if id := GetTraceID(c); id != "" {
		details["trace_id"] = id
	}
	return response.Error(c, response.MsgInternal, fiber.StatusInternalServerError, details)
}
