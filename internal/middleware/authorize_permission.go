package middleware

import (
	"ppm-backend/internal/pkg/constants"
	"ppm-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthorizePermission gates a route on constants.PermissionRoles. A permission
// missing from the table is a wiring bug and answers 500.
func AuthorizePermission(permission string) fiber.Handler {
	if _, ok := constants.PermissionRoles[permission]; !ok {
		return func(c *fiber.Ctx) error {
			Logger(c).Error().Str("permission", permission).Msg("permission not configured")
			return response.Error(c, "Permission configuration error", fiber.StatusInternalServerError, nil)
		}
	}
	return func(c *fiber.Ctx) error {
		if GetUserID(c) == "" {
			return response.Unauthorized(c, "Unauthorized")
		}
		role := GetRole(c)
		if !constants.AllowedRole(permission, role) {
			Logger(c).Info().Str("permission", permission).Str("role", role).Msg("permission denied")
			return response.Forbidden(c)
		}
		return c.Next()
	}
}
