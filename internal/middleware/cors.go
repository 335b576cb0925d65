package middleware

import (
	"strings"

	"ppm-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	devPasswordHeader = "dev-password"
	allowHeaders      = "Content-Type, " + devPasswordHeader + ", " + TraceIDHeader
	allowMethods      = "GET, POST, PATCH, DELETE, OPTIONS"
)

// CORSConfig holds CORS configuration (suffix + dev password).
type CORSConfig struct {
	AllowedSuffix string
	DevPassword   string
}

func (cfg CORSConfig) allows(c *fiber.Ctx, origin string) bool {
	if cfg.AllowedSuffix != "" && strings.HasSuffix(strings.ToLower(origin), strings.ToLower(cfg.AllowedSuffix)) {
		return true
	}
	return cfg.DevPassword != "" && c.Get(devPasswordHeader) == cfg.DevPassword
}

func isLocalOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
}

// CORS allows origins ending with AllowedSuffix, requests carrying the dev
// password, and local preflights. Requests without Origin pass through.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if origin == "" {
			return c.Next()
		}
		preflight := c.Method() == fiber.MethodOptions
		if preflight && (isLocalOrigin(origin) || cfg.allows(c, origin)) {
			setCORSHeaders(c, origin)
			return c.SendStatus(fiber.StatusNoContent)
		}
		if !cfg.allows(c, origin) {
			return response.Error(c, "Not allowed by CORS", fiber.StatusForbidden, nil)
		}
		setCORSHeaders(c, origin)
		return c.Next()
	}
}

func setCORSHeaders(c *fiber.Ctx, origin string) {
	c.Set("Access-Control-Allow-Origin", origin)
	c.Set("Access-Control-Allow-Credentials", "true")
	c.Set("Access-Control-Allow-Headers", allowHeaders)
	c.Set("Access-Control-Allow-Methods", allowMethods)
	c.Set("Access-Control-Expose-Headers", TraceIDHeader)
	c.Set(fiber.HeaderVary, fiber.HeaderOrigin)
}
