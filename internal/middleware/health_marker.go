package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for request health counters, read by the health service.
const (
	KeyReqTotal     = "health:global:req_total"
	KeyReqErrors    = "health:global:req_errors"
	KeyReqConflicts = "health:global:req_conflicts"
	KeyResTime      = "health:global:res_time_total"
	KeyResCount     = "health:global:res_count"
	KeyStartTime    = "health:global:start_time"
	KeyLastReq      = "health:global:last_request"
	KeyErrorLog     = "health:global:error_log"
)

// HealthKeys lists every counter key; /reset deletes them all.
var HealthKeys = []string{
	KeyReqTotal, KeyReqErrors, KeyReqConflicts, KeyResTime,
	KeyResCount, KeyStartTime, KeyLastReq, KeyErrorLog,
}

// ErrorLogSize caps the recent error list.
const ErrorLogSize = 50

func skipHealth(path string) bool {
	return path == "/" || path == "/metrics" ||
		strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon")
}

// HealthMarker records request counters in Redis in one pipeline per request.
// 409 responses (stale versions and overlapping bookings) are counted apart
// from failures; 5xx responses are also appended to the capped error log.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipHealth(c.Path()) {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		lastReq, _ := json.Marshal(fiber.Map{
			"time":   start,
			"ip":     c.IP(),
			"path":   c.OriginalURL(),
			"method": c.Method(),
			"status": status,
		})

		ctx := context.Background()
		pipe := rdb.Pipeline()
		pipe.Set(ctx, KeyLastReq, lastReq, 0)
		pipe.Incr(ctx, KeyReqTotal)
		pipe.Incr(ctx, KeyResCount)
		pipe.IncrByFloat(ctx, KeyResTime, float64(time.Since(start).Milliseconds()))
		switch {
		case status >= fiber.StatusInternalServerError || (err != nil && status < fiber.StatusBadRequest):
			entry := fiber.Map{
				"time":     time.Now(),
				"path":     c.OriginalURL(),
				"method":   c.Method(),
				"status":   status,
				"trace_id": GetTraceID(c),
			}
			if err != nil {
				entry["error"] = err.Error()
			}
			b, _ := json.Marshal(entry)
			pipe.Incr(ctx, KeyReqErrors)
			pipe.LPush(ctx, KeyErrorLog, b)
			pipe.LTrim(ctx, KeyErrorLog, 0, ErrorLogSize-1)
		case status == fiber.StatusConflict:
			pipe.Incr(ctx, KeyReqConflicts)
		}
		if _, perr := pipe.Exec(ctx); perr != nil {
			Logger(c).Warn().Err(perr).Msg("health counters")
		}
		return err
	}
}
