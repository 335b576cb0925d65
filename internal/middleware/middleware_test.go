package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"ppm-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withUser(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role != "" {
			c.Locals("user", map[string]interface{}{"user_id": "u-1", "role": role})
		}
		return c.Next()
	}
}

func TestAuthorizePermission(t *testing.T) {
	cases := []struct {
		role       string
		permission string
		want       int
	}{
		{"", constants.ViewResources, fiber.StatusUnauthorized},
		{constants.Viewer, constants.ViewResources, fiber.StatusOK},
		{constants.Viewer, constants.BookResources, fiber.StatusForbidden},
		{constants.Manager, constants.ImportBookings, fiber.StatusForbidden},
		{constants.Admin, constants.ImportBookings, fiber.StatusOK},
		{constants.Admin, "no_such_permission", fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		app := fiber.New()
		app.Get("/x", withUser(tc.role), AuthorizePermission(tc.permission), func(c *fiber.Ctx) error {
			return c.SendString(GetUserID(c))
		})
		resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, "%s/%s", tc.role, tc.permission)
	}
}

func TestHealthMarker_CountsAndLogsErrors(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(Tracing(), HealthMarker(rdb))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/boom", func(c *fiber.Ctx) error { return c.Status(500).SendString("no") })
	app.Get("/stale", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusConflict) })
	app.Get("/health/json", func(c *fiber.Ctx) error { return c.SendString("skip") })

	for _, path := range []string{"/ok", "/boom", "/stale", "/health/json"} {
		_, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
	}

	ctx := context.Background()
	total, _ := rdb.Get(ctx, KeyReqTotal).Int()
	assert.Equal(t, 3, total)
	errs, _ := rdb.Get(ctx, KeyReqErrors).Int()
	assert.Equal(t, 1, errs)
	conflicts, _ := rdb.Get(ctx, KeyReqConflicts).Int()
	assert.Equal(t, 1, conflicts)
	entries, err := rdb.LRange(ctx, KeyErrorLog, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "/boom")
}

func TestSession_PersistsUserAcrossRequests(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	app := fiber.New()
	app.Use(SessionWithClient(rdb))
	app.Post("/login", func(c *fiber.Ctx) error {
		sid := RegenerateSessionID(c)
		SetSessionUser(c, SessionUser{UserID: "u-9", Role: constants.Manager})
		cookie := SessionCookieConfig(SessionConfig{})
		cookie.Value = "s:" + sid
		c.Cookie(&cookie)
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/whoami", RequireAuth(), func(c *fiber.Ctx) error {
		return c.SendString(GetUserID(c))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, SessionCookieName, cookies[0].Name)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.AddCookie(cookies[0])
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTracing_ReusesValidInboundID(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendString(GetTraceID(c)) })

	inbound := uuid.NewString()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(TraceIDHeader, inbound)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, inbound, resp.Header.Get(TraceIDHeader))

	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(TraceIDHeader, "not-a-uuid")
	resp, err = app.Test(req)
	require.NoError(t, err)
	got := resp.Header.Get(TraceIDHeader)
	assert.NotEqual(t, "not-a-uuid", got)
	_, err = uuid.Parse(got)
	assert.NoError(t, err)
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(Tracing(), RouteLogger())
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db exploded") })

	resp, err := app.Test(httptest.NewRequest("GET", "/teapot", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	var body struct {
		Error struct {
			Message string                 `json:"message"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Internal Server Error", body.Error.Message)
	assert.Equal(t, resp.Header.Get(TraceIDHeader), body.Error.Details["trace_id"])
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: ".plant.example", DevPassword: "letmein"}))
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendString("ok") })

	cases := []struct {
		name    string
		method  string
		origin  string
		devPass string
		want    int
	}{
		{"no origin", "GET", "", "", fiber.StatusOK},
		{"suffix", "GET", "https://ops.plant.example", "", fiber.StatusOK},
		{"dev password", "GET", "https://laptop.test", "letmein", fiber.StatusOK},
		{"local preflight", "OPTIONS", "http://localhost:5173", "", fiber.StatusNoContent},
		{"foreign", "GET", "https://evil.test", "", fiber.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/x", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.devPass != "" {
				req.Header.Set("dev-password", tc.devPass)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
			if tc.want != fiber.StatusForbidden && tc.origin != "" {
				assert.Equal(t, tc.origin, resp.Header.Get("Access-Control-Allow-Origin"))
				assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PATCH")
			}
		})
	}
}
