package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ppm-backend/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *fiber.App {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{
		Env:                    "test",
		RedisURL:               "redis://" + mr.Addr(),
		InventoryFile:          "../../infrastructure/inventory/testdata/inventory.yaml",
		CapacityCacheTTL:       time.Minute,
		PlanningHorizon:        6,
		BayMaintenanceDays:     180,
		MachineMaintenanceDays: 90,
		HealthAdminKey:         "k",
	}
	app, db, rdb, err := CreateApp(cfg)
	require.NoError(t, err)
	assert.Nil(t, db)
	t.Cleanup(func() { rdb.Close() })
	return app
}

func login(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": "Passw0rd!"})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	for _, c := range resp.Header.Values("Set-Cookie") {
		if strings.HasPrefix(c, "ppm.sid=") {
			return strings.SplitN(c, ";", 2)[0]
		}
	}
	t.Fatal("no session cookie")
	return ""
}

func call(t *testing.T, app *fiber.App, method, path, cookie string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestRouter_RequiresSession(t *testing.T) {
	app := setupRouter(t)
	resp, _ := call(t, app, "GET", "/api/v1/resources", "", nil)
	assert.Equal(t, 401, resp.StatusCode)
	resp, _ = call(t, app, "GET", "/api/v1/planning/capacity", "", nil)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestRouter_ReserveFlowAndMetrics(t *testing.T) {
	app := setupRouter(t)
	cookie := login(t, app, "sam@example.com")

	resp, body := call(t, app, "GET", "/api/v1/resources", cookie, nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Len(t, body["data"], 3)

	resp, _ = call(t, app, "POST", "/api/v1/resources/bay-2/reserve", cookie, map[string]interface{}{
		"project_id": "P1", "start_date": "2030-01-01", "end_date": "2030-01-31", "version": 1,
	})
	require.Equal(t, 201, resp.StatusCode)

	resp, _ = call(t, app, "POST", "/api/v1/resources/bay-2/reserve", cookie, map[string]interface{}{
		"project_id": "P2", "start_date": "2030-01-15", "end_date": "2030-02-15", "version": 1,
	})
	assert.Equal(t, 409, resp.StatusCode)

	// managers may not import
	resp, _ = call(t, app, "POST", "/api/v1/resources/bay-1/import", cookie, map[string]interface{}{
		"version":  1,
		"bookings": []map[string]string{{"project_id": "P1", "start_date": "2030-01-01", "end_date": "2030-01-02"}},
	})
	assert.Equal(t, 403, resp.StatusCode)

	req := httptest.NewRequest("GET", "/metrics", nil)
	mresp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, mresp.StatusCode)
	raw, _ := io.ReadAll(mresp.Body)
	text := string(raw)
	assert.Contains(t, text, `ppm_booking_mutations_total{operation="reserve",outcome="ok"} 1`)
	assert.Contains(t, text, `ppm_booking_mutations_total{operation="reserve",outcome="overlap"} 1`)
}

func TestRouter_OnlyReserverOrAdminReleases(t *testing.T) {
	app := setupRouter(t)
	sam := login(t, app, "sam@example.com")
	admin := login(t, app, "admin@example.com")

	resp, _ := call(t, app, "POST", "/api/v1/resources/bay-1/reserve", admin, map[string]interface{}{
		"project_id": "P1", "start_date": "2030-03-01", "end_date": "2030-03-10", "version": 1,
	})
	require.Equal(t, 201, resp.StatusCode)

	resp, _ = call(t, app, "POST", "/api/v1/resources/bay-1/release", sam, map[string]interface{}{"version": 2})
	assert.Equal(t, 403, resp.StatusCode)

	resp, _ = call(t, app, "POST", "/api/v1/resources/bay-1/release", admin, map[string]interface{}{"version": 2})
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRouter_PlanningAndHealth(t *testing.T) {
	app := setupRouter(t)
	cookie := login(t, app, "sam@example.com")

	resp, body := call(t, app, "GET", "/api/v1/planning/capacity?period=quarter&horizon=2", cookie, nil)
	require.Equal(t, 200, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "quarter", data["period"])
	assert.Len(t, data["pools"], 2)

	resp, _ = call(t, app, "DELETE", "/api/v1/planning/capacity/cache", cookie, nil)
	assert.Equal(t, 403, resp.StatusCode)

	resp, body = call(t, app, "GET", "/health/json", "", nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ppm-resource-engine", body["service"])
}
