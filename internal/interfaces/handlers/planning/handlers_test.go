package planning

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	plansvc "ppm-backend/internal/application/planning"
	"ppm-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(s string) *time.Time {
	t, _ := domain.ParseDate(s)
	return &t
}

func setupPlanningApp(t *testing.T, rdb *redis.Client) *fiber.App {
	t.Helper()
	src := plansvc.StaticSource{
		PoolList: []domain.ResourcePool{{ID: "be", Name: "Backend Engineers", TotalQuantity: 15}},
		ProjectList: []domain.Project{
			{ID: "P1", Name: "Billing", Status: "active", StartDate: datePtr("2025-01-01"), EndDate: datePtr("2025-03-31"),
				Requirements: []domain.ResourceRequirement{{ResourcePoolID: "be", Count: 5, Duration: 3, Unit: domain.UnitMonth}}},
			{ID: "P2", Name: "Data", Status: "planned", StartDate: datePtr("2025-02-01"), EndDate: datePtr("2025-04-30"),
				Requirements: []domain.ResourceRequirement{{ResourcePoolID: "be", Count: 12, Duration: 3, Unit: domain.UnitMonth}}},
		},
	}
	h := &Handlers{Service: &plansvc.Service{
		Source:   src,
		Rdb:      rdb,
		CacheTTL: time.Minute,
		Now:      func() time.Time { return time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC) },
	}}
	app := fiber.New()
	app.Get("/planning/capacity", h.Capacity)
	app.Delete("/planning/capacity/cache", h.InvalidateCache)
	return app
}

func get(t *testing.T, app *fiber.App, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestCapacity_Monthly(t *testing.T) {
	app := setupPlanningApp(t, nil)

	status, body := get(t, app, "/planning/capacity?horizon=4")
	require.Equal(t, 200, status)
	meta := body["metadata"].(map[string]interface{})
	assert.EqualValues(t, 4, meta["buckets"])
	assert.EqualValues(t, 1, meta["pools"])
	assert.EqualValues(t, 2, meta["over_allocated"])

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "month", data["period"])
	pools := data["pools"].([]interface{})
	allocs := pools[0].(map[string]interface{})["allocations"].([]interface{})
	feb := allocs[1].(map[string]interface{})
	assert.EqualValues(t, 17, feb["used"])
	assert.EqualValues(t, 113.3, feb["utilization"])
	assert.Equal(t, true, feb["over_allocated"])
	assert.Equal(t, "Feb 2025", feb["bucket"].(map[string]interface{})["label"])
}

func TestCapacity_BadQuery(t *testing.T) {
	app := setupPlanningApp(t, nil)

	status, _ := get(t, app, "/planning/capacity?period=fortnight")
	assert.Equal(t, 400, status)

	status, _ = get(t, app, "/planning/capacity?horizon=abc")
	assert.Equal(t, 400, status)

	status, _ = get(t, app, "/planning/capacity?horizon=500")
	assert.Equal(t, 400, status)

	status, body := get(t, app, "/planning/capacity?period=quarter&horizon=2")
	require.Equal(t, 200, status)
	buckets := body["data"].(map[string]interface{})["buckets"].([]interface{})
	assert.Equal(t, "Q1 2025", buckets[0].(map[string]interface{})["label"])
}

func TestCapacity_CacheInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	app := setupPlanningApp(t, rdb)

	status, _ := get(t, app, "/planning/capacity")
	require.Equal(t, 200, status)
	assert.True(t, mr.Exists("planning:capacity:month:6:2025-01-01"))

	resp, err := app.Test(httptest.NewRequest("DELETE", "/planning/capacity/cache", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.False(t, mr.Exists("planning:capacity:month:6:2025-01-01"))
}
