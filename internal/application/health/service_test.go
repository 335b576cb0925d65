package health

import (
	"context"
	"errors"
	"testing"

	"ppm-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInventory struct {
	resources []domain.PhysicalResource
	err       error
}

func (f fakeInventory) List(context.Context) ([]domain.PhysicalResource, error) {
	return f.resources, f.err
}

type pinger struct{ err error }

func (p pinger) Ping() error { return p.err }

func TestCollectHealth_WithNilRedis(t *testing.T) {
	result := CollectHealth(context.Background(), Options{})
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, "disconnected", result.Dependencies["database"].Status)
	assert.Equal(t, "disconnected", result.Dependencies["redis"].Status)
	assert.Equal(t, 0, result.Traffic.TotalRequests)
	assert.Nil(t, result.Inventory)
}

func TestCollectHealth_WithMiniredis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	result := CollectHealth(ctx, Options{Rdb: rdb})
	assert.Equal(t, "connected", result.Dependencies["redis"].Status)
	assert.Equal(t, 0, result.Traffic.TotalRequests)
	assert.Equal(t, "100", result.Traffic.SuccessRate)

	require.NoError(t, rdb.Set(ctx, "health:global:req_total", "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:req_errors", "2", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:req_conflicts", "3", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_time_total", "150.5", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_count", "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:start_time", "1000000", 0).Err())

	result2 := CollectHealth(ctx, Options{Rdb: rdb})
	assert.Equal(t, 10, result2.Traffic.TotalRequests)
	assert.Equal(t, 2, result2.Traffic.FailedCount)
	assert.Equal(t, 3, result2.Traffic.ConflictCount)
	assert.Equal(t, 8, result2.Traffic.SuccessCount)
	assert.Equal(t, "80.0", result2.Traffic.SuccessRate)
	assert.Equal(t, "15.05", result2.Traffic.AvgResponseTime)
}

func TestCollectHealth_MemoryModeWithInventory(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	inv := fakeInventory{resources: []domain.PhysicalResource{
		{ID: "a", Status: domain.StatusAvailable},
		{ID: "b", Status: domain.StatusOccupied},
		{ID: "c", Status: domain.StatusMaintenance},
		{ID: "d", Status: domain.StatusAvailable},
	}}
	result := CollectHealth(context.Background(), Options{Rdb: rdb, Inventory: inv, StoreMode: "memory"})
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "not_configured", result.Dependencies["database"].Status)
	require.NotNil(t, result.Inventory)
	assert.Equal(t, InventoryInfo{Total: 4, Available: 2, Occupied: 1, Maintenance: 1}, *result.Inventory)

	broken := CollectHealth(context.Background(), Options{Rdb: rdb, DB: pinger{}, Inventory: fakeInventory{err: errors.New("down")}})
	assert.Equal(t, "issue", broken.Status)
	assert.Equal(t, "connected", broken.Dependencies["database"].Status)
	assert.Equal(t, "error", broken.Dependencies["store"].Status)
}
