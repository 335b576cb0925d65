package planning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const cacheKeyPrefix = "planning:capacity:"

// DefaultHorizon is used when the caller asks for zero periods.
const DefaultHorizon = 6

// MaxHorizon bounds a single table request.
const MaxHorizon = 104

// CapacityTable is the planning view: the buckets and one row per pool.
type CapacityTable struct {
	Period      Period         `json:"period"`
	Buckets     []TimeBucket   `json:"buckets"`
	Pools       []PoolCapacity `json:"pools"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Service builds capacity tables. Rdb is optional; when set, tables are cached
// for CacheTTL keyed by period, horizon and anchor date.
type Service struct {
	Source   Source
	Rdb      *redis.Client
	CacheTTL time.Duration
	Horizon  int
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CapacityTable returns horizon periods of the given granularity starting with
// the current one.
func (s *Service) CapacityTable(ctx context.Context, horizon int, period Period) (*CapacityTable, error) {
	if horizon <= 0 {
		horizon = s.Horizon
	}
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if horizon > MaxHorizon {
		return nil, fmt.Errorf("horizon must be at most %d periods", MaxHorizon)
	}
	if period == "" {
		period = PeriodMonth
	}
	now := s.now()
	buckets := Buckets(now, horizon, period)
	key := fmt.Sprintf("%s%s:%d:%s", cacheKeyPrefix, period, horizon, buckets[0].Start.Format("2006-01-02"))

	if cached, ok := s.cached(ctx, key); ok {
		return cached, nil
	}

	pools, err := s.Source.Pools(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := s.Source.Projects(ctx)
	if err != nil {
		return nil, err
	}
	table := &CapacityTable{
		Period:      period,
		Buckets:     buckets,
		Pools:       Aggregate(pools, projects, buckets),
		GeneratedAt: now,
	}
	s.store(ctx, key, table)
	return table, nil
}

func (s *Service) cached(ctx context.Context, key string) (*CapacityTable, bool) {
	if s.Rdb == nil || s.CacheTTL <= 0 {
		return nil, false
	}
	raw, err := s.Rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("capacity cache read failed")
		}
		return nil, false
	}
	var t CapacityTable
	if err := json.Unmarshal(raw, &t); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("capacity cache entry unreadable")
		return nil, false
	}
	return &t, true
}

func (s *Service) store(ctx context.Context, key string, t *CapacityTable) {
	if s.Rdb == nil || s.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := s.Rdb.Set(ctx, key, raw, s.CacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("capacity cache write failed")
	}
}

// Invalidate drops every cached table. Called after inventory or project changes.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.Rdb == nil {
		return nil
	}
	iter := s.Rdb.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.Rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
