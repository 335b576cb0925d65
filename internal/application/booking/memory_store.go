package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ppm-backend/internal/domain"
	"ppm-backend/internal/pkg/versioned"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MemoryStore keeps resources in process, one versioned.Entity per resource.
type MemoryStore struct {
	Now func() time.Time

	mu       sync.RWMutex
	entities map[string]*versioned.Entity[domain.PhysicalResource]

	eventsMu sync.Mutex
	events   map[string][]domain.ResourceEvent
}

// NewMemoryStore returns a store seeded with resources.
func NewMemoryStore(resources ...domain.PhysicalResource) *MemoryStore {
	s := &MemoryStore{
		entities: make(map[string]*versioned.Entity[domain.PhysicalResource]),
		events:   make(map[string][]domain.ResourceEvent),
	}
	_ = s.Provision(context.Background(), resources...)
	return s
}

func (s *MemoryStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *MemoryStore) Provision(ctx context.Context, resources ...domain.PhysicalResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range resources {
		if _, ok := s.entities[r.ID]; ok {
			continue
		}
		r = r.Clone()
		if r.Version == 0 {
			r.Version = 1
		}
		if r.Status == "" {
			r.Status = domain.StatusAvailable
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = s.now()
		}
		s.entities[r.ID] = versioned.New(r, r.Version)
	}
	return nil
}

func (s *MemoryStore) entity(id string) (*versioned.Entity[domain.PhysicalResource], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, &NotFoundError{Kind: "resource", ID: id}
	}
	return e, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (domain.PhysicalResource, error) {
	e, err := s.entity(id)
	if err != nil {
		return domain.PhysicalResource{}, err
	}
	r, _ := e.Load()
	return r.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]domain.PhysicalResource, error) {
	s.mu.RLock()
	out := make([]domain.PhysicalResource, 0, len(s.entities))
	for _, e := range s.entities {
		r, _ := e.Load()
		out = append(out, r.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Mutate(ctx context.Context, id string, expectedVersion int64, m Mutation) (domain.PhysicalResource, error) {
	e, err := s.entity(id)
	if err != nil {
		return domain.PhysicalResource{}, err
	}
	var guard func(domain.PhysicalResource) error
	if m.Guard != nil {
		guard = func(cur domain.PhysicalResource) error { return m.Guard(cur.Clone()) }
	}
	next, _, err := e.CompareAndSwap(expectedVersion, guard, func(cur domain.PhysicalResource) (domain.PhysicalResource, error) {
		r := cur.Clone()
		data, err := m.Apply(&r)
		if err != nil {
			return cur, err
		}
		payload, err := json.Marshal(data)
		if err != nil {
			return cur, fmt.Errorf("encode %s event: %w", m.Event, err)
		}
		r.Version = cur.Version + 1
		r.UpdatedAt = s.now()
		s.appendEvent(r, m, payload)
		return r, nil
	})
	if err != nil {
		var mm *versioned.MismatchError
		if errors.As(err, &mm) {
			return domain.PhysicalResource{}, &StaleVersionError{ResourceID: id, Expected: mm.Expected, Current: mm.Actual}
		}
		return domain.PhysicalResource{}, err
	}
	return next.Clone(), nil
}

func (s *MemoryStore) appendEvent(r domain.PhysicalResource, m Mutation, payload []byte) {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	s.events[r.ID] = append(s.events[r.ID], domain.ResourceEvent{
		ID:         uuid.New(),
		ResourceID: r.ID,
		EventType:  m.Event,
		Version:    r.Version,
		ActorID:    m.Actor,
		EventData:  datatypes.JSON(payload),
		CreatedAt:  r.UpdatedAt,
	})
}

func (s *MemoryStore) Events(ctx context.Context, id string) ([]domain.ResourceEvent, error) {
	if _, err := s.entity(id); err != nil {
		return nil, err
	}
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	out := make([]domain.ResourceEvent, len(s.events[id]))
	copy(out, s.events[id])
	return out, nil
}
