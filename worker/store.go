package worker

import (
	"context"
	"fmt"
	"sync"
)

// Store persists worker records keyed by id.
//
// Get reports a missing id with ok=false, never an error. Delete of a missing id is a
// no-op. List returns every record, or only those of category when it is non-empty, in
// an order that is stable for one store.
type Store interface {
	Create(ctx context.Context, r Record) error
	Get(ctx context.Context, id string) (Record, bool, error)
	Update(ctx context.Context, r Record) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, category Category) ([]Record, error)
}

// MemoryStore keeps records in insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}}
}

func (m *MemoryStore) Create(ctx context.Context, r Record) error {
	if err := Validate(r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[r.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
	}
	m.records[r.ID] = r
	m.order = append(m.order, r.ID)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	return r, ok, nil
}

func (m *MemoryStore) Update(ctx context.Context, r Record) error {
	if err := Validate(r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[r.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, r.ID)
	}
	m.records[r.ID] = r
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[id]; !exists {
		return nil
	}
	delete(m.records, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) List(ctx context.Context, category Category) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.order))
	for _, id := range m.order {
		r := m.records[id]
		if category == "" || r.Category == category {
			out = append(out, r)
		}
	}
	return out, nil
}
