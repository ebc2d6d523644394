package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps evaluations for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Evaluation
}

func NewMemory() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Evaluation)}
}

func (m *MemoryStore) Save(_ context.Context, ev Evaluation) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	ev.Results = cloneResults(ev.Results)
	sortResults(ev.Results)

	m.mu.Lock()
	m.items[ev.ID] = &ev
	m.mu.Unlock()
	return ev.ID, nil
}

func (m *MemoryStore) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.items))
	for _, ev := range m.items {
		out = append(out, summarize(ev))
	}
	m.mu.RUnlock()

	sortSummaries(out)
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ev, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ev
	cp.Results = cloneResults(ev.Results)
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
