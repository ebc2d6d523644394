package vectorindex

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore keeps collections in process memory. It is the default backend
// for single-run CLI evaluations.
type MemoryStore struct {
	mu          sync.RWMutex
	metric      Metric
	collections map[string]map[string]Record
}

func NewMemoryStore(metric Metric) *MemoryStore {
	if metric == "" {
		metric = MetricCosine
	}
	return &MemoryStore{metric: metric, collections: make(map[string]map[string]Record)}
}

func (s *MemoryStore) Upsert(_ context.Context, collection string, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if len(rec.Vector) == 0 {
		return fmt.Errorf("cannot upsert empty vector")
	}

	stored := Record{
		ID:       rec.ID,
		Document: rec.Document,
		Metadata: copyMetadata(rec.Metadata),
		Vector:   slices.Clone(rec.Vector),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]Record)
		s.collections[collection] = coll
	}
	coll[rec.ID] = stored
	return nil
}

func (s *MemoryStore) Query(_ context.Context, collection string, q Query) ([]Match, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}

	filter := idSet(q.IDs)

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[collection]
	matches := make([]Match, 0, len(coll))
	for id, rec := range coll {
		if filter != nil {
			if _, ok := filter[id]; !ok {
				continue
			}
		}
		dist, err := s.metric.Distance(q.Vector, rec.Vector)
		if err != nil {
			continue
		}
		matches = append(matches, Match{
			ID:       id,
			Distance: dist,
			Document: rec.Document,
			Metadata: copyMetadata(rec.Metadata),
		})
	}

	return rankMatches(matches, q.TopK), nil
}

func (s *MemoryStore) DropCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

func (s *MemoryStore) Metric() Metric {
	return s.metric
}

func (s *MemoryStore) Close() error {
	return nil
}
