package vectorindex

import (
	"context"
	"sort"
)

// Record is one stored vector with its source document.
type Record struct {
	ID       string
	Document string
	Metadata map[string]string
	Vector   []float32
}

// Match is a raw nearest-neighbour hit as ranked by a store.
type Match struct {
	ID       string
	Distance float64
	Document string
	Metadata map[string]string
}

// Query selects neighbours of Vector. When IDs is non-empty only those ids
// are considered.
type Query struct {
	Vector []float32
	TopK   int
	IDs    []string
}

// Store is a vector backend. Upsert overwrites an existing id.
type Store interface {
	Upsert(ctx context.Context, collection string, rec Record) error
	Query(ctx context.Context, collection string, q Query) ([]Match, error)
	DropCollection(ctx context.Context, collection string) error
	Metric() Metric
	Close() error
}

// rankMatches orders by ascending distance (ties by id) and keeps topK.
func rankMatches(matches []Match, topK int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

func idSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func copyMetadata(in map[string]string) map[string]string {
	if in == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
