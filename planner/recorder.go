package planner

import (
	"context"
	"sync"

	"github.com/hupe1980/askmesh/core"
)

// sourceRecorder wraps a knowledge store and accumulates the provenance of
// every record it served during one query, so the synthesizer can attribute
// the answer even when the records themselves only existed inside worker
// conversations. One recorder lives per Handle call.
type sourceRecorder struct {
	inner core.KnowledgeStore

	mu      sync.Mutex
	records []core.Record
}

var _ core.KnowledgeStore = (*sourceRecorder)(nil)

func newSourceRecorder(inner core.KnowledgeStore) *sourceRecorder {
	return &sourceRecorder{inner: inner}
}

func (r *sourceRecorder) Query(ctx context.Context, query string) ([]core.Record, error) {
	records, err := r.inner.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.records = append(r.records, records...)
	r.mu.Unlock()
	return records, nil
}

func (r *sourceRecorder) DescribeSchema(ctx context.Context) (string, error) {
	return r.inner.DescribeSchema(ctx)
}

// Sources returns the deduplicated attributions seen so far.
func (r *sourceRecorder) Sources() []core.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	return core.Sources(r.records)
}
