// Package knowledge provides implementations of the consumed
// core.KnowledgeStore interface. The query language and schema are owned by
// the external store; this package only adapts transports. StaticStore is a
// deterministic in-memory double for tests and examples; the bleve
// subpackage holds a full-text production adapter.
package knowledge

import (
	"context"
	"strings"
	"sync"

	"github.com/hupe1980/askmesh/core"
)

// StaticStore is a keyword-matching core.KnowledgeStore double. A record
// matches a query when every whitespace-separated query term occurs in the
// record's rendered text (case-insensitive). Deterministic and dependency
// free, it backs most planner and worker tests.
type StaticStore struct {
	mu      sync.RWMutex
	records []core.Record
	schema  string
}

// Compile-time interface assertion.
var _ core.KnowledgeStore = (*StaticStore)(nil)

// NewStaticStore builds a store over the given records.
func NewStaticStore(records []core.Record, optFns ...func(s *StaticStore)) *StaticStore {
	s := &StaticStore{
		records: records,
		schema:  "records: id, source, date, free-form fields",
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// WithSchema overrides the schema description returned by DescribeSchema.
func WithSchema(schema string) func(s *StaticStore) {
	return func(s *StaticStore) { s.schema = schema }
}

// Add appends records after construction.
func (s *StaticStore) Add(records ...core.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// Query implements core.KnowledgeStore with all-terms keyword matching.
func (s *StaticStore) Query(ctx context.Context, q string) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(q))
	var out []core.Record
	for _, r := range s.records {
		text := strings.ToLower(r.Text())
		matched := true
		for _, term := range terms {
			if !strings.Contains(text, term) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, r)
		}
	}
	return out, nil
}

// DescribeSchema implements core.KnowledgeStore.
func (s *StaticStore) DescribeSchema(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema, nil
}
