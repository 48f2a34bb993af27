// Package bleve adapts a bleve full-text index to the core.KnowledgeStore
// interface. Document ingestion, chunking and entity extraction stay
// external; this adapter only indexes already-shaped records and serves
// queries over them.
package bleve

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/hupe1980/askmesh/core"
)

// Options configure the bleve-backed store.
type Options struct {
	// MaxResults caps the number of records returned per query.
	MaxResults int
}

// Store is a core.KnowledgeStore over a bleve index on disk. The index is
// opened when present and created otherwise.
type Store struct {
	index      bleve.Index
	path       string
	maxResults int
}

// Compile-time interface assertion.
var _ core.KnowledgeStore = (*Store)(nil)

// document is the indexed shape of a record. Fields beyond the fixed
// columns are flattened into the analyzed content field.
type document struct {
	ID      string    `json:"id"`
	Source  string    `json:"source"`
	Date    time.Time `json:"date"`
	Content string    `json:"content"`
}

// Open opens or creates the index at path.
func Open(path string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{MaxResults: 50}
	for _, fn := range optFns {
		fn(&opts)
	}

	var index bleve.Index
	var err error
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		index, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create bleve index: %w", err)
		}
	} else {
		index, err = bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open bleve index: %w", err)
		}
	}

	return &Store{index: index, path: path, maxResults: opts.MaxResults}, nil
}

// buildIndexMapping creates the bleve index mapping: analyzed content,
// keyword source, datetime date.
func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	dateFieldMapping := bleve.NewDateTimeFieldMapping()

	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("source", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("date", dateFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// Index adds or replaces a record in the index.
func (s *Store) Index(r core.Record) error {
	if r.ID == "" {
		return fmt.Errorf("record id required")
	}
	doc := document{ID: r.ID, Source: r.Source, Date: r.Date, Content: r.Text()}
	if err := s.index.Index(r.ID, doc); err != nil {
		return fmt.Errorf("failed to index record %s: %w", r.ID, err)
	}
	return nil
}

// Query implements core.KnowledgeStore using a match query over the
// analyzed content field.
func (s *Store) Query(ctx context.Context, q string) ([]core.Record, error) {
	matchQuery := bleve.NewMatchQuery(q)
	matchQuery.SetField("content")

	searchReq := bleve.NewSearchRequest(matchQuery)
	searchReq.Size = s.maxResults
	searchReq.Fields = []string{"id", "source", "date", "content"}

	result, err := s.index.SearchInContext(ctx, searchReq)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	records := make([]core.Record, 0, len(result.Hits))
	for _, hit := range result.Hits {
		r := core.Record{ID: hit.ID, Fields: map[string]any{}}
		if v, ok := hit.Fields["source"].(string); ok {
			r.Source = v
		}
		if v, ok := hit.Fields["date"].(string); ok {
			if d, err := time.Parse(time.RFC3339, v); err == nil {
				r.Date = d
			}
		}
		if v, ok := hit.Fields["content"].(string); ok {
			r.Fields["content"] = v
		}
		records = append(records, r)
	}
	return records, nil
}

// DescribeSchema implements core.KnowledgeStore.
func (s *Store) DescribeSchema(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	count, err := s.index.DocCount()
	if err != nil {
		return "", fmt.Errorf("failed to read index stats: %w", err)
	}
	return fmt.Sprintf("bleve full-text index at %s: %d documents with fields id (keyword), source (keyword), date (datetime), content (analyzed text)", s.path, count), nil
}

// Close releases the underlying index.
func (s *Store) Close() error {
	return s.index.Close()
}
