package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/askmesh/budget"
	"github.com/hupe1980/askmesh/core"
)

// QueryTool exposes the external knowledge store's query operation. Results
// are rendered and pushed through the budget manager before returning, so a
// single oversized result set never lands unbounded in a conversation.
type QueryTool struct {
	store  core.KnowledgeStore
	budget *budget.Manager
}

// Compile-time interface assertion.
var _ Tool = (*QueryTool)(nil)

// NewQueryTool wraps the knowledge store behind the query tool.
func NewQueryTool(store core.KnowledgeStore, b *budget.Manager) *QueryTool {
	return &QueryTool{store: store, budget: b}
}

// Name implements Tool.
func (t *QueryTool) Name() string { return "query_store" }

// Description implements Tool.
func (t *QueryTool) Description() string {
	return "Run a query against the external knowledge store and return matching records."
}

// Parameters implements Tool.
func (t *QueryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Query string in the store's query language",
			},
		},
		"required": []string{"query"},
	}
}

// Call implements Tool. An empty result set is reported as text rather than
// an error; the recovery policy decides what emptiness means for a task.
func (t *QueryTool) Call(ctx context.Context, args map[string]any) (string, error) {
	q, err := stringArg(t.Name(), args, "query")
	if err != nil {
		return "", err
	}
	records, err := t.store.Query(ctx, q)
	if err != nil {
		return "", NewToolError(t.Name(), err.Error(), CodeExecution)
	}
	if len(records) == 0 {
		return "no records matched", nil
	}
	return fmt.Sprintf("%d records:\n%s", len(records), t.budget.TruncateRecords(records)), nil
}

// SchemaTool exposes the external store's schema description.
type SchemaTool struct {
	store core.KnowledgeStore
}

// Compile-time interface assertion.
var _ Tool = (*SchemaTool)(nil)

// NewSchemaTool wraps the knowledge store behind the schema tool.
func NewSchemaTool(store core.KnowledgeStore) *SchemaTool {
	return &SchemaTool{store: store}
}

// Name implements Tool.
func (t *SchemaTool) Name() string { return "describe_schema" }

// Description implements Tool.
func (t *SchemaTool) Description() string {
	return "Describe the schema of the external knowledge store."
}

// Parameters implements Tool.
func (t *SchemaTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// Call implements Tool.
func (t *SchemaTool) Call(ctx context.Context, _ map[string]any) (string, error) {
	schema, err := t.store.DescribeSchema(ctx)
	if err != nil {
		return "", NewToolError(t.Name(), err.Error(), CodeExecution)
	}
	return schema, nil
}
