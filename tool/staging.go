package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/askmesh/core"
	"github.com/hupe1980/askmesh/staging"
)

// StagingReadTool grants read-only access to staged artifacts. Workers get
// this tool so a delegation can pull back exactly the slice it needs;
// writing to the staging store remains the coordinator's privilege.
type StagingReadTool struct {
	store     core.StagingStore
	sessionID string
}

// Compile-time interface assertion.
var _ Tool = (*StagingReadTool)(nil)

// NewStagingReadTool binds the tool to one session's artifacts.
func NewStagingReadTool(store core.StagingStore, sessionID string) *StagingReadTool {
	return &StagingReadTool{store: store, sessionID: sessionID}
}

// Name implements Tool.
func (t *StagingReadTool) Name() string { return "read_staged" }

// Description implements Tool.
func (t *StagingReadTool) Description() string {
	return "Read a staged artifact by key, optionally limited to a leading slice."
}

// Parameters implements Tool.
func (t *StagingReadTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"key": map[string]any{
				"type":        "string",
				"description": "Staged artifact key",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Optional maximum number of bytes to return",
			},
		},
		"required": []string{"key"},
	}
}

// Call implements Tool. A read on an unknown key surfaces as NOT_FOUND so
// the model can correct its key instead of the worker crashing.
func (t *StagingReadTool) Call(ctx context.Context, args map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := stringArg(t.Name(), args, "key")
	if err != nil {
		return "", err
	}
	limit := 0
	if v, ok := args["limit"]; ok {
		f, ok := v.(float64) // JSON numbers decode as float64
		if !ok || f < 0 {
			return "", NewToolError(t.Name(), "argument \"limit\" must be a non-negative integer", CodeValidation)
		}
		limit = int(f)
	}
	content, err := t.store.Read(t.sessionID, key, limit)
	if err != nil {
		if errors.Is(err, staging.ErrNotFound) {
			return "", NewToolError(t.Name(), fmt.Sprintf("no staged artifact %q", key), CodeNotFound)
		}
		return "", NewToolError(t.Name(), err.Error(), CodeExecution)
	}
	return string(content), nil
}
