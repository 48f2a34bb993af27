package core

import (
	"context"
	"time"
)

// StagingReceipt is the only thing a staging write contributes to the
// conversation: the key plus the stored size, never the content.
type StagingReceipt struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
}

// StagingStore is the session-scoped key→content store used to offload
// large intermediate results out of the model-facing conversation.
// Implementations must be thread-safe and scope entries by session
// identifier. Writes are last-write-wins; there is no delete API because
// unread entries cost nothing. Clear discards a whole session at its end.
type StagingStore interface {
	Write(sessionID, key string, content []byte) (StagingReceipt, error)
	// Read returns the stored content, or a prefix of at most limit bytes
	// when limit > 0. A read on an unknown key is a caller-contract
	// violation and fails with the implementation's not-found sentinel.
	Read(sessionID, key string, limit int) ([]byte, error)
	List(sessionID string) ([]string, error)
	Clear(sessionID string) error
}

// TodoStore persists the per-session plan and enforces the task status
// state machine, including the single in-flight task rule. Only the
// coordinator goroutine writes to it.
type TodoStore interface {
	WritePlan(sessionID string, tasks []Task) error
	// ReadPlan returns an idempotent snapshot of the current plan.
	ReadPlan(sessionID string) (Plan, error)
	SetStatus(sessionID, taskID string, status TaskStatus, note string) error
}

// Record is one opaque structured result row from the external knowledge
// store. Fields carry the store-owned shape; Source and Date exist for
// attribution and staleness checks.
type Record struct {
	ID     string         `json:"id"`
	Source string         `json:"source"`
	Date   time.Time      `json:"date"`
	Fields map[string]any `json:"fields,omitempty"`
}

// KnowledgeStore is the consumed interface to the external knowledge
// store's query engine. Query language and schema are owned by the
// collaborator; results are treated as opaque, sizeable records.
type KnowledgeStore interface {
	Query(ctx context.Context, query string) ([]Record, error)
	DescribeSchema(ctx context.Context) (string, error)
}

// WorkerInvocation describes one delegated sub-task. The worker receives
// only this — never the coordinator's conversation history.
type WorkerInvocation struct {
	Capability      Capability `json:"capability"`
	TaskDescription string     `json:"task_description"`
	// ContextRefs are staged-artifact keys the worker may read.
	ContextRefs []string `json:"context_refs,omitempty"`
}
