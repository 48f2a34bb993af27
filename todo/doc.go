// Package todo implements the per-session plan store. It enforces the task
// status state machine and the single in-flight task rule that serializes
// execution inside one plan. Reads are idempotent snapshots.
package todo
