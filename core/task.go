package core

import "fmt"

// TaskStatus is the closed set of states a task moves through. Status is
// load-bearing for the coordinator loop; any presentation (icons, colors)
// belongs to the delivery layer.
type TaskStatus string

const (
	// TaskPending indicates the task has not started yet.
	TaskPending TaskStatus = "pending"
	// TaskInProgress indicates the task is currently executing. At most one
	// task per plan may hold this status.
	TaskInProgress TaskStatus = "in_progress"
	// TaskCompleted is terminal: the task produced a usable result summary.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed indicates the last execution attempt failed. A failed task
	// may be retried (back to in_progress) or skipped.
	TaskFailed TaskStatus = "failed"
	// TaskSkipped is terminal: the task was abandoned after recovery gave up.
	TaskSkipped TaskStatus = "skipped"
)

// Valid reports whether s is a member of the closed status set.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskFailed, TaskSkipped:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskSkipped
}

// CanTransition reports whether the status state machine permits moving from
// s to next:
//
//	pending     -> in_progress
//	in_progress -> completed | failed
//	failed      -> in_progress (retry) | skipped
//
// completed and skipped are terminal.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case TaskPending:
		return next == TaskInProgress
	case TaskInProgress:
		return next == TaskCompleted || next == TaskFailed
	case TaskFailed:
		return next == TaskInProgress || next == TaskSkipped
	default:
		return false
	}
}

// Capability identifies the narrow tool surface a task needs. Direct tasks
// are executed by the coordinator itself; the others are delegated to an
// isolated worker bound to that capability.
type Capability string

const (
	// CapabilityDirect executes in the coordinator's own conversation.
	CapabilityDirect Capability = "direct"
	// CapabilityQuery grants access to the external knowledge store.
	CapabilityQuery Capability = "query"
	// CapabilityAnalysis grants staged-artifact reads but no external access.
	CapabilityAnalysis Capability = "analysis"
)

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityDirect, CapabilityQuery, CapabilityAnalysis:
		return true
	default:
		return false
	}
}

// Task is one trackable unit of work inside a plan. Tasks are addressed by
// ID rather than pointer so plans stay serializable and test-inspectable.
type Task struct {
	ID            string     `json:"id"`
	Description   string     `json:"description"`
	Capability    Capability `json:"capability"`
	Status        TaskStatus `json:"status"`
	CreatedOrder  int        `json:"created_order"`
	ResultSummary string     `json:"result_summary,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

// Plan is the ordered task list decomposing one complex query. Order is
// fixed at creation; tasks may be skipped but never reordered. A Plan value
// is a snapshot — the TodoStore owns the authoritative copy.
type Plan struct {
	Tasks []Task `json:"tasks"`
}

// Get returns the task with the given id and whether it exists.
func (p Plan) Get(id string) (Task, bool) {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// NextPending returns the first task in created order that is still pending.
func (p Plan) NextPending() (Task, bool) {
	for _, t := range p.Tasks {
		if t.Status == TaskPending {
			return t, true
		}
	}
	return Task{}, false
}

// InFlight returns the task currently marked in_progress, if any.
func (p Plan) InFlight() (Task, bool) {
	for _, t := range p.Tasks {
		if t.Status == TaskInProgress {
			return t, true
		}
	}
	return Task{}, false
}

// Done reports whether no pending or in_progress task remains.
func (p Plan) Done() bool {
	for _, t := range p.Tasks {
		if t.Status == TaskPending || t.Status == TaskInProgress {
			return false
		}
	}
	return true
}

// CountByStatus tallies tasks per status.
func (p Plan) CountByStatus() map[TaskStatus]int {
	counts := make(map[TaskStatus]int, 5)
	for _, t := range p.Tasks {
		counts[t.Status]++
	}
	return counts
}

// Checkpoint renders a compact one-line progress view suitable for a
// conversation turn. It deliberately avoids re-dumping task descriptions.
func (p Plan) Checkpoint() string {
	c := p.CountByStatus()
	return fmt.Sprintf("plan: %d/%d done (%d completed, %d skipped, %d pending)",
		c[TaskCompleted]+c[TaskSkipped], len(p.Tasks),
		c[TaskCompleted], c[TaskSkipped], c[TaskPending])
}
