package todo

import (
	"fmt"
	"sync"

	"github.com/hupe1980/askmesh/core"
)

// InMemoryStore is a volatile core.TodoStore keeping one plan per session in
// a process-local map. The coordinator is the only writer by contract, but
// the store is mutex-guarded anyway so concurrent readers (tests, status
// endpoints) stay safe. Plans are copied on read to prevent external
// mutation of internal state.
type InMemoryStore struct {
	mu    sync.RWMutex
	plans map[string][]core.Task
}

// Compile-time interface assertion.
var _ core.TodoStore = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory todo store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{plans: make(map[string][]core.Task)}
}

// WritePlan replaces the session's plan. Task order is fixed here for the
// lifetime of the plan; CreatedOrder is assigned from position and missing
// ids and statuses are filled in.
func (s *InMemoryStore) WritePlan(sessionID string, tasks []core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan := make([]core.Task, len(tasks))
	copy(plan, tasks)
	for i := range plan {
		if plan[i].ID == "" {
			plan[i].ID = core.NewID()
		}
		if plan[i].Status == "" {
			plan[i].Status = core.TaskPending
		}
		if !plan[i].Status.Valid() {
			return fmt.Errorf("task %s: invalid status %q", plan[i].ID, plan[i].Status)
		}
		if plan[i].Capability == "" {
			plan[i].Capability = core.CapabilityDirect
		}
		if !plan[i].Capability.Valid() {
			return fmt.Errorf("task %s: invalid capability %q", plan[i].ID, plan[i].Capability)
		}
		plan[i].CreatedOrder = i
	}
	s.plans[sessionID] = plan
	return nil
}

// ReadPlan returns a snapshot of the session's plan.
func (s *InMemoryStore) ReadPlan(sessionID string) (core.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks, ok := s.plans[sessionID]
	if !ok {
		return core.Plan{}, ErrNoPlan
	}
	out := make([]core.Task, len(tasks))
	copy(out, tasks)
	return core.Plan{Tasks: out}, nil
}

// SetStatus advances a task through the state machine. Moving a task to
// in_progress is rejected with ErrTaskInFlight while another task holds
// that status, which serializes execution within the plan. The note lands
// in ResultSummary for completed tasks and FailureReason for failed or
// skipped ones.
func (s *InMemoryStore) SetStatus(sessionID, taskID string, status core.TaskStatus, note string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrBadTransition, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, ok := s.plans[sessionID]
	if !ok {
		return ErrNoPlan
	}
	idx := -1
	for i := range tasks {
		if tasks[i].ID == taskID {
			idx = i
			continue
		}
		if status == core.TaskInProgress && tasks[i].Status == core.TaskInProgress {
			return ErrTaskInFlight
		}
	}
	if idx < 0 {
		return ErrTaskNotFound
	}
	if !tasks[idx].Status.CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, tasks[idx].Status, status)
	}
	tasks[idx].Status = status
	switch status {
	case core.TaskCompleted:
		tasks[idx].ResultSummary = note
	case core.TaskFailed, core.TaskSkipped:
		if note != "" {
			tasks[idx].FailureReason = note
		}
	}
	return nil
}
