package todo

import "fmt"

var (
	// ErrTaskNotFound is returned when the referenced task id is not part of
	// the session's plan.
	ErrTaskNotFound = fmt.Errorf("task not found")

	// ErrBadTransition is returned when a status change violates the task
	// state machine (e.g. reviving a completed task).
	ErrBadTransition = fmt.Errorf("illegal task status transition")

	// ErrTaskInFlight is returned when a task would be marked in_progress
	// while another task already holds that status.
	ErrTaskInFlight = fmt.Errorf("another task is already in progress")

	// ErrNoPlan is returned when reading or mutating a session that has no
	// plan written yet.
	ErrNoPlan = fmt.Errorf("no plan for session")
)
