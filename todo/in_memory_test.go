package todo

import (
	"errors"
	"testing"

	"github.com/hupe1980/askmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTwoTasks(t *testing.T, store *InMemoryStore) core.Plan {
	t.Helper()
	err := store.WritePlan("s1", []core.Task{
		{ID: "t1", Description: "first", Capability: core.CapabilityQuery},
		{ID: "t2", Description: "second", Capability: core.CapabilityAnalysis},
	})
	require.NoError(t, err)
	plan, err := store.ReadPlan("s1")
	require.NoError(t, err)
	return plan
}

func TestInMemoryStore_WriteAndReadPlan(t *testing.T) {
	store := NewInMemoryStore()
	plan := writeTwoTasks(t, store)

	require.Len(t, plan.Tasks, 2)
	assert.Equal(t, core.TaskPending, plan.Tasks[0].Status)
	assert.Equal(t, 0, plan.Tasks[0].CreatedOrder)
	assert.Equal(t, 1, plan.Tasks[1].CreatedOrder)

	// snapshots are independent of the store
	plan.Tasks[0].Status = core.TaskCompleted
	again, err := store.ReadPlan("s1")
	require.NoError(t, err)
	assert.Equal(t, core.TaskPending, again.Tasks[0].Status)
}

func TestInMemoryStore_NoPlan(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.ReadPlan("unknown")
	assert.ErrorIs(t, err, ErrNoPlan)
	err = store.SetStatus("unknown", "t1", core.TaskInProgress, "")
	assert.ErrorIs(t, err, ErrNoPlan)
}

func TestInMemoryStore_StatusMonotonicity(t *testing.T) {
	store := NewInMemoryStore()
	writeTwoTasks(t, store)

	require.NoError(t, store.SetStatus("s1", "t1", core.TaskInProgress, ""))
	require.NoError(t, store.SetStatus("s1", "t1", core.TaskCompleted, "done"))

	// completed is terminal
	err := store.SetStatus("s1", "t1", core.TaskInProgress, "")
	assert.ErrorIs(t, err, ErrBadTransition)
	err = store.SetStatus("s1", "t1", core.TaskFailed, "")
	assert.ErrorIs(t, err, ErrBadTransition)

	// pending cannot jump straight to completed
	err = store.SetStatus("s1", "t2", core.TaskCompleted, "")
	assert.ErrorIs(t, err, ErrBadTransition)
}

func TestInMemoryStore_FailedRetryThenSkip(t *testing.T) {
	store := NewInMemoryStore()
	writeTwoTasks(t, store)

	require.NoError(t, store.SetStatus("s1", "t1", core.TaskInProgress, ""))
	require.NoError(t, store.SetStatus("s1", "t1", core.TaskFailed, "zero records"))

	plan, _ := store.ReadPlan("s1")
	task, _ := plan.Get("t1")
	assert.Equal(t, "zero records", task.FailureReason)

	// failed -> in_progress is the retry path
	require.NoError(t, store.SetStatus("s1", "t1", core.TaskInProgress, ""))
	require.NoError(t, store.SetStatus("s1", "t1", core.TaskFailed, "alternative also empty"))
	require.NoError(t, store.SetStatus("s1", "t1", core.TaskSkipped, "gave up"))

	// skipped is terminal
	err := store.SetStatus("s1", "t1", core.TaskInProgress, "")
	assert.ErrorIs(t, err, ErrBadTransition)
}

func TestInMemoryStore_SingleInFlight(t *testing.T) {
	store := NewInMemoryStore()
	writeTwoTasks(t, store)

	require.NoError(t, store.SetStatus("s1", "t1", core.TaskInProgress, ""))
	err := store.SetStatus("s1", "t2", core.TaskInProgress, "")
	assert.ErrorIs(t, err, ErrTaskInFlight)

	// once t1 settles, t2 may start
	require.NoError(t, store.SetStatus("s1", "t1", core.TaskCompleted, "ok"))
	require.NoError(t, store.SetStatus("s1", "t2", core.TaskInProgress, ""))

	plan, _ := store.ReadPlan("s1")
	inFlight, ok := plan.InFlight()
	require.True(t, ok)
	assert.Equal(t, "t2", inFlight.ID)
}

func TestInMemoryStore_UnknownTask(t *testing.T) {
	store := NewInMemoryStore()
	writeTwoTasks(t, store)
	err := store.SetStatus("s1", "nope", core.TaskInProgress, "")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestInMemoryStore_InvalidPlanRejected(t *testing.T) {
	store := NewInMemoryStore()
	err := store.WritePlan("s1", []core.Task{{Description: "bad", Capability: "teleport"}})
	assert.Error(t, err)
}
