package planner

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/askmesh/core"
	"github.com/hupe1980/askmesh/knowledge"
	"github.com/hupe1980/askmesh/model"
	"github.com/hupe1980/askmesh/staging"
	"github.com/hupe1980/askmesh/todo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planTwoQueries = `{"tasks": [
	{"description": "find emea revenue", "capability": "query"},
	{"description": "find apac revenue", "capability": "query"}
]}`

func salesStore() *knowledge.StaticStore {
	return knowledge.NewStaticStore([]core.Record{
		{ID: "sales-q1", Source: "sales-db", Date: time.Now().AddDate(0, 0, -3),
			Fields: map[string]any{"region": "emea", "metric": "revenue", "value": "4.2M"}},
		{ID: "sales-q2", Source: "sales-db", Date: time.Now().AddDate(0, 0, -5),
			Fields: map[string]any{"region": "apac", "metric": "revenue", "value": "3.1M"}},
	})
}

func newTestPlanner(t *testing.T, m model.Model, store core.KnowledgeStore, optFns ...func(o *Options)) (*Planner, *staging.InMemoryStore, *todo.InMemoryStore) {
	t.Helper()
	stage := staging.NewInMemoryStore()
	todoStore := todo.NewInMemoryStore()
	p, err := New(m, store, stage, todoStore, optFns...)
	require.NoError(t, err)
	return p, stage, todoStore
}

func TestHandle_SimpleQueryNeedsNoModel(t *testing.T) {
	m := model.NewScriptedModel()
	p, _, _ := newTestPlanner(t, m, salesStore())

	answer, err := p.Handle(context.Background(), "s1", "emea revenue")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Calls(), "simple path answers from the store alone")
	assert.Contains(t, answer.Text, "sales-q1")
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "sales-q1", answer.Sources[0].ID)
}

func TestHandle_ComplexQueryRunsPlan(t *testing.T) {
	m := model.NewScriptedModel().
		EnqueueText(planTwoQueries).
		Enqueue(model.Response{
			ToolCalls:    []model.ToolCall{{ID: "c1", Name: "query_store", Arguments: json.RawMessage(`{"query":"emea revenue"}`)}},
			FinishReason: "tool_calls",
		}).
		EnqueueText("EMEA revenue was 4.2M").
		Enqueue(model.Response{
			ToolCalls:    []model.ToolCall{{ID: "c2", Name: "query_store", Arguments: json.RawMessage(`{"query":"apac revenue"}`)}},
			FinishReason: "tool_calls",
		}).
		EnqueueText("APAC revenue was 3.1M")
	p, _, todoStore := newTestPlanner(t, m, salesStore())

	answer, err := p.Handle(context.Background(), "s1", "compare emea and apac revenue")
	require.NoError(t, err)
	assert.Equal(t, 5, m.Calls())
	assert.Contains(t, answer.Text, "EMEA revenue was 4.2M")
	assert.Contains(t, answer.Text, "APAC revenue was 3.1M")
	assert.Empty(t, answer.Caveats)

	// worker queries attribute the answer even though records never entered
	// the coordinator conversation
	ids := make([]string, len(answer.Sources))
	for i, s := range answer.Sources {
		ids[i] = s.ID
	}
	assert.ElementsMatch(t, []string{"sales-q1", "sales-q2"}, ids)

	plan, err := todoStore.ReadPlan("s1")
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 2)
	for _, task := range plan.Tasks {
		assert.Equal(t, core.TaskCompleted, task.Status)
	}

	// each worker started from a fresh conversation holding only its task
	reqs := m.Requests()
	require.Len(t, reqs[1].Turns, 1)
	assert.Equal(t, "find emea revenue", reqs[1].Turns[0].Content)
}

func TestHandle_UnparseablePlanDegradesToSimple(t *testing.T) {
	m := model.NewScriptedModel().EnqueueText("I would rather not produce JSON today.")
	p, _, _ := newTestPlanner(t, m, salesStore())

	answer, err := p.Handle(context.Background(), "s1", "compare emea and apac revenue")
	require.NoError(t, err, "a planning failure must stay invisible to the caller")
	assert.Equal(t, 1, m.Calls(), "only the planning call; the fallback is a store lookup")
	assert.Contains(t, answer.Text, "don't have enough information")
	assert.Equal(t, core.ConfidenceLow, answer.Confidence.Band)
}

func TestHandle_FailedTaskSkippedWithCaveat(t *testing.T) {
	m := model.NewScriptedModel().
		EnqueueText(`{"tasks": [{"description": "find latam revenue", "capability": "query"}]}`).
		EnqueueError(errors.New("zero records")).
		EnqueueError(errors.New("still zero records"))
	p, _, todoStore := newTestPlanner(t, m, salesStore())

	answer, err := p.Handle(context.Background(), "s1", "compare latam and emea revenue")
	require.NoError(t, err)
	assert.Equal(t, 3, m.Calls(), "plan, original attempt, one alternative")

	plan, err := todoStore.ReadPlan("s1")
	require.NoError(t, err)
	assert.Equal(t, core.TaskSkipped, plan.Tasks[0].Status)

	require.NotEmpty(t, answer.Caveats)
	assert.Contains(t, answer.Caveats[0], "find latam revenue")
	assert.Contains(t, answer.Caveats[0], "zero records")
	assert.Equal(t, core.ConfidenceLow, answer.Confidence.Band)
}

func TestHandle_OversizedSummaryStagedWithReceipt(t *testing.T) {
	summary := "EMEA came to 4.2M across 118 closed deals, strongest in the DACH region."
	m := model.NewScriptedModel().
		EnqueueText(`{"tasks": [{"description": "find emea revenue", "capability": "query"}]}`).
		EnqueueText(summary)
	p, stage, todoStore := newTestPlanner(t, m, salesStore(), func(o *Options) {
		o.StageThreshold = 20
	})

	answer, err := p.Handle(context.Background(), "s1", "revenue per quarter breakdown")
	require.NoError(t, err)
	assert.Contains(t, answer.Text, summary, "the finding still reaches synthesis in full")

	keys, err := stage.List("s1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	plan, err := todoStore.ReadPlan("s1")
	require.NoError(t, err)
	assert.Equal(t, "task-"+plan.Tasks[0].ID, keys[0])

	staged, err := stage.Read("s1", keys[0], 0)
	require.NoError(t, err)
	assert.Equal(t, summary, string(staged))
}

func TestHandle_DirectTaskRunsInCoordinatorConversation(t *testing.T) {
	m := model.NewScriptedModel().
		EnqueueText(`{"tasks": [{"description": "derive the growth rate from 4.2M and 3.1M", "capability": "direct"}]}`).
		EnqueueText("the growth rate is 35%")
	p, _, _ := newTestPlanner(t, m, salesStore())

	answer, err := p.Handle(context.Background(), "s1", "compare emea and apac revenue growth")
	require.NoError(t, err)
	assert.Contains(t, answer.Text, "the growth rate is 35%")

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	direct := reqs[1]
	require.NotEmpty(t, direct.Tools, "direct steps carry the query tool surface")
	// the coordinator's history precedes the task turn
	require.GreaterOrEqual(t, len(direct.Turns), 2)
	assert.Equal(t, "compare emea and apac revenue growth", direct.Turns[0].Content)
	assert.Equal(t, "derive the growth rate from 4.2M and 3.1M", direct.Turns[len(direct.Turns)-1].Content)
}

// funcModel hands each completion to a closure; used where per-call timing
// matters more than scripted replay.
type funcModel struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, ctx context.Context, req model.Request) (*model.Response, error)
}

func (m *funcModel) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()
	return m.fn(call, ctx, req)
}

func (m *funcModel) Info() model.Info {
	return model.Info{Name: "func", Provider: "scripted", SupportsTools: true}
}

func TestHandle_DeadlineYieldsPartialAnswer(t *testing.T) {
	m := &funcModel{fn: func(call int, ctx context.Context, req model.Request) (*model.Response, error) {
		switch call {
		case 1:
			return &model.Response{Text: planTwoQueries, FinishReason: "stop"}, nil
		case 2:
			return &model.Response{Text: "EMEA revenue was 4.2M", FinishReason: "stop"}, nil
		default:
			<-ctx.Done()
			return nil, ctx.Err()
		}
	}}
	p, _, todoStore := newTestPlanner(t, m, salesStore(), func(o *Options) {
		o.QueryTimeout = 100 * time.Millisecond
	})

	answer, err := p.Handle(context.Background(), "s1", "compare emea and apac revenue")
	require.NoError(t, err, "a deadline produces a partial answer, not an error")
	assert.Contains(t, answer.Text, "EMEA revenue was 4.2M")

	require.NotEmpty(t, answer.Caveats)
	assert.Contains(t, answer.Caveats[0], "find apac revenue")
	assert.NotEqual(t, core.ConfidenceHigh, answer.Confidence.Band)

	plan, err := todoStore.ReadPlan("s1")
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, plan.Tasks[0].Status)
	assert.NotEqual(t, core.TaskCompleted, plan.Tasks[1].Status)
}

func TestHandle_DeadlineBeforeAnyWork(t *testing.T) {
	m := &funcModel{fn: func(call int, ctx context.Context, req model.Request) (*model.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	p, _, _ := newTestPlanner(t, m, salesStore(), func(o *Options) {
		o.QueryTimeout = 50 * time.Millisecond
	})

	answer, err := p.Handle(context.Background(), "s1", "compare emea and apac revenue")
	require.NoError(t, err)
	assert.Contains(t, answer.Text, "took too long")
	assert.Equal(t, core.ConfidenceLow, answer.Confidence.Band)
}
