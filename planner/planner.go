// Package planner implements the coordinating loop that turns a user query
// into a final answer: classify, decompose complex queries into a tracked
// plan, execute tasks one at a time (delegating non-direct capabilities to
// isolated workers), recover from failures, keep the conversation inside
// its budget and synthesize the result. A single planner goroutine owns the
// todo and staging writes for a session.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/askmesh/budget"
	"github.com/hupe1980/askmesh/core"
	"github.com/hupe1980/askmesh/logging"
	"github.com/hupe1980/askmesh/model"
	"github.com/hupe1980/askmesh/recovery"
	"github.com/hupe1980/askmesh/synth"
	"github.com/hupe1980/askmesh/tool"
	"github.com/hupe1980/askmesh/worker"
)

const coordinatorInstructions = "You coordinate answering a user question. " +
	"Work strictly from tool results and task summaries; cite source identities and dates. " +
	"If something could not be determined, say so instead of guessing."

const planInstructions = "Decompose the question into the smallest set of ordered tasks. " +
	"Respond with JSON only: {\"tasks\": [{\"description\": \"...\", \"capability\": \"query|analysis|direct\"}]}. " +
	"Use query for tasks needing the external data store, analysis for tasks working purely on earlier staged results, direct for short reasoning steps."

// Options configure a Planner.
type Options struct {
	// Budget manages conversation truncation and pruning. Defaults to the
	// standard tuning.
	Budget *budget.Manager
	// Recovery drives retry-alternative-then-skip on task failures.
	Recovery *recovery.Policy
	// Classifier routes queries to simple or complex handling.
	Classifier Classifier
	// Synthesizer produces the final answer.
	Synthesizer *synth.Synthesizer
	// QueryTimeout bounds one Handle call end to end.
	QueryTimeout time.Duration
	// DirectToolRounds bounds tool round-trips of a direct task step.
	DirectToolRounds int
	// WorkerToolRounds and WorkerSummaryLimit configure the per-call pool.
	WorkerToolRounds   int
	WorkerSummaryLimit int
	// StageThreshold is the summary size above which the full text is moved
	// to the staging store and only a receipt enters the conversation.
	StageThreshold int
	// Logger receives diagnostics.
	Logger logging.Logger
}

// Planner coordinates plans, workers and synthesis for one query at a time.
type Planner struct {
	model     model.Model
	knowledge core.KnowledgeStore
	staging   core.StagingStore
	todo      core.TodoStore

	budget           *budget.Manager
	recovery         *recovery.Policy
	classifier       Classifier
	synthesizer      *synth.Synthesizer
	queryTimeout     time.Duration
	directRounds     int
	workerRounds     int
	workerSummaryCap int
	stageThreshold   int
	logger           logging.Logger
}

// New constructs a Planner over the given model and stores.
func New(
	m model.Model,
	knowledge core.KnowledgeStore,
	stagingStore core.StagingStore,
	todoStore core.TodoStore,
	optFns ...func(o *Options),
) (*Planner, error) {
	opts := Options{
		Classifier:         HeuristicClassifier{},
		QueryTimeout:       2 * time.Minute,
		DirectToolRounds:   4,
		WorkerToolRounds:   8,
		WorkerSummaryLimit: 1200,
		StageThreshold:     1000,
		Logger:             logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Budget == nil {
		b, err := budget.New()
		if err != nil {
			return nil, err
		}
		opts.Budget = b
	}
	if opts.Recovery == nil {
		opts.Recovery = recovery.New(func(o *recovery.Options) { o.Logger = opts.Logger })
	}
	if opts.Synthesizer == nil {
		opts.Synthesizer = synth.New(func(o *synth.Options) { o.Logger = opts.Logger })
	}
	if opts.QueryTimeout <= 0 {
		return nil, fmt.Errorf("planner: query timeout must be positive")
	}
	return &Planner{
		model:            m,
		knowledge:        knowledge,
		staging:          stagingStore,
		todo:             todoStore,
		budget:           opts.Budget,
		recovery:         opts.Recovery,
		classifier:       opts.Classifier,
		synthesizer:      opts.Synthesizer,
		queryTimeout:     opts.QueryTimeout,
		directRounds:     opts.DirectToolRounds,
		workerRounds:     opts.WorkerToolRounds,
		workerSummaryCap: opts.WorkerSummaryLimit,
		stageThreshold:   opts.StageThreshold,
		logger:           opts.Logger,
	}, nil
}

// Handle answers one query end to end. It always tries to return a worded
// Answer; errors are reserved for store failures and caller cancellation
// before any work happened.
func (p *Planner) Handle(ctx context.Context, sessionID, query string) (core.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	recorder := newSourceRecorder(p.knowledge)
	conv := core.NewConversation()
	conv.Append(core.NewTurn(core.RoleSystem, coordinatorInstructions))
	conv.Append(core.NewTurn(core.RoleUser, query))

	complexity, err := p.classifier.Classify(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return p.timeoutAnswer(ctx, query)
		}
		p.logger.Warn("planner.classify.failed", "error", err.Error())
		complexity = ComplexitySimple
	}
	p.logger.Info("planner.classified", "session", sessionID, "complexity", string(complexity))

	if complexity == ComplexityComplex {
		tasks, planErr := p.plan(ctx, query)
		switch {
		case planErr == nil:
			return p.runPlan(ctx, sessionID, query, conv, recorder, tasks)
		case ctx.Err() != nil:
			return p.timeoutAnswer(ctx, query)
		default:
			// a failed planning call is recoverable: fall through to the
			// simple path rather than bothering the user
			p.logger.Warn("planner.plan.degraded", "session", sessionID, "error", planErr.Error())
		}
	}
	return p.runSimple(ctx, sessionID, query, recorder)
}

// plan makes the single planning call and parses its task list.
func (p *Planner) plan(ctx context.Context, query string) ([]core.Task, error) {
	resp, err := p.model.Complete(ctx, model.Request{
		Instructions: planInstructions,
		Turns:        []model.Turn{{Role: "user", Content: query}},
	})
	if err != nil {
		return nil, err
	}
	return parsePlan(resp.Text)
}

// runSimple answers with one knowledge lookup and synthesis.
func (p *Planner) runSimple(ctx context.Context, sessionID, query string, recorder *sourceRecorder) (core.Answer, error) {
	records, err := recorder.Query(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return p.timeoutAnswer(ctx, query)
		}
		p.logger.Warn("planner.simple.query_failed", "session", sessionID, "error", err.Error())
	}

	var findings []synth.Finding
	if len(records) > 0 {
		findings = append(findings, synth.Finding{Summary: p.budget.TruncateRecords(records)})
	}
	return p.synthesizer.Synthesize(ctx, synth.Input{
		Query:    query,
		Findings: findings,
		Sources:  recorder.Sources(),
	})
}

// runPlan writes the plan and drives the step loop: exactly one task in
// flight, each settled to completed or skipped before the next starts.
func (p *Planner) runPlan(
	ctx context.Context,
	sessionID, query string,
	conv *core.Conversation,
	recorder *sourceRecorder,
	tasks []core.Task,
) (core.Answer, error) {
	if err := p.todo.WritePlan(sessionID, tasks); err != nil {
		return core.Answer{}, err
	}
	conv.Append(core.NewTurn(core.RoleToolResult, fmt.Sprintf("plan created: %d tasks", len(tasks))))

	pool := worker.NewPool(p.model, recorder, p.staging, p.budget, func(o *worker.Options) {
		o.MaxToolRounds = p.workerRounds
		o.SummaryLimit = p.workerSummaryCap
		o.Logger = p.logger
	})

	timedOut := false
	for {
		if ctx.Err() != nil {
			timedOut = true
			break
		}
		plan, err := p.todo.ReadPlan(sessionID)
		if err != nil {
			return core.Answer{}, err
		}
		task, ok := plan.NextPending()
		if !ok {
			break
		}
		if err := p.todo.SetStatus(sessionID, task.ID, core.TaskInProgress, ""); err != nil {
			return core.Answer{}, err
		}

		outcome, err := p.recovery.Apply(ctx, p.todo, sessionID, task, p.execFunc(sessionID, conv, recorder, pool, task))
		if err != nil {
			if ctx.Err() != nil {
				timedOut = true
				break
			}
			return core.Answer{}, err
		}
		p.recordOutcome(sessionID, conv, task, outcome)

		if after, err := p.todo.ReadPlan(sessionID); err == nil {
			conv.Append(core.NewTurn(core.RoleToolResult, after.Checkpoint()))
		}
	}
	return p.finish(ctx, sessionID, query, recorder, timedOut)
}

// execFunc builds the recovery-driven execution closure for one task.
// Delegated failures arrive as ok=false summaries and are converted to
// errors here so the policy sees one failure shape.
func (p *Planner) execFunc(
	sessionID string,
	conv *core.Conversation,
	recorder *sourceRecorder,
	pool *worker.Pool,
	task core.Task,
) recovery.ExecFunc {
	return func(ctx context.Context, description string) (string, error) {
		if task.Capability == core.CapabilityDirect {
			return p.directStep(ctx, conv, recorder, sessionID, description)
		}

		var refs []string
		if keys, err := p.staging.List(sessionID); err == nil {
			refs = keys
		}
		summary, ok, err := pool.Delegate(ctx, sessionID, core.WorkerInvocation{
			Capability:      task.Capability,
			TaskDescription: description,
			ContextRefs:     refs,
		})
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errors.New(summary)
		}
		if strings.TrimSpace(summary) == "" {
			return "", errors.New("worker returned an empty result")
		}
		return summary, nil
	}
}

// directStep executes a direct-capability task inside the coordinator's own
// conversation, with the full query tool surface.
func (p *Planner) directStep(
	ctx context.Context,
	conv *core.Conversation,
	recorder *sourceRecorder,
	sessionID, description string,
) (string, error) {
	tools := []tool.Tool{
		tool.NewQueryTool(recorder, p.budget),
		tool.NewSchemaTool(recorder),
		tool.NewStagingReadTool(p.staging, sessionID),
	}

	turns := modelTurns(conv.Turns())
	turns = append(turns, model.Turn{Role: "user", Content: description})
	req := model.Request{
		Instructions: coordinatorInstructions,
		Tools:        tool.Definitions(tools),
	}

	for round := 0; round < p.directRounds; round++ {
		req.Turns = turns
		resp, err := p.model.Complete(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.ToolCalls) == 0 {
			if strings.TrimSpace(resp.Text) == "" {
				return "", errors.New("model returned an empty result")
			}
			return resp.Text, nil
		}
		if resp.Text != "" {
			turns = append(turns, model.Turn{Role: "assistant", Content: resp.Text})
		}
		for _, call := range resp.ToolCalls {
			result := tool.Dispatch(ctx, tools, call)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			turns = append(turns, model.Turn{Role: "tool_result", Content: fmt.Sprintf("%s: %s", call.Name, result)})
		}
	}
	return "", fmt.Errorf("no result after %d tool rounds", p.directRounds)
}

// recordOutcome appends the settled task's status to the conversation.
// Oversized summaries move to the staging store wholesale; only the receipt
// crosses into the history.
func (p *Planner) recordOutcome(sessionID string, conv *core.Conversation, task core.Task, outcome recovery.Outcome) {
	var line string
	switch outcome.Status {
	case core.TaskCompleted:
		if len(outcome.Summary) > p.stageThreshold {
			key := "task-" + task.ID
			if receipt, err := p.staging.Write(sessionID, key, []byte(outcome.Summary)); err == nil {
				line = fmt.Sprintf("task %s completed; full result staged as %q (%d chars), read via read_staged", task.ID, receipt.Key, receipt.Size)
				break
			}
			p.logger.Warn("planner.stage.failed", "session", sessionID, "task", task.ID)
		}
		line = fmt.Sprintf("task %s completed: %s", task.ID, outcome.Summary)
	case core.TaskSkipped:
		line = fmt.Sprintf("task %s skipped: %s", task.ID, outcome.Reason)
	default:
		line = fmt.Sprintf("task %s settled as %s", task.ID, outcome.Status)
	}
	conv.Append(core.NewTurn(core.RoleToolResult, p.budget.Apply(conv, line)))
}

// finish synthesizes from whatever the plan produced. On timeout, synthesis
// runs outside the expired context so partial answers still come back.
func (p *Planner) finish(ctx context.Context, sessionID, query string, recorder *sourceRecorder, timedOut bool) (core.Answer, error) {
	plan, err := p.todo.ReadPlan(sessionID)
	if err != nil {
		return core.Answer{}, err
	}

	var findings []synth.Finding
	for _, t := range plan.Tasks {
		if t.Status == core.TaskCompleted {
			findings = append(findings, synth.Finding{
				TaskID:      t.ID,
				Description: t.Description,
				Summary:     t.ResultSummary,
			})
		}
	}

	var stagedKeys []string
	if keys, listErr := p.staging.List(sessionID); listErr == nil {
		stagedKeys = keys
	}

	synthCtx := ctx
	if timedOut {
		synthCtx = context.WithoutCancel(ctx)
		p.logger.Warn("planner.deadline", "session", sessionID, "checkpoint", plan.Checkpoint())
	}
	return p.synthesizer.Synthesize(synthCtx, synth.Input{
		Query:          query,
		Plan:           plan,
		Findings:       findings,
		Sources:        recorder.Sources(),
		StagedKeysUsed: stagedKeys,
		TimedOut:       timedOut,
	})
}

// timeoutAnswer covers deadlines hit before any plan existed.
func (p *Planner) timeoutAnswer(ctx context.Context, query string) (core.Answer, error) {
	return p.synthesizer.Synthesize(context.WithoutCancel(ctx), synth.Input{
		Query:    query,
		TimedOut: true,
	})
}

// modelTurns converts conversation history to the model wire shape. System
// content travels via Request.Instructions, so system turns are dropped.
func modelTurns(turns []core.Turn) []model.Turn {
	out := make([]model.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Role == core.RoleSystem {
			continue
		}
		out = append(out, model.Turn{Role: string(t.Role), Content: t.Content})
	}
	return out
}
