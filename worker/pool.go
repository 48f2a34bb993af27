// Package worker implements isolated-context delegation. Each delegation
// runs against a fresh conversation containing only the task description
// and optional staged-artifact references — never the coordinator's
// history — and returns a bounded summary. That isolation is what lets N
// workers process N large datasets at the cost of N short summaries to the
// coordinator instead of N large payloads.
package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/askmesh/budget"
	"github.com/hupe1980/askmesh/core"
	"github.com/hupe1980/askmesh/logging"
	"github.com/hupe1980/askmesh/model"
	"github.com/hupe1980/askmesh/tool"
)

// Options configure a Pool.
type Options struct {
	// MaxToolRounds bounds the model/tool round-trips per delegation.
	MaxToolRounds int
	// SummaryLimit bounds the length of the summary returned to the
	// coordinator, in characters.
	SummaryLimit int
	// Logger receives per-delegation diagnostics.
	Logger logging.Logger
}

// Pool creates workers on demand. Workers share the pool's model and store
// handles (external-store connections may be pooled across calls; each
// worker's query is independent and order-insensitive), but never share
// conversation state.
type Pool struct {
	model         model.Model
	knowledge     core.KnowledgeStore
	staging       core.StagingStore
	budget        *budget.Manager
	logger        logging.Logger
	maxToolRounds int
	summaryLimit  int
}

// NewPool constructs a Pool with optional overrides.
func NewPool(
	m model.Model,
	knowledge core.KnowledgeStore,
	stagingStore core.StagingStore,
	b *budget.Manager,
	optFns ...func(o *Options),
) *Pool {
	opts := Options{
		MaxToolRounds: 8,
		SummaryLimit:  1200,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Pool{
		model:         m,
		knowledge:     knowledge,
		staging:       stagingStore,
		budget:        b,
		logger:        opts.Logger,
		maxToolRounds: opts.MaxToolRounds,
		summaryLimit:  opts.SummaryLimit,
	}
}

// Delegate runs one worker to completion and returns its compact summary.
// Worker-internal reasoning and tool traffic stay inside this call; only
// the bounded summary crosses back. Failures (model errors, exhausted tool
// rounds, unknown capability) are returned as short failure summaries with
// ok=false so the recovery policy treats them uniformly with empty results.
// Only context cancellation propagates as an error.
func (p *Pool) Delegate(ctx context.Context, sessionID string, inv core.WorkerInvocation) (summary string, ok bool, err error) {
	tools, buildErr := p.toolsFor(inv.Capability, sessionID)
	if buildErr != nil {
		return fmt.Sprintf("worker failed: %v", buildErr), false, nil
	}

	turns := []model.Turn{{Role: "user", Content: renderTask(inv)}}
	req := model.Request{
		Instructions: p.instructions(inv.Capability),
		Tools:        tool.Definitions(tools),
	}

	for round := 0; round < p.maxToolRounds; round++ {
		req.Turns = turns
		resp, callErr := p.model.Complete(ctx, req)
		if callErr != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			p.logger.Warn("worker.model.error", "capability", inv.Capability, "error", callErr.Error())
			return fmt.Sprintf("worker failed: %v", callErr), false, nil
		}

		if len(resp.ToolCalls) == 0 {
			return p.clamp(resp.Text), true, nil
		}

		if resp.Text != "" {
			turns = append(turns, model.Turn{Role: "assistant", Content: resp.Text})
		}
		for _, call := range resp.ToolCalls {
			result := tool.Dispatch(ctx, tools, call)
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			turns = append(turns, model.Turn{
				Role:    "tool_result",
				Content: fmt.Sprintf("%s: %s", call.Name, result),
			})
		}
	}

	p.logger.Warn("worker.rounds.exhausted", "capability", inv.Capability, "rounds", p.maxToolRounds)
	return fmt.Sprintf("worker failed: no summary after %d tool rounds", p.maxToolRounds), false, nil
}

// toolsFor maps a capability to its restricted tool surface. The switch is
// exhaustive over the closed capability set; a query worker may reach the
// external store, an analysis worker may only read staged artifacts.
func (p *Pool) toolsFor(cap core.Capability, sessionID string) ([]tool.Tool, error) {
	switch cap {
	case core.CapabilityQuery:
		return []tool.Tool{
			tool.NewQueryTool(p.knowledge, p.budget),
			tool.NewSchemaTool(p.knowledge),
			tool.NewStagingReadTool(p.staging, sessionID),
		}, nil
	case core.CapabilityAnalysis:
		return []tool.Tool{
			tool.NewStagingReadTool(p.staging, sessionID),
		}, nil
	case core.CapabilityDirect:
		return nil, fmt.Errorf("direct tasks run in the coordinator, not a worker")
	default:
		return nil, fmt.Errorf("unknown capability %q", cap)
	}
}

// instructions builds the worker's system prompt. Deliberately minimal: the
// worker knows its capability and the summary contract, nothing about the
// coordinator's conversation.
func (p *Pool) instructions(cap core.Capability) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s worker handling one bounded sub-task.\n", cap)
	switch cap {
	case core.CapabilityQuery:
		b.WriteString("Use query_store (and describe_schema when unsure about the data shape) to gather what the task needs.\n")
	case core.CapabilityAnalysis:
		b.WriteString("Work only from the staged artifacts referenced in the task; you have no external data access.\n")
	}
	fmt.Fprintf(&b, "Finish with a single compact summary of at most %d characters covering findings, source identities and dates.", p.summaryLimit)
	return b.String()
}

// clamp bounds the worker's final text to the summary limit, with an
// explicit marker rather than a silent cut.
func (p *Pool) clamp(s string) string {
	if len(s) <= p.summaryLimit {
		return s
	}
	return fmt.Sprintf("%s\n[Truncated: %d total chars]", s[:p.summaryLimit], len(s))
}

// renderTask produces the single user turn a worker starts from.
func renderTask(inv core.WorkerInvocation) string {
	if len(inv.ContextRefs) == 0 {
		return inv.TaskDescription
	}
	return fmt.Sprintf("%s\n\nStaged artifacts available via read_staged: %s",
		inv.TaskDescription, strings.Join(inv.ContextRefs, ", "))
}
