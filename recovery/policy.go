// Package recovery implements the retry-with-alternative-then-skip state
// machine applied to task failures. A failing task is marked failed with
// its reason, re-executed under an alternative description up to a
// configurable number of times, and finally skipped — the plan loop never
// blocks or aborts on one task's failure. Skipped tasks must surface as
// caveats in the final answer; that obligation is the synthesizer's and is
// fed by the statuses this package writes.
package recovery

import (
	"context"
	"fmt"

	"github.com/hupe1980/askmesh/core"
	"github.com/hupe1980/askmesh/logging"
)

// ExecFunc runs one execution attempt of a task under the given
// description and returns its summary, or an error describing the failure.
// Empty or invalid results count as failures.
type ExecFunc func(ctx context.Context, description string) (string, error)

// RephraseFunc formulates an alternative approach for a failed task —
// different scope, phrasing or capability. Returning ok=false means no
// sensible alternative exists and the task is skipped immediately.
type RephraseFunc func(ctx context.Context, task core.Task, failure string) (string, bool)

// Outcome is the settled result of applying the policy to one task.
type Outcome struct {
	Status   core.TaskStatus // TaskCompleted or TaskSkipped
	Summary  string          // set when completed
	Reason   string          // set when skipped
	Attempts int             // total execution attempts
}

// Options configure a Policy.
type Options struct {
	// MaxAlternatives is the number of alternative attempts after the
	// original execution fails. The observed default is one; transient
	// failure classes may warrant more.
	MaxAlternatives int
	// Rephrase produces the alternative description per retry.
	Rephrase RephraseFunc
	// Logger receives per-attempt diagnostics.
	Logger logging.Logger
}

// Policy drives task execution with recovery.
type Policy struct {
	maxAlternatives int
	rephrase        RephraseFunc
	logger          logging.Logger
}

// DefaultRephrase broadens the task wording deterministically. Production
// setups usually install a model-backed RephraseFunc instead.
func DefaultRephrase(_ context.Context, task core.Task, failure string) (string, bool) {
	return fmt.Sprintf("%s (previous attempt failed: %s — broaden the scope and relax any filters)",
		task.Description, failure), true
}

// New constructs a Policy with optional overrides.
func New(optFns ...func(o *Options)) *Policy {
	opts := Options{
		MaxAlternatives: 1,
		Rephrase:        DefaultRephrase,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Policy{
		maxAlternatives: opts.MaxAlternatives,
		rephrase:        opts.Rephrase,
		logger:          opts.Logger,
	}
}

// Apply executes the task (already marked in_progress by the caller) and
// settles it to completed or skipped in the todo store, recording failed
// transitions along the way so the status history stays truthful. Only a
// context error aborts; every other failure is absorbed into the outcome.
func (p *Policy) Apply(
	ctx context.Context,
	store core.TodoStore,
	sessionID string,
	task core.Task,
	exec ExecFunc,
) (Outcome, error) {
	description := task.Description
	attempts := 0
	var lastFailure string

	for {
		attempts++
		summary, err := exec(ctx, description)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		if err == nil {
			if setErr := store.SetStatus(sessionID, task.ID, core.TaskCompleted, summary); setErr != nil {
				return Outcome{}, setErr
			}
			return Outcome{Status: core.TaskCompleted, Summary: summary, Attempts: attempts}, nil
		}

		lastFailure = err.Error()
		p.logger.Warn("recovery.attempt.failed", "task", task.ID, "attempt", attempts, "reason", lastFailure)
		if setErr := store.SetStatus(sessionID, task.ID, core.TaskFailed, lastFailure); setErr != nil {
			return Outcome{}, setErr
		}

		if attempts > p.maxAlternatives {
			break
		}
		alt, ok := p.rephrase(ctx, task, lastFailure)
		if !ok {
			p.logger.Info("recovery.no_alternative", "task", task.ID)
			break
		}
		description = alt
		if setErr := store.SetStatus(sessionID, task.ID, core.TaskInProgress, ""); setErr != nil {
			return Outcome{}, setErr
		}
	}

	reason := fmt.Sprintf("skipped after %d attempts: %s", attempts, lastFailure)
	if err := store.SetStatus(sessionID, task.ID, core.TaskSkipped, reason); err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: core.TaskSkipped, Reason: reason, Attempts: attempts}, nil
}
