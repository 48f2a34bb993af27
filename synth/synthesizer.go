// Package synth produces the final answer for a query from the settled
// plan, returned summaries and staged artifacts. Confidence derives from
// independent source count, data recency against a staleness threshold and
// task completion status. Skipped tasks always surface as explicit caveats;
// facts whose contributing task was skipped are never asserted.
package synth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/askmesh/core"
	"github.com/hupe1980/askmesh/logging"
	"github.com/hupe1980/askmesh/model"
)

// Finding pairs a completed task with its bounded result summary.
type Finding struct {
	TaskID      string
	Description string
	Summary     string
}

// Input carries everything the synthesizer may draw on.
type Input struct {
	Query          string
	Plan           core.Plan
	Findings       []Finding
	Sources        []core.Source
	StagedKeysUsed []string
	// TimedOut marks a run stopped by the per-query deadline; pending tasks
	// are then reported as not attempted rather than silently dropped.
	TimedOut bool
}

// Options configure a Synthesizer.
type Options struct {
	// StalenessDays is the recency threshold; older newest-data earns a
	// caveat and a confidence penalty.
	StalenessDays int
	// Concise asks the model polish step for a short rendering. The core
	// guarantees only this toggle; per-message splitting belongs to the
	// transport.
	Concise bool
	// Model optionally polishes the prose. With no model (or on model
	// failure) the deterministic composition is returned, so synthesis
	// never surfaces a raw error to users.
	Model model.Model
	// Now is the clock used for staleness checks.
	Now func() time.Time
	// Logger receives diagnostics.
	Logger logging.Logger
}

// Synthesizer builds core.Answer values.
type Synthesizer struct {
	stalenessDays int
	concise       bool
	model         model.Model
	now           func() time.Time
	logger        logging.Logger
}

// New constructs a Synthesizer with optional overrides.
func New(optFns ...func(o *Options)) *Synthesizer {
	opts := Options{
		StalenessDays: 60,
		Now:           time.Now,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Synthesizer{
		stalenessDays: opts.StalenessDays,
		concise:       opts.Concise,
		model:         opts.Model,
		now:           opts.Now,
		logger:        opts.Logger,
	}
}

// Synthesize produces the final answer. It always returns a usable Answer;
// the error is reserved for context cancellation.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) (core.Answer, error) {
	if err := ctx.Err(); err != nil {
		return core.Answer{}, err
	}

	caveats := s.caveats(in)
	answer := core.Answer{
		Text:       s.compose(in, caveats),
		Sources:    in.Sources,
		Confidence: s.confidence(in),
		Caveats:    caveats,
	}

	if s.model != nil {
		if polished, err := s.polish(ctx, in, answer); err == nil && polished != "" {
			answer.Text = polished
		} else if err != nil {
			s.logger.Warn("synth.polish.failed", "error", err.Error())
		}
	}
	return answer, nil
}

// caveats names every skipped or failed task, unattempted work after a
// timeout, and stale underlying data. Nothing is silently omitted.
func (s *Synthesizer) caveats(in Input) []string {
	var out []string
	for _, t := range in.Plan.Tasks {
		switch t.Status {
		case core.TaskSkipped:
			out = append(out, fmt.Sprintf("could not complete %q: %s — consider narrowing or rephrasing that part", t.Description, t.FailureReason))
		case core.TaskFailed:
			out = append(out, fmt.Sprintf("%q failed: %s", t.Description, t.FailureReason))
		case core.TaskPending:
			if in.TimedOut {
				out = append(out, fmt.Sprintf("not attempted before the deadline: %q", t.Description))
			}
		case core.TaskInProgress:
			if in.TimedOut {
				out = append(out, fmt.Sprintf("interrupted by the deadline: %q", t.Description))
			}
		}
	}
	if stale, newest := s.stale(in.Sources); stale {
		out = append(out, fmt.Sprintf("underlying data is older than %d days (newest: %s)",
			s.stalenessDays, newest.Format("2006-01-02")))
	}
	return out
}

// stale reports whether the newest source is older than the threshold.
func (s *Synthesizer) stale(sources []core.Source) (bool, time.Time) {
	if len(sources) == 0 {
		return false, time.Time{}
	}
	var newest time.Time
	for _, src := range sources {
		if src.Date.After(newest) {
			newest = src.Date
		}
	}
	return s.now().Sub(newest) > time.Duration(s.stalenessDays)*24*time.Hour, newest
}

// confidence derives the reliability score: base from independent source
// count, degraded per skipped/failed task and for stale data.
func (s *Synthesizer) confidence(in Input) core.Confidence {
	var score float64
	switch n := len(in.Sources); {
	case n == 0:
		score = 0.2
	case n == 1:
		score = 0.5
	case n == 2:
		score = 0.7
	default:
		score = 0.9
	}
	for _, t := range in.Plan.Tasks {
		if t.Status == core.TaskSkipped || t.Status == core.TaskFailed {
			score -= 0.15
		}
	}
	if stale, _ := s.stale(in.Sources); stale {
		score -= 0.1
	}
	if in.TimedOut {
		score -= 0.1
	}
	if score < 0.1 {
		score = 0.1
	}

	band := core.ConfidenceLow
	switch {
	case score >= 0.75:
		band = core.ConfidenceHigh
	case score >= 0.45:
		band = core.ConfidenceMedium
	}
	return core.Confidence{Score: score, Band: band}
}

// compose renders the deterministic answer text from completed findings
// only. It is both the fallback when no model is configured and the raw
// material for the polish step.
func (s *Synthesizer) compose(in Input, caveats []string) string {
	if len(in.Findings) == 0 {
		if in.TimedOut {
			return "This took too long to answer fully and nothing usable completed in time. Please narrow the question and try again."
		}
		return "I don't have enough information yet to answer this. Rephrasing the question or broadening its scope may help."
	}

	var b strings.Builder
	for i, f := range in.Findings {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(f.Summary)
	}
	if len(in.Sources) > 0 {
		b.WriteString("\n\nSources: ")
		parts := make([]string, len(in.Sources))
		for i, src := range in.Sources {
			parts[i] = fmt.Sprintf("%s (%s)", src.ID, src.Date.Format("2006-01-02"))
		}
		b.WriteString(strings.Join(parts, ", "))
	}
	if len(in.StagedKeysUsed) > 0 {
		b.WriteString("\n\nFull intermediate results are staged under: ")
		b.WriteString(strings.Join(in.StagedKeysUsed, ", "))
	}
	if len(caveats) > 0 {
		b.WriteString("\n\nNote: this answer is partial. ")
		b.WriteString(strings.Join(caveats, "; "))
	}
	return b.String()
}

// polish asks the model to render the composed material as prose. The
// instructions forbid introducing facts beyond the findings so skipped-task
// gaps stay gaps.
func (s *Synthesizer) polish(ctx context.Context, in Input, draft core.Answer) (string, error) {
	style := "Write clear prose."
	if s.concise {
		style = "Be concise; a short paragraph at most."
	}
	instructions := fmt.Sprintf(
		"You finalize answers from collected findings. Use only the material given — never add facts. Always keep the source attributions and every stated caveat. %s", style)

	resp, err := s.model.Complete(ctx, model.Request{
		Instructions: instructions,
		Turns: []model.Turn{
			{Role: "user", Content: fmt.Sprintf("Question: %s\n\nMaterial:\n%s", in.Query, draft.Text)},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
