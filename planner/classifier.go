package planner

import (
	"context"
	"strings"

	"github.com/hupe1980/askmesh/model"
)

// Complexity is the routing decision for an incoming query.
type Complexity string

const (
	// ComplexitySimple routes to a single knowledge lookup.
	ComplexitySimple Complexity = "simple"
	// ComplexityComplex routes through plan decomposition.
	ComplexityComplex Complexity = "complex"
)

// Classifier decides how a query is handled. Misclassification is cheap in
// one direction (a simple query run through planning still answers, just
// slower), so implementations should prefer false positives on complex.
type Classifier interface {
	Classify(ctx context.Context, query string) (Complexity, error)
}

// HeuristicClassifier routes on surface cues without a model call:
// comparison language, temporal ranges and multi-part phrasing mark a query
// complex. Everything else stays simple.
type HeuristicClassifier struct{}

var _ Classifier = (*HeuristicClassifier)(nil)

// complexCues are substrings that signal decomposition is worthwhile.
var complexCues = []string{
	// comparison
	"compare", " versus ", " vs ", " vs. ", "difference between", "higher than", "lower than",
	// temporal range / trend
	"over the last", "over the past", "trend", "per quarter", "per month",
	"each quarter", "each month", "year over year", "quarter over quarter",
	// multi-part
	"for each", "for every", "break down", "breakdown", "and also", "as well as", "; ",
}

// Classify never fails; the error return satisfies the interface for
// model-backed implementations.
func (HeuristicClassifier) Classify(_ context.Context, query string) (Complexity, error) {
	q := strings.ToLower(query)
	for _, cue := range complexCues {
		if strings.Contains(q, cue) {
			return ComplexityComplex, nil
		}
	}
	// several conjunctions or questions usually mean several tasks
	if strings.Count(q, " and ") >= 2 || strings.Count(q, "?") >= 2 {
		return ComplexityComplex, nil
	}
	return ComplexitySimple, nil
}

// ModelClassifier asks the model for the routing decision. Useful when the
// heuristic cues miss domain phrasing; falls back to complex on ambiguous
// output since over-planning is the safer error.
type ModelClassifier struct {
	model model.Model
}

var _ Classifier = (*ModelClassifier)(nil)

// NewModelClassifier wraps a model as a Classifier.
func NewModelClassifier(m model.Model) *ModelClassifier {
	return &ModelClassifier{model: m}
}

func (c *ModelClassifier) Classify(ctx context.Context, query string) (Complexity, error) {
	resp, err := c.model.Complete(ctx, model.Request{
		Instructions: "Classify whether answering the question needs one data lookup or several distinct steps. Reply with exactly one word: simple or complex.",
		Turns:        []model.Turn{{Role: "user", Content: query}},
	})
	if err != nil {
		return "", err
	}
	if strings.Contains(strings.ToLower(resp.Text), "simple") {
		return ComplexitySimple, nil
	}
	return ComplexityComplex, nil
}
