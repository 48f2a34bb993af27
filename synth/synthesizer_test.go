package synth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/askmesh/core"
	"github.com/hupe1980/askmesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

func newTestSynthesizer(optFns ...func(o *Options)) *Synthesizer {
	fns := append([]func(o *Options){func(o *Options) { o.Now = func() time.Time { return fixedNow } }}, optFns...)
	return New(fns...)
}

func TestSynthesize_AllCompletedFreshSources(t *testing.T) {
	s := newTestSynthesizer()
	answer, err := s.Synthesize(context.Background(), Input{
		Query: "compare emea and apac",
		Plan: core.Plan{Tasks: []core.Task{
			{ID: "t1", Status: core.TaskCompleted},
			{ID: "t2", Status: core.TaskCompleted},
		}},
		Findings: []Finding{
			{TaskID: "t1", Summary: "EMEA revenue was 4.2M"},
			{TaskID: "t2", Summary: "APAC revenue was 3.1M"},
		},
		Sources: []core.Source{
			{ID: "sales-q1", Date: fixedNow.AddDate(0, 0, -3)},
			{ID: "sales-q2", Date: fixedNow.AddDate(0, 0, -5)},
			{ID: "sales-q3", Date: fixedNow.AddDate(0, 0, -8)},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, answer.Caveats)
	assert.Equal(t, core.ConfidenceHigh, answer.Confidence.Band)
	assert.Contains(t, answer.Text, "EMEA revenue was 4.2M")
	assert.Contains(t, answer.Text, "APAC revenue was 3.1M")
	assert.Contains(t, answer.Text, "sales-q1")
	assert.Len(t, answer.Sources, 3)
}

func TestSynthesize_SkippedTaskCaveatAndDegradedConfidence(t *testing.T) {
	s := newTestSynthesizer()
	answer, err := s.Synthesize(context.Background(), Input{
		Query: "full regional breakdown",
		Plan: core.Plan{Tasks: []core.Task{
			{ID: "t1", Status: core.TaskCompleted},
			{ID: "t2", Description: "find latam sales", Status: core.TaskSkipped, FailureReason: "zero records"},
		}},
		Findings: []Finding{{TaskID: "t1", Summary: "EMEA revenue was 4.2M"}},
		Sources:  []core.Source{{ID: "sales-q1", Date: fixedNow.AddDate(0, 0, -3)}},
	})
	require.NoError(t, err)
	require.Len(t, answer.Caveats, 1)
	assert.Contains(t, answer.Caveats[0], "find latam sales")
	assert.Contains(t, answer.Caveats[0], "zero records")
	// never assert the skipped part's facts
	assert.NotContains(t, answer.Text, "latam revenue")
	assert.Contains(t, answer.Text, "this answer is partial")
	assert.NotEqual(t, core.ConfidenceHigh, answer.Confidence.Band)
}

func TestSynthesize_StaleDataCaveat(t *testing.T) {
	s := newTestSynthesizer()
	answer, err := s.Synthesize(context.Background(), Input{
		Query:    "current headcount",
		Plan:     core.Plan{Tasks: []core.Task{{ID: "t1", Status: core.TaskCompleted}}},
		Findings: []Finding{{TaskID: "t1", Summary: "headcount is 240"}},
		Sources:  []core.Source{{ID: "hr-export", Date: fixedNow.AddDate(0, 0, -90)}},
	})
	require.NoError(t, err)
	require.Len(t, answer.Caveats, 1)
	assert.Contains(t, answer.Caveats[0], "older than 60 days")
	assert.Contains(t, answer.Caveats[0], "2026-05-25")
}

func TestSynthesize_TimedOutNamesUnattemptedTasks(t *testing.T) {
	s := newTestSynthesizer()
	answer, err := s.Synthesize(context.Background(), Input{
		Query: "everything",
		Plan: core.Plan{Tasks: []core.Task{
			{ID: "t1", Status: core.TaskCompleted},
			{ID: "t2", Description: "find apac sales", Status: core.TaskPending},
		}},
		Findings: []Finding{{TaskID: "t1", Summary: "EMEA revenue was 4.2M"}},
		Sources:  []core.Source{{ID: "sales-q1", Date: fixedNow.AddDate(0, 0, -3)}},
		TimedOut: true,
	})
	require.NoError(t, err)
	require.Len(t, answer.Caveats, 1)
	assert.Contains(t, answer.Caveats[0], "not attempted before the deadline")
	assert.Contains(t, answer.Caveats[0], "find apac sales")
	assert.Contains(t, answer.Text, "EMEA revenue was 4.2M", "completed findings still count")
}

func TestSynthesize_NoFindings(t *testing.T) {
	s := newTestSynthesizer()
	answer, err := s.Synthesize(context.Background(), Input{Query: "anything"})
	require.NoError(t, err)
	assert.Contains(t, answer.Text, "don't have enough information")
	assert.Equal(t, core.ConfidenceLow, answer.Confidence.Band)
}

func TestSynthesize_ConfidenceScales(t *testing.T) {
	s := newTestSynthesizer()
	src := func(n int) []core.Source {
		out := make([]core.Source, n)
		for i := range out {
			out[i] = core.Source{ID: "s", Date: fixedNow}
		}
		return out
	}
	for _, tc := range []struct {
		sources int
		band    string
	}{
		{0, core.ConfidenceLow},
		{1, core.ConfidenceMedium},
		{3, core.ConfidenceHigh},
	} {
		answer, err := s.Synthesize(context.Background(), Input{
			Findings: []Finding{{Summary: "x"}},
			Sources:  src(tc.sources),
		})
		require.NoError(t, err)
		assert.Equal(t, tc.band, answer.Confidence.Band, "sources=%d", tc.sources)
	}
}

func TestSynthesize_ModelPolish(t *testing.T) {
	m := model.NewScriptedModel().EnqueueText("Polished prose answer.")
	s := newTestSynthesizer(func(o *Options) { o.Model = m })

	answer, err := s.Synthesize(context.Background(), Input{
		Query:    "revenue?",
		Plan:     core.Plan{Tasks: []core.Task{{ID: "t1", Status: core.TaskCompleted}}},
		Findings: []Finding{{TaskID: "t1", Summary: "revenue was 4.2M"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Polished prose answer.", answer.Text)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Turns[0].Content, "revenue was 4.2M")
	assert.Contains(t, reqs[0].Instructions, "never add facts")
}

func TestSynthesize_ModelFailureFallsBackToComposition(t *testing.T) {
	m := model.NewScriptedModel().EnqueueError(errors.New("rate limited"))
	s := newTestSynthesizer(func(o *Options) { o.Model = m })

	answer, err := s.Synthesize(context.Background(), Input{
		Findings: []Finding{{Summary: "revenue was 4.2M"}},
	})
	require.NoError(t, err)
	assert.Contains(t, answer.Text, "revenue was 4.2M")
}
