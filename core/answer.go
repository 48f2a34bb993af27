package core

import "time"

// Source attributes a claim in the final answer to a record identity and
// the date of the underlying data.
type Source struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
}

// Confidence bands. The numeric score is authoritative; the band is a
// coarse rendering for delivery layers that prefer labels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Confidence is the reliability measure attached to an answer, derived from
// independent source count, data recency and task completion status.
type Confidence struct {
	Score float64 `json:"score"` // 0..1
	Band  string  `json:"band"`  // high, medium, low
}

// Answer is the final synthesized response for one query.
type Answer struct {
	Text       string     `json:"text"`
	Sources    []Source   `json:"sources,omitempty"`
	Confidence Confidence `json:"confidence"`
	Caveats    []string   `json:"caveats,omitempty"`
}
