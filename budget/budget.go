// Package budget enforces the context window budget of the coordinating
// conversation. Two mechanisms apply, in order, after every result append
// and before every model call: per-result truncation (an oversized single
// result is replaced by a bounded preview plus an explicit total-count
// marker) and history pruning (interior turns beyond a ceiling are evicted
// wholesale, keeping the system and originating user turns plus the most
// recent window). Both are silent to the user but never silent in the
// conversation: truncation always leaves a marker.
package budget

import (
	"fmt"

	"github.com/hupe1980/askmesh/core"
)

// Options configure a Manager.
type Options struct {
	// TruncateAt is the per-result size threshold in characters.
	TruncateAt int
	// PreviewLen is the number of leading characters kept from a truncated
	// result. Must not exceed TruncateAt.
	PreviewLen int
	// HistoryCeiling is the turn count that triggers pruning.
	HistoryCeiling int
	// RetainRecent is the number of most recent turns kept on prune.
	RetainRecent int
}

// Manager applies the configured truncation and pruning rules. It is
// stateless apart from its configuration and safe for concurrent use.
type Manager struct {
	truncateAt     int
	previewLen     int
	historyCeiling int
	retainRecent   int
}

// anchorReserve is the number of anchor turns (system + originating user)
// the pruning ceiling must leave room for on top of the retained window.
const anchorReserve = 2

// New constructs a Manager with defaults matching the observed production
// tuning: 5,000 char truncation with a 4,800 char preview, 25 turn ceiling
// retaining the 20 most recent turns.
func New(optFns ...func(o *Options)) (*Manager, error) {
	opts := Options{
		TruncateAt:     5000,
		PreviewLen:     4800,
		HistoryCeiling: 25,
		RetainRecent:   20,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TruncateAt <= 0 || opts.PreviewLen <= 0 || opts.PreviewLen > opts.TruncateAt {
		return nil, fmt.Errorf("budget: preview length %d must be within truncation threshold %d", opts.PreviewLen, opts.TruncateAt)
	}
	// The ceiling must exceed the retained window plus the anchors, or a
	// prune could discard the result a step just produced before it is
	// consumed.
	if opts.HistoryCeiling <= opts.RetainRecent+anchorReserve {
		return nil, fmt.Errorf("budget: history ceiling %d must exceed retain-recent %d plus %d anchor turns", opts.HistoryCeiling, opts.RetainRecent, anchorReserve)
	}
	return &Manager{
		truncateAt:     opts.TruncateAt,
		previewLen:     opts.PreviewLen,
		historyCeiling: opts.HistoryCeiling,
		retainRecent:   opts.RetainRecent,
	}, nil
}

// TruncateAt returns the per-result threshold in characters.
func (m *Manager) TruncateAt() int { return m.truncateAt }

// TruncateResult bounds a single result string. Results at or under the
// threshold pass through unchanged; larger ones are replaced by the first
// PreviewLen characters plus an explicit "[Truncated: N total chars]"
// marker, never a silent drop.
func (m *Manager) TruncateResult(s string) string {
	if len(s) <= m.truncateAt {
		return s
	}
	return fmt.Sprintf("%s\n[Truncated: %d total chars]", s[:m.previewLen], len(s))
}

// TruncateRecords renders a record set bounded by the threshold. Oversized
// renderings keep the leading preview and report the total record count so
// the model knows how much it is not seeing.
func (m *Manager) TruncateRecords(records []core.Record) string {
	rendered := core.RenderRecords(records)
	if len(rendered) <= m.truncateAt {
		return rendered
	}
	return fmt.Sprintf("%s\n[Truncated: %d total records, %d total chars]",
		rendered[:m.previewLen], len(records), len(rendered))
}

// Prune evicts interior turns once the conversation exceeds the ceiling.
// Anchor turns (system and the originating user turn) are always retained
// along with the RetainRecent most recent turns; everything between is
// discarded as a hard, non-recoverable eviction. Anything worth keeping
// across a prune belongs in the staging store.
func (m *Manager) Prune(conv *core.Conversation) {
	turns := conv.Turns()
	if len(turns) <= m.historyCeiling {
		return
	}
	cut := len(turns) - m.retainRecent
	kept := make([]core.Turn, 0, m.retainRecent+anchorReserve)
	for _, t := range turns[:cut] {
		if t.Anchor() {
			kept = append(kept, t)
		}
	}
	kept = append(kept, turns[cut:]...)
	conv.Replace(kept)
}

// Apply runs truncation on the given result and pruning on the
// conversation, in that order. It is the single entry point the
// coordinator calls after appending a result and before a model call.
func (m *Manager) Apply(conv *core.Conversation, result string) string {
	bounded := m.TruncateResult(result)
	m.Prune(conv)
	return bounded
}
