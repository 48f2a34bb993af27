package core

import (
	"fmt"
	"sort"
	"strings"
)

// Text renders the record as a compact single-line string for inclusion in
// conversations and worker summaries. Field order is deterministic.
func (r Record) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] source=%s date=%s", r.ID, r.Source, r.Date.Format("2006-01-02"))
	if len(r.Fields) > 0 {
		keys := make([]string, 0, len(r.Fields))
		for k := range r.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, r.Fields[k])
		}
	}
	return b.String()
}

// RenderRecords joins records line-by-line. The caller is responsible for
// pushing the result through the budget manager before it reaches a model.
func RenderRecords(records []Record) string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.Text()
	}
	return strings.Join(lines, "\n")
}

// Sources extracts attribution pairs from records, deduplicated by ID.
func Sources(records []Record) []Source {
	seen := make(map[string]bool, len(records))
	out := make([]Source, 0, len(records))
	for _, r := range records {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, Source{ID: r.ID, Date: r.Date})
	}
	return out
}
