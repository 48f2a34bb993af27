package planner

import (
	"errors"
	"strings"

	"github.com/hupe1980/askmesh/core"
	"github.com/tidwall/gjson"
)

// ErrNoPlan indicates the planning call produced no parseable task list.
// It is internal: the coordinator degrades to simple handling instead of
// surfacing it to the user.
var ErrNoPlan = errors.New("planner: no parseable plan in model output")

// parsePlan extracts the task list from loose model text. The plan may sit
// in a fenced code block or inline prose; the first JSON object carrying a
// tasks array wins. Unknown capabilities degrade to direct so a sloppy plan
// still executes.
func parsePlan(text string) ([]core.Task, error) {
	blob := extractJSON(text)
	if blob == "" {
		return nil, ErrNoPlan
	}
	list := gjson.Get(blob, "tasks")
	if !list.IsArray() {
		return nil, ErrNoPlan
	}

	var tasks []core.Task
	list.ForEach(func(_, item gjson.Result) bool {
		desc := strings.TrimSpace(item.Get("description").String())
		if desc == "" {
			return true
		}
		capability := core.Capability(strings.ToLower(item.Get("capability").String()))
		if !capability.Valid() {
			capability = core.CapabilityDirect
		}
		tasks = append(tasks, core.Task{Description: desc, Capability: capability})
		return true
	})
	if len(tasks) == 0 {
		return nil, ErrNoPlan
	}
	return tasks, nil
}

// extractJSON pulls the first JSON object out of surrounding prose or a
// ```json fence. Returns "" when nothing valid is found.
func extractJSON(text string) string {
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			if blob := strings.TrimSpace(rest[:j]); gjson.Valid(blob) {
				return blob
			}
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	if blob := text[start : end+1]; gjson.Valid(blob) {
		return blob
	}
	return ""
}
