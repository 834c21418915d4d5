package orchestrator

import (
	"regexp"
	"strings"

	"auton/internal/plan"
)

// Placeholders reference prior outputs as {subtask_id.result} or, for
// map results, {subtask_id.result.key}.
var resultRef = regexp.MustCompile(`\{([A-Za-z0-9_\-]+)\.result(?:\.([A-Za-z0-9_\-]+))?\}`)

// ResolveParameters substitutes result placeholders in parameter
// values against the outcomes accumulated so far. A string that is
// exactly one placeholder is replaced by the referenced value itself,
// keeping its type; placeholders embedded in longer strings are
// interpolated as text. Unknown references resolve to the empty
// string so a sloppy plan degrades instead of crashing.
func ResolveParameters(params map[string]plan.Value, prior map[string]TaskOutcome) map[string]plan.Value {
	if len(params) == 0 {
		return params
	}
	resolved := make(map[string]plan.Value, len(params))
	for key, val := range params {
		resolved[key] = resolveValue(val, prior)
	}
	return resolved
}

func resolveValue(v plan.Value, prior map[string]TaskOutcome) plan.Value {
	switch v.Kind() {
	case plan.KindString:
		s, _ := v.AsString()
		return resolveString(s, prior)
	case plan.KindList:
		items, _ := v.AsList()
		out := make([]plan.Value, 0, len(items))
		for _, item := range items {
			out = append(out, resolveValue(item, prior))
		}
		return plan.List(out...)
	case plan.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]plan.Value, len(m))
		for k, item := range m {
			out[k] = resolveValue(item, prior)
		}
		return plan.Map(out)
	default:
		return v
	}
}

func resolveString(s string, prior map[string]TaskOutcome) plan.Value {
	if m := resultRef.FindStringSubmatch(s); m != nil && m[0] == s {
		// Exact placeholder: substitute the value, not its rendering.
		return lookupRef(m[1], m[2], prior)
	}
	out := resultRef.ReplaceAllStringFunc(s, func(match string) string {
		m := resultRef.FindStringSubmatch(match)
		if m == nil {
			return ""
		}
		return lookupRef(m[1], m[2], prior).Text()
	})
	return plan.String(out)
}

func lookupRef(taskID, key string, prior map[string]TaskOutcome) plan.Value {
	out, ok := prior[taskID]
	if !ok {
		return plan.String("")
	}
	if key == "" {
		return out.Result
	}
	if m, isMap := out.Result.AsMap(); isMap {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return plan.String("")
}

// ReferencedTasks lists the subtask ids mentioned by placeholders in
// params, in first-appearance order. The planner uses this to repair
// plans whose parameters reference tasks they forgot to declare as
// dependencies.
func ReferencedTasks(params map[string]plan.Value) []string {
	seen := make(map[string]struct{})
	var out []string
	var walk func(v plan.Value)
	walk = func(v plan.Value) {
		switch v.Kind() {
		case plan.KindString:
			s, _ := v.AsString()
			if !strings.Contains(s, "{") {
				return
			}
			for _, m := range resultRef.FindAllStringSubmatch(s, -1) {
				if _, dup := seen[m[1]]; !dup {
					seen[m[1]] = struct{}{}
					out = append(out, m[1])
				}
			}
		case plan.KindList:
			items, _ := v.AsList()
			for _, item := range items {
				walk(item)
			}
		case plan.KindMap:
			mm, _ := v.AsMap()
			for _, item := range mm {
				walk(item)
			}
		}
	}
	for _, v := range params {
		walk(v)
	}
	return out
}
