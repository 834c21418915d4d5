package display

import (
	"fmt"
	"strings"

	"auton/internal/plan"
	"auton/internal/session"
)

const maxParamValueLength = 100

func FormatPlansCatalog(file string, plans []plan.NamedPlan) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d mission(s) in %s:\n", len(plans), file))
	for i, p := range plans {
		risky := session.IsPlanRisky(p.Plan)
		sb.WriteString(fmt.Sprintf("  %2d. %s  (subtasks=%d, groups=%d, risky=%v)\n",
			i+1, p.Name, len(p.Plan.Subtasks), len(p.Plan.ParallelGroups), risky))
	}
	return sb.String()
}

// stdout plan (truncated)
func FormatPlan(p *plan.ExecutionPlan) string {
	return formatPlanInternal(p, maxParamValueLength)
}

// full plan (no truncation), used for logs
func FormatPlanFull(p *plan.ExecutionPlan) string {
	return formatPlanInternal(p, -1)
}

func formatPlanInternal(p *plan.ExecutionPlan, limit int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Proposed execution plan (%s):\n", p.TaskID))
	sb.WriteString("--------------------------------------------------\n")

	for _, st := range p.Subtasks {
		tool := st.ToolName
		if tool == "" {
			tool = "reasoning"
		}
		sb.WriteString(fmt.Sprintf("  - Task: %s (%s, priority=%s)\n", st.ID, tool, st.Priority))
		sb.WriteString(fmt.Sprintf("    %s\n", st.Description))
		if len(st.Dependencies) > 0 {
			sb.WriteString(fmt.Sprintf("    Depends on: %s\n", strings.Join(st.Dependencies, ", ")))
		}
		if len(st.Parameters) > 0 {
			sb.WriteString("    Parameters:\n")
			for key, val := range st.Parameters {
				sb.WriteString(fmt.Sprintf("      %s: %s\n", key, formatValueForDisplay(val.Text(), limit)))
			}
		}
	}
	if len(p.ParallelGroups) > 0 {
		sb.WriteString("  Parallel groups:\n")
		for i, g := range p.ParallelGroups {
			sb.WriteString(fmt.Sprintf("    %d: [%s]\n", i+1, strings.Join(g, ", ")))
		}
	}
	sb.WriteString("--------------------------------------------------")
	return sb.String()
}

// Limit plan's stdout length (limit < 0 means no limit)
func formatValueForDisplay(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if limit >= 0 && len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
