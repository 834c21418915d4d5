// Package respond synthesizes the final user-facing answer from a
// run summary. With a model available the summary is narrated; without
// one a deterministic report is produced from the same data.
package respond

import (
	"context"
	"fmt"
	"strings"

	"auton/internal/aggregate"
	"auton/internal/llm"
)

func buildResponsePrompt(goal string, s aggregate.Summary) string {
	var sb strings.Builder
	sb.WriteString("You are summarizing the outcome of an automated task for the user.\n")
	sb.WriteString("Write a concise, direct answer. Lead with the result; mention failures only if there were any. No JSON, no markdown headers.\n\n")
	sb.WriteString(fmt.Sprintf("User Goal: \"%s\"\n\n", goal))
	sb.WriteString(fmt.Sprintf("Tasks: %d total, %d completed, %d failed (%.0f%% success), total execution time %s.\n\n",
		s.TotalTasks, s.CompletedTasks, s.FailedTasks, s.SuccessRate*100, s.ExecutionTime.Round(0)))

	if len(s.KeyResults) > 0 {
		sb.WriteString("KEY RESULTS:\n")
		for _, r := range s.KeyResults {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", r.Description, r.Result.Text()))
		}
		sb.WriteString("\n")
	}
	if len(s.Failures) > 0 {
		sb.WriteString("FAILURES:\n")
		for _, f := range s.Failures {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", f.Description, f.Error))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Answer: ")
	return sb.String()
}

// BuildResponse narrates the summary. Model errors fall back to the
// deterministic report; this function never fails.
func BuildResponse(ctx context.Context, goal string, s aggregate.Summary) string {
	if llm.Ready() {
		if out, err := llm.Generate(ctx, buildResponsePrompt(goal, s), ""); err == nil {
			if trimmed := strings.TrimSpace(out); trimmed != "" {
				return trimmed
			}
		}
	}
	return FallbackResponse(goal, s)
}

// FallbackResponse renders the summary without a model.
func FallbackResponse(goal string, s aggregate.Summary) string {
	var sb strings.Builder
	switch {
	case s.TotalTasks == 0:
		sb.WriteString(fmt.Sprintf("No tasks were executed for: %s", goal))
	case s.FullSuccess():
		sb.WriteString(fmt.Sprintf("Completed all %d tasks for: %s", s.TotalTasks, goal))
	default:
		sb.WriteString(fmt.Sprintf("Completed %d of %d tasks for: %s", s.CompletedTasks, s.TotalTasks, goal))
	}

	for _, r := range s.KeyResults {
		if text := strings.TrimSpace(r.Result.Text()); text != "" {
			sb.WriteString(fmt.Sprintf("\n- %s: %s", r.Description, text))
		}
	}
	for _, f := range s.Failures {
		sb.WriteString(fmt.Sprintf("\n- FAILED %s: %s", f.Description, f.Error))
	}
	return sb.String()
}
