package display

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"auton/internal/aggregate"
	"auton/internal/trace"
)

var (
	okColor   = color.New(color.FgGreen)
	errColor  = color.New(color.FgRed)
	headColor = color.New(color.FgCyan, color.Bold)
)

func FormatSummary(s aggregate.Summary) string {
	var sb strings.Builder
	sb.WriteString(headColor.Sprint("Execution summary:\n"))
	line := fmt.Sprintf("- Tasks: %d total, %d completed, %d failed (%.0f%% success)\n",
		s.TotalTasks, s.CompletedTasks, s.FailedTasks, s.SuccessRate*100)
	if s.FullSuccess() {
		sb.WriteString(okColor.Sprint(line))
	} else {
		sb.WriteString(errColor.Sprint(line))
	}
	sb.WriteString(fmt.Sprintf("- Execution time: %s\n", s.ExecutionTime.Round(0)))

	for _, r := range s.KeyResults {
		sb.WriteString(fmt.Sprintf("  %s %-14s %s\n", okColor.Sprint("ok "), r.TaskID, formatValueForDisplay(r.Result.Text(), maxParamValueLength)))
	}
	for _, f := range s.Failures {
		sb.WriteString(fmt.Sprintf("  %s %-14s %s\n", errColor.Sprint("err"), f.TaskID, f.Error))
	}
	return sb.String()
}

func FormatRunMetrics(m trace.RunMetrics) string {
	var sb strings.Builder
	sb.WriteString("Execution metrics:\n")
	sb.WriteString(fmt.Sprintf("- Total: %d ms  (%s)\n", m.DurationMs, m.Reason))
	for _, t := range m.Tasks {
		status := "ok"
		if !t.Success {
			status = "err"
		}
		sb.WriteString(fmt.Sprintf("    %-14s %5d ms  [%s]\n", t.TaskID, t.DurationMs, status))
	}
	return sb.String()
}
