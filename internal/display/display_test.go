package display

import (
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"auton/internal/aggregate"
	"auton/internal/plan"
	"auton/internal/trace"
)

func init() {
	color.NoColor = true
}

func TestFormatPlanTruncatesLongValues(t *testing.T) {
	long := strings.Repeat("x", 300)
	p := &plan.ExecutionPlan{
		TaskID: "t1",
		Subtasks: []*plan.SubTask{
			{ID: "a", Description: "write a lot", ToolName: "file_operations", Parameters: map[string]plan.Value{
				"content": plan.String(long),
			}},
		},
	}

	out := FormatPlan(p)
	if strings.Contains(out, long) {
		t.Error("long value was not truncated")
	}
	if !strings.Contains(out, "...") {
		t.Error("truncation marker missing")
	}

	full := FormatPlanFull(p)
	if !strings.Contains(full, long) {
		t.Error("full format must not truncate")
	}
}

func TestFormatPlanShowsStructure(t *testing.T) {
	p := &plan.ExecutionPlan{
		TaskID: "t1",
		Subtasks: []*plan.SubTask{
			{ID: "a", Description: "first step", Priority: plan.PriorityHigh},
			{ID: "b", Description: "second step", ToolName: "web_search", Dependencies: []string{"a"}},
		},
		ParallelGroups: [][]string{{"a", "b"}},
	}

	out := FormatPlan(p)
	for _, want := range []string{"t1", "first step", "reasoning", "web_search", "Depends on: a", "[a, b]", "priority=high"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatPlanEscapesNewlines(t *testing.T) {
	p := &plan.ExecutionPlan{
		Subtasks: []*plan.SubTask{
			{ID: "a", Description: "multi", Parameters: map[string]plan.Value{
				"text": plan.String("line one\nline two"),
			}},
		},
	}
	out := FormatPlan(p)
	if !strings.Contains(out, `line one\nline two`) {
		t.Errorf("newline not escaped:\n%s", out)
	}
}

func TestFormatSummary(t *testing.T) {
	s := aggregate.Summary{
		TotalTasks:     2,
		CompletedTasks: 1,
		FailedTasks:    1,
		SuccessRate:    0.5,
		ExecutionTime:  120 * time.Millisecond,
		KeyResults:     []aggregate.TaskSuccess{{TaskID: "a", Result: plan.String("fine")}},
		Failures:       []aggregate.TaskFailure{{TaskID: "b", Error: "broke"}},
	}

	out := FormatSummary(s)
	for _, want := range []string{"2 total", "1 completed", "1 failed", "50% success", "fine", "broke"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestFormatRunMetrics(t *testing.T) {
	m := trace.RunMetrics{
		MissionID:  "m1",
		DurationMs: 42,
		Reason:     "success",
		Tasks: []trace.TaskMetrics{
			{TaskID: "a", DurationMs: 30, Success: true},
			{TaskID: "b", DurationMs: 12, Success: false, Err: "x"},
		},
	}
	out := FormatRunMetrics(m)
	for _, want := range []string{"42 ms", "success", "[ok]", "[err]"} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q:\n%s", want, out)
		}
	}
}
