// Package aggregate folds a run's terminal outcomes into the summary
// handed to response synthesis. Pure and deterministic: the same
// inputs always produce the same summary.
package aggregate

import (
	"time"

	"auton/internal/orchestrator"
	"auton/internal/plan"
	"auton/internal/tools"
)

// TaskSuccess is one completed subtask's contribution.
type TaskSuccess struct {
	TaskID        string        `json:"task_id"`
	Description   string        `json:"description"`
	Result        plan.Value    `json:"result"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// TaskFailure is one failed subtask's record.
type TaskFailure struct {
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	Error       string `json:"error"`
}

// Summary is the aggregate view of one execution run.
type Summary struct {
	TotalTasks     int           `json:"total_tasks"`
	CompletedTasks int           `json:"completed_tasks"`
	FailedTasks    int           `json:"failed_tasks"`
	SuccessRate    float64       `json:"success_rate"`
	ExecutionTime  time.Duration `json:"execution_time"`
	KeyResults     []TaskSuccess `json:"key_results"`
	Failures       []TaskFailure `json:"failure_analysis"`
}

// FullSuccess reports whether every subtask completed.
func (s Summary) FullSuccess() bool {
	return s.FailedTasks == 0 && s.CompletedTasks == s.TotalTasks
}

// Summarize folds the outcome map over the plan. Successes and
// failures are ordered by the plan's subtask order, so the summary is
// stable regardless of completion interleaving. An empty plan yields
// a success rate of 0 by definition.
func Summarize(p *plan.ExecutionPlan, outcomes map[string]orchestrator.TaskOutcome) Summary {
	s := Summary{TotalTasks: len(p.Subtasks)}

	for _, st := range p.Subtasks {
		out, ok := outcomes[st.ID]
		if !ok {
			continue
		}
		s.ExecutionTime += out.ExecutionTime
		if out.Status == tools.StatusSuccess {
			s.CompletedTasks++
			s.KeyResults = append(s.KeyResults, TaskSuccess{
				TaskID:        st.ID,
				Description:   st.Description,
				Result:        out.Result,
				ExecutionTime: out.ExecutionTime,
			})
		} else {
			s.FailedTasks++
			s.Failures = append(s.Failures, TaskFailure{
				TaskID:      st.ID,
				Description: st.Description,
				Error:       out.Error,
			})
		}
	}

	if s.TotalTasks > 0 {
		s.SuccessRate = float64(s.CompletedTasks) / float64(s.TotalTasks)
	}
	return s
}
