package orchestrator

import (
	"time"

	"auton/internal/plan"
)

// Progress is the per-cycle snapshot emitted after every dispatch
// cycle. Completed+Failed is monotonically non-decreasing across a
// run; that is the only contract consumers may rely on.
type Progress struct {
	Total     int
	Completed int
	Failed    int
	InFlight  int
}

// TaskOutcome is the envelope recorded for every subtask that reached
// a terminal state during a run.
type TaskOutcome struct {
	TaskID        string        `json:"task_id"`
	Status        string        `json:"status"` // "success" or "error"
	Result        plan.Value    `json:"result,omitempty"`
	Error         string        `json:"error,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
	CompletedAt   time.Time     `json:"completed_at"`
}

// Observer receives structured execution events. It is optional; the
// orchestrator behaves identically with or without one attached, and
// all callbacks run on the dispatching goroutine or a task goroutine,
// so implementations must be safe for concurrent use.
type Observer interface {
	TaskStarted(taskID, description string)
	TaskFinished(outcome TaskOutcome)
	CycleProgress(p Progress)
	RunFinished(reason string, err error)
}

func (o *Orchestrator) notifyTaskStarted(id, desc string) {
	if o.obs != nil {
		o.obs.TaskStarted(id, desc)
	}
}

func (o *Orchestrator) notifyTaskFinished(out TaskOutcome) {
	if o.obs != nil {
		o.obs.TaskFinished(out)
	}
}

func (o *Orchestrator) notifyProgress(p Progress) {
	if o.obs != nil {
		o.obs.CycleProgress(p)
	}
}

func (o *Orchestrator) notifyRunFinished(reason string, err error) {
	if o.obs != nil {
		o.obs.RunFinished(reason, err)
	}
}
