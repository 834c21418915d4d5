package plan

import "time"

// Status is the per-subtask state machine. A subtask moves
// pending -> executing -> {completed|failed}; cancelled is reachable
// from pending when the run aborts before the task starts.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPlanning  Status = "planning"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Priority is advisory only. The scheduler derives order from the
// dependency graph, never from priority.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityMedium   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "medium"
	}
}

// PriorityFromInt maps the planner's 1..4 scale onto a Priority,
// defaulting to medium for anything out of range.
func PriorityFromInt(n int) Priority {
	if n < int(PriorityLow) || n > int(PriorityCritical) {
		return PriorityMedium
	}
	return Priority(n)
}

// SubTask is one schedulable unit of work within a plan.
//
// Result and Error are set exactly once, when the task reaches a
// terminal state, and are never both set. During a run the
// orchestrator is the sole writer of Status, Result, Error and
// CompletedAt.
type SubTask struct {
	ID           string           `json:"id"`
	Description  string           `json:"description"`
	ToolName     string           `json:"tool_name,omitempty"`
	Parameters   map[string]Value `json:"parameters,omitempty"`
	Dependencies []string         `json:"dependencies,omitempty"`
	Status       Status           `json:"status"`
	Priority     Priority         `json:"priority"`
	Result       Value            `json:"result,omitempty"`
	Error        string           `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	CompletedAt  time.Time        `json:"completed_at,omitzero"`
}

// ResourceRequirements is advisory metadata for reporting only.
type ResourceRequirements struct {
	CPU     string `json:"cpu"`
	Memory  string `json:"memory"`
	Network string `json:"network"`
}

// ExecutionPlan is the DAG of subtasks for one user request. It is
// immutable after validation except for the per-subtask run state the
// orchestrator owns. ExecutionOrder is a suggested linearization and
// ParallelGroups are hints; the scheduler re-derives eligibility from
// the live dependency state each cycle.
type ExecutionPlan struct {
	TaskID               string               `json:"task_id"`
	Subtasks             []*SubTask           `json:"subtasks"`
	ExecutionOrder       []string             `json:"execution_order,omitempty"`
	ParallelGroups       [][]string           `json:"parallel_groups,omitempty"`
	EstimatedDuration    int                  `json:"estimated_duration,omitempty"`
	ResourceRequirements ResourceRequirements `json:"resource_requirements,omitzero"`
	CreatedAt            time.Time            `json:"created_at"`
}

// Subtask returns the subtask with the given id, or nil.
func (p *ExecutionPlan) Subtask(id string) *SubTask {
	for _, st := range p.Subtasks {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// ReadyTasks returns the ids of subtasks whose status is pending and
// whose dependencies are all in completed. A dependency that failed
// never appears in completed, so its dependents are blocked for good.
func (p *ExecutionPlan) ReadyTasks(completed map[string]struct{}) []string {
	var ready []string
	for _, st := range p.Subtasks {
		if st.Status != StatusPending {
			continue
		}
		if _, done := completed[st.ID]; done {
			continue
		}
		ok := true
		for _, dep := range st.Dependencies {
			if _, done := completed[dep]; !done {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, st.ID)
		}
	}
	return ready
}

// Reset returns every subtask to pending and clears run state, so the
// same plan can be executed again by a fresh run.
func (p *ExecutionPlan) Reset() {
	for _, st := range p.Subtasks {
		st.Status = StatusPending
		st.Result = Value{}
		st.Error = ""
		st.CompletedAt = time.Time{}
	}
}
