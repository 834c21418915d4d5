package plan

import "fmt"

// Limits bounds the structural size of a plan.
type Limits struct {
	MaxSubtasks int
	MaxParallel int
}

// DefaultLimits matches the planner's decomposition budget.
var DefaultLimits = Limits{MaxSubtasks: 20, MaxParallel: 5}

// PlanErrorKind classifies the first structural violation found.
type PlanErrorKind string

const (
	ErrSizeLimitExceeded  PlanErrorKind = "size-limit-exceeded"
	ErrDanglingDependency PlanErrorKind = "dangling-dependency"
	ErrCycleDetected      PlanErrorKind = "cycle-detected"
	ErrDanglingOrderRef   PlanErrorKind = "dangling-order-reference"
	ErrParallelGroup      PlanErrorKind = "invalid-parallel-group"
)

// PlanError reports a structurally unusable plan. It is fatal to the
// run; no task executes after one is raised.
type PlanError struct {
	Kind   PlanErrorKind
	TaskID string
	Detail string
}

func (e *PlanError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("invalid plan (%s, task %s): %s", e.Kind, e.TaskID, e.Detail)
	}
	return fmt.Sprintf("invalid plan (%s): %s", e.Kind, e.Detail)
}

// Validate checks a plan once, eagerly, before any task executes.
// Partial execution followed by a structural failure would leave side
// effects half-applied, so the whole plan is rejected up front.
func Validate(p *ExecutionPlan, lim Limits) error {
	if lim.MaxSubtasks <= 0 {
		lim.MaxSubtasks = DefaultLimits.MaxSubtasks
	}
	if lim.MaxParallel <= 0 {
		lim.MaxParallel = DefaultLimits.MaxParallel
	}

	if len(p.Subtasks) > lim.MaxSubtasks {
		return &PlanError{
			Kind:   ErrSizeLimitExceeded,
			Detail: fmt.Sprintf("%d subtasks exceeds the maximum of %d", len(p.Subtasks), lim.MaxSubtasks),
		}
	}

	ids := make(map[string]struct{}, len(p.Subtasks))
	for _, st := range p.Subtasks {
		ids[st.ID] = struct{}{}
	}

	for _, st := range p.Subtasks {
		for _, dep := range st.Dependencies {
			if _, ok := ids[dep]; !ok {
				return &PlanError{
					Kind:   ErrDanglingDependency,
					TaskID: st.ID,
					Detail: fmt.Sprintf("depends on unknown subtask %q", dep),
				}
			}
		}
	}

	for _, st := range p.Subtasks {
		if on := findCycle(p, st.ID); on != "" {
			return &PlanError{
				Kind:   ErrCycleDetected,
				TaskID: on,
				Detail: fmt.Sprintf("dependency cycle through subtask %q", on),
			}
		}
	}

	for _, id := range p.ExecutionOrder {
		if _, ok := ids[id]; !ok {
			return &PlanError{
				Kind:   ErrDanglingOrderRef,
				Detail: fmt.Sprintf("execution order references unknown subtask %q", id),
			}
		}
	}

	for i, group := range p.ParallelGroups {
		if len(group) > lim.MaxParallel {
			return &PlanError{
				Kind:   ErrParallelGroup,
				Detail: fmt.Sprintf("parallel group %d has %d tasks, maximum is %d", i+1, len(group), lim.MaxParallel),
			}
		}
		for _, id := range group {
			if _, ok := ids[id]; !ok {
				return &PlanError{
					Kind:   ErrParallelGroup,
					Detail: fmt.Sprintf("parallel group %d references unknown subtask %q", i+1, id),
				}
			}
		}
	}

	return nil
}

// findCycle runs a depth-first traversal from start keeping the
// current recursion path; revisiting a node on the path is a cycle.
// Returns an id on the cycle, or "".
func findCycle(p *ExecutionPlan, start string) string {
	visited := map[string]struct{}{}
	path := map[string]struct{}{}

	var dfs func(id string) string
	dfs = func(id string) string {
		if _, onPath := path[id]; onPath {
			return id
		}
		if _, seen := visited[id]; seen {
			return ""
		}
		visited[id] = struct{}{}
		path[id] = struct{}{}
		defer delete(path, id)

		if st := p.Subtask(id); st != nil {
			for _, dep := range st.Dependencies {
				if on := dfs(dep); on != "" {
					return on
				}
			}
		}
		return ""
	}
	return dfs(start)
}

// EstimateResources derives the advisory cpu/memory/network levels
// from plan shape. Reporting only; nothing schedules off these.
func EstimateResources(p *ExecutionPlan) ResourceRequirements {
	req := ResourceRequirements{CPU: "low", Memory: "low", Network: "low"}

	tools := map[string]struct{}{}
	for _, st := range p.Subtasks {
		if st.ToolName != "" {
			tools[st.ToolName] = struct{}{}
		}
	}

	switch {
	case p.EstimatedDuration > 600 || len(tools) > 5:
		req.CPU = "high"
	case p.EstimatedDuration > 300 || len(tools) > 3:
		req.CPU = "medium"
	}

	switch {
	case len(p.ParallelGroups) > 4 || len(p.Subtasks) > 15:
		req.Memory = "high"
	case len(p.ParallelGroups) > 2 || len(p.Subtasks) > 10:
		req.Memory = "medium"
	}

	for _, st := range p.Subtasks {
		switch st.ToolName {
		case "web_search", "data_analysis", "file_operations":
			req.Network = "medium"
		}
	}

	return req
}
