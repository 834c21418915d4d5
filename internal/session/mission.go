package session

import (
	"auton/internal/plan"
	"auton/internal/planner"
)

const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusPartial   = "PARTIAL"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// Mission is one confirmed goal queued for execution. An attempt is a
// full run of the plan; the plan is reset between attempts.
type Mission struct {
	ID             string
	OriginalGoal   string
	State          string
	CurrentAttempt int
	MaxRetries     int
	History        []planner.ConversationTurn
	Plan           *plan.ExecutionPlan
}
