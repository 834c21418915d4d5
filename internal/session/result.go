package session

import "auton/internal/aggregate"

// MissionResult is the terminal record pushed to the result channel
// once a mission stops retrying.
type MissionResult struct {
	MissionID     string             `json:"mission_id"`
	OriginalGoal  string             `json:"original_goal"`
	State         string             `json:"state"`
	Attempts      int                `json:"attempts"`
	FinalPlan     string             `json:"final_plan"`
	Summary       *aggregate.Summary `json:"summary,omitempty"`
	FinalResponse string             `json:"final_response,omitempty"`
	Error         string             `json:"error,omitempty"`
}
