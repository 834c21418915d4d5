package cli

import (
	"os"
	"path/filepath"
	"testing"

	"auton/internal/orchestrator"
	"auton/internal/plan"
	"auton/internal/session"
	"auton/internal/tools"
)

func writePlansFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plans.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestSession() *session.Session {
	return session.New(tools.NewRegistry(), nil, orchestrator.Config{})
}

func TestRunManualPlansCountsOnlyValidSubmissions(t *testing.T) {
	path := writePlansFile(t, `{"plans": [
		{"name": "good", "task_id": "p1", "subtasks": [{"id": "a", "description": "step one"}]},
		{"name": "bad", "task_id": "p2", "subtasks": [{"id": "a", "description": "step one", "dependencies": ["ghost"]}]}
	]}`)

	lim := plan.Limits{MaxSubtasks: 20, MaxParallel: 5}
	if n := runManualPlans(newTestSession(), path, nil, false, lim, nil); n != 1 {
		t.Errorf("submitted = %d, want 1 (invalid plan must be skipped)", n)
	}
}

func TestRunManualPlansMissingFileSubmitsNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	lim := plan.Limits{MaxSubtasks: 20, MaxParallel: 5}
	if n := runManualPlans(newTestSession(), path, nil, false, lim, nil); n != 0 {
		t.Errorf("submitted = %d, want 0", n)
	}
}

func TestRunManualPlansUnknownNameSubmitsNothing(t *testing.T) {
	path := writePlansFile(t, `{"plans": [
		{"name": "alpha", "task_id": "p1", "subtasks": [{"id": "a", "description": "step one"}]}
	]}`)

	lim := plan.Limits{MaxSubtasks: 20, MaxParallel: 5}
	if n := runManualPlans(newTestSession(), path, []string{"beta"}, false, lim, nil); n != 0 {
		t.Errorf("submitted = %d, want 0 for an unknown mission name", n)
	}
}
