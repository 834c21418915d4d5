package trace

import (
	"sync"
	"testing"
	"time"

	"auton/internal/orchestrator"
	"auton/internal/tools"
)

func TestTracerCollectsTaskMetrics(t *testing.T) {
	tr := New("m1")

	tr.TaskStarted("a", "first")
	tr.TaskFinished(orchestrator.TaskOutcome{
		TaskID:        "a",
		Status:        tools.StatusSuccess,
		ExecutionTime: 10 * time.Millisecond,
		CompletedAt:   time.Now(),
	})
	tr.TaskFinished(orchestrator.TaskOutcome{
		TaskID:        "b",
		Status:        tools.StatusError,
		Error:         "boom",
		ExecutionTime: 5 * time.Millisecond,
		CompletedAt:   time.Now(),
	})
	tr.RunFinished("partial-failure", nil)

	m := tr.Metrics()
	if m.MissionID != "m1" || m.Reason != "partial-failure" {
		t.Errorf("metrics header = %+v", m)
	}
	if len(m.Tasks) != 2 {
		t.Fatalf("got %d task metrics, want 2", len(m.Tasks))
	}
	if !m.Tasks[0].Success || m.Tasks[1].Success {
		t.Errorf("success flags wrong: %+v", m.Tasks)
	}
	if m.Tasks[1].Err != "boom" {
		t.Errorf("err = %q", m.Tasks[1].Err)
	}
	if m.End.Before(m.Start) {
		t.Error("end before start")
	}
}

func TestTracerIsSafeForConcurrentCallbacks(t *testing.T) {
	tr := New("m2")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TaskFinished(orchestrator.TaskOutcome{
				TaskID:      "x",
				Status:      tools.StatusSuccess,
				CompletedAt: time.Now(),
			})
		}()
	}
	wg.Wait()
	if got := len(tr.Metrics().Tasks); got != 20 {
		t.Errorf("recorded %d tasks, want 20", got)
	}
}
