// Package trace records execution events: every event is logged, and
// per-task timings are collected into run metrics.
package trace

import (
	"sync"
	"time"

	"auton/internal/logger"
	"auton/internal/orchestrator"
	"auton/internal/tools"
)

type TaskMetrics struct {
	TaskID     string    `json:"task_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Err        string    `json:"err,omitempty"`
}

type RunMetrics struct {
	MissionID  string        `json:"mission_id"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	DurationMs int64         `json:"duration_ms"`
	Reason     string        `json:"reason"`
	Tasks      []TaskMetrics `json:"tasks"`
}

// Tracer implements the orchestrator's observer contract. Callbacks
// arrive from task goroutines, so all mutation is under the mutex.
type Tracer struct {
	mu sync.Mutex
	m  RunMetrics
}

func New(missionID string) *Tracer {
	return &Tracer{m: RunMetrics{MissionID: missionID, Start: time.Now()}}
}

func (t *Tracer) TaskStarted(taskID, description string) {
	logger.Log.Printf("[trace %s] task %s started: %s", t.m.MissionID, taskID, description)
}

func (t *Tracer) TaskFinished(out orchestrator.TaskOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tm := TaskMetrics{
		TaskID:     out.TaskID,
		Start:      out.CompletedAt.Add(-out.ExecutionTime),
		End:        out.CompletedAt,
		DurationMs: out.ExecutionTime.Milliseconds(),
		Success:    out.Status == tools.StatusSuccess,
		Err:        out.Error,
	}
	t.m.Tasks = append(t.m.Tasks, tm)
	if tm.Success {
		logger.Log.Printf("[trace %s] task %s completed in %dms", t.m.MissionID, out.TaskID, tm.DurationMs)
	} else {
		logger.Log.Printf("[trace %s] task %s failed in %dms: %s", t.m.MissionID, out.TaskID, tm.DurationMs, out.Error)
	}
}

func (t *Tracer) CycleProgress(p orchestrator.Progress) {
	logger.Log.Printf("[trace %s] progress: %d completed, %d failed of %d", t.m.MissionID, p.Completed, p.Failed, p.Total)
}

func (t *Tracer) RunFinished(reason string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m.End = time.Now()
	t.m.DurationMs = t.m.End.Sub(t.m.Start).Milliseconds()
	t.m.Reason = reason
	if err != nil {
		logger.Log.Printf("[trace %s] run finished (%s) after %dms: %v", t.m.MissionID, reason, t.m.DurationMs, err)
		return
	}
	logger.Log.Printf("[trace %s] run finished (%s) after %dms", t.m.MissionID, reason, t.m.DurationMs)
}

// Metrics returns a snapshot of what has been recorded so far.
func (t *Tracer) Metrics() RunMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.m
	out.Tasks = append([]TaskMetrics(nil), t.m.Tasks...)
	return out
}
