package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"auton/internal/plan"
	"auton/internal/tools"
)

type fakeTool struct {
	name string
	fn   func(ctx context.Context, params map[string]plan.Value) (plan.Value, error)
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return "test tool" }
func (t *fakeTool) Invoke(ctx context.Context, params map[string]plan.Value) (plan.Value, error) {
	return t.fn(ctx, params)
}

// recorder tracks task start/end instants across goroutines.
type recorder struct {
	mu     sync.Mutex
	order  []string
	starts map[string]time.Time
	ends   map[string]time.Time
}

func newRecorder() *recorder {
	return &recorder{starts: map[string]time.Time{}, ends: map[string]time.Time{}}
}

func (r *recorder) begin(id string) {
	r.mu.Lock()
	r.order = append(r.order, id)
	r.starts[id] = time.Now()
	r.mu.Unlock()
}

func (r *recorder) finish(id string) {
	r.mu.Lock()
	r.ends[id] = time.Now()
	r.mu.Unlock()
}

func sleepTool(rec *recorder, d time.Duration) tools.Tool {
	return &fakeTool{name: "sleep", fn: func(ctx context.Context, params map[string]plan.Value) (plan.Value, error) {
		id, _ := params["id"].AsString()
		rec.begin(id)
		defer rec.finish(id)
		select {
		case <-time.After(d):
			return plan.String("slept " + id), nil
		case <-ctx.Done():
			return plan.Value{}, ctx.Err()
		}
	}}
}

func failTool() tools.Tool {
	return &fakeTool{name: "fail", fn: func(ctx context.Context, params map[string]plan.Value) (plan.Value, error) {
		return plan.Value{}, errors.New("deliberate failure")
	}}
}

func sleepTask(id string, deps ...string) *plan.SubTask {
	return &plan.SubTask{
		ID:           id,
		Description:  id,
		ToolName:     "sleep",
		Parameters:   map[string]plan.Value{"id": plan.String(id)},
		Dependencies: deps,
		Status:       plan.StatusPending,
	}
}

func failTask(id string, deps ...string) *plan.SubTask {
	return &plan.SubTask{
		ID:           id,
		Description:  id,
		ToolName:     "fail",
		Dependencies: deps,
		Status:       plan.StatusPending,
	}
}

func testRegistry(rec *recorder, sleep time.Duration) *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(sleepTool(rec, sleep))
	reg.Register(failTool())
	return reg
}

func TestExecuteLinearChainRunsInDependencyOrder(t *testing.T) {
	rec := newRecorder()
	p := &plan.ExecutionPlan{
		TaskID:   "linear",
		Subtasks: []*plan.SubTask{sleepTask("a"), sleepTask("b", "a"), sleepTask("c", "b")},
	}

	o := New(testRegistry(rec, 10*time.Millisecond), nil, Config{})
	outcomes, err := o.Execute(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if rec.order[i] != id {
			t.Fatalf("execution order = %v, want %v", rec.order, want)
		}
	}
	// b may not start before a ended, and so on down the chain.
	for i := 1; i < len(want); i++ {
		if rec.starts[want[i]].Before(rec.ends[want[i-1]]) {
			t.Errorf("%s started before %s finished", want[i], want[i-1])
		}
	}
	for _, st := range p.Subtasks {
		if st.Status != plan.StatusCompleted {
			t.Errorf("%s status = %s, want completed", st.ID, st.Status)
		}
	}
}

func TestExecuteParallelGroupOverlaps(t *testing.T) {
	rec := newRecorder()
	p := &plan.ExecutionPlan{
		TaskID:         "par",
		Subtasks:       []*plan.SubTask{sleepTask("a"), sleepTask("b")},
		ParallelGroups: [][]string{{"a", "b"}},
	}

	o := New(testRegistry(rec, 50*time.Millisecond), nil, Config{})
	if _, err := o.Execute(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	// Both must have been in flight at the same time.
	aStart, bStart := rec.starts["a"], rec.starts["b"]
	aEnd, bEnd := rec.ends["a"], rec.ends["b"]
	if !aStart.Before(bEnd) || !bStart.Before(aEnd) {
		t.Errorf("group members did not overlap: a=[%v %v] b=[%v %v]", aStart, aEnd, bStart, bEnd)
	}
}

func TestExecuteEachTaskRunsExactlyOnce(t *testing.T) {
	var mu sync.Mutex
	counts := map[string]int{}
	reg := tools.NewRegistry()
	reg.Register(&fakeTool{name: "count", fn: func(ctx context.Context, params map[string]plan.Value) (plan.Value, error) {
		id, _ := params["id"].AsString()
		mu.Lock()
		counts[id]++
		mu.Unlock()
		return plan.String(id), nil
	}})

	mk := func(id string, deps ...string) *plan.SubTask {
		return &plan.SubTask{
			ID: id, Description: id, ToolName: "count",
			Parameters:   map[string]plan.Value{"id": plan.String(id)},
			Dependencies: deps, Status: plan.StatusPending,
		}
	}
	p := &plan.ExecutionPlan{
		Subtasks:       []*plan.SubTask{mk("a"), mk("b", "a"), mk("c", "a"), mk("d", "b", "c")},
		ParallelGroups: [][]string{{"b", "c"}},
	}

	o := New(reg, nil, Config{})
	if _, err := o.Execute(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		if counts[id] != 1 {
			t.Errorf("task %s ran %d times", id, counts[id])
		}
	}
}

func TestExecuteFailedDependencyAbortsStuckGraph(t *testing.T) {
	rec := newRecorder()
	p := &plan.ExecutionPlan{
		Subtasks: []*plan.SubTask{failTask("a"), sleepTask("b", "a")},
	}

	o := New(testRegistry(rec, time.Millisecond), nil, Config{})
	outcomes, err := o.Execute(context.Background(), p)

	var aborted *RunAbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("expected RunAbortedError, got %v", err)
	}
	if aborted.Reason != AbortStuckGraph {
		t.Errorf("reason = %s, want %s", aborted.Reason, AbortStuckGraph)
	}
	if len(aborted.Uncovered) != 1 || aborted.Uncovered[0] != "b" {
		t.Errorf("uncovered = %v, want [b]", aborted.Uncovered)
	}
	if p.Subtask("b").Status != plan.StatusCancelled {
		t.Errorf("b status = %s, want cancelled", p.Subtask("b").Status)
	}
	if out, ok := outcomes["a"]; !ok || out.Status != tools.StatusError {
		t.Errorf("a outcome = %+v", out)
	}
}

func TestExecuteFailureRatioAbort(t *testing.T) {
	rec := newRecorder()
	// First cycle runs a..d and fails 3 of 5; e is still pending behind
	// d, so the breaker trips with ready work remaining.
	p := &plan.ExecutionPlan{
		Subtasks: []*plan.SubTask{
			failTask("a"), failTask("b"), failTask("c"), sleepTask("d"), sleepTask("e", "d"),
		},
	}

	o := New(testRegistry(rec, time.Millisecond), nil, Config{})
	outcomes, err := o.Execute(context.Background(), p)

	var aborted *RunAbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("expected RunAbortedError, got %v", err)
	}
	if aborted.Reason != AbortFailureRatio {
		t.Errorf("reason = %s, want %s", aborted.Reason, AbortFailureRatio)
	}
	if len(aborted.Uncovered) != 1 || aborted.Uncovered[0] != "e" {
		t.Errorf("uncovered = %v, want [e]", aborted.Uncovered)
	}
	if p.Subtask("e").Status != plan.StatusCancelled {
		t.Errorf("e status = %s, want cancelled", p.Subtask("e").Status)
	}
	if len(outcomes) != 4 {
		t.Errorf("got %d outcomes, want 4", len(outcomes))
	}
}

func TestExecuteFullCoverageWithMostlyFailuresIsPartialFailure(t *testing.T) {
	rec := newRecorder()
	p := &plan.ExecutionPlan{
		Subtasks: []*plan.SubTask{failTask("a"), failTask("b"), sleepTask("c")},
	}

	o := New(testRegistry(rec, time.Millisecond), nil, Config{})
	outcomes, err := o.Execute(context.Background(), p)
	if err != nil {
		t.Fatalf("full coverage must not abort, got: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	if out := outcomes["c"]; out.Status != tools.StatusSuccess {
		t.Errorf("c outcome = %+v", out)
	}
	for _, id := range []string{"a", "b"} {
		if out := outcomes[id]; out.Status != tools.StatusError {
			t.Errorf("%s outcome = %+v", id, out)
		}
	}
}

func TestExecutePartialFailureIsNotAnError(t *testing.T) {
	rec := newRecorder()
	p := &plan.ExecutionPlan{
		Subtasks: []*plan.SubTask{
			sleepTask("a"), sleepTask("b"), sleepTask("c"), sleepTask("d"), failTask("e"),
		},
	}

	o := New(testRegistry(rec, time.Millisecond), nil, Config{})
	outcomes, err := o.Execute(context.Background(), p)
	if err != nil {
		t.Fatalf("one failure out of five must not abort: %v", err)
	}
	failures := 0
	for _, out := range outcomes {
		if out.Status == tools.StatusError {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
}

func TestExecuteFiveTasksOneTimeoutIsPartialFailure(t *testing.T) {
	rec := newRecorder()
	reg := testRegistry(rec, time.Millisecond)
	reg.Register(&fakeTool{name: "slow", fn: func(ctx context.Context, params map[string]plan.Value) (plan.Value, error) {
		select {
		case <-time.After(300 * time.Millisecond):
			return plan.String("too late"), nil
		case <-ctx.Done():
			return plan.Value{}, ctx.Err()
		}
	}})

	p := &plan.ExecutionPlan{
		Subtasks: []*plan.SubTask{
			sleepTask("a"), sleepTask("b"), sleepTask("c"), sleepTask("d"),
			{ID: "e", Description: "e", ToolName: "slow", Status: plan.StatusPending},
		},
	}

	o := New(reg, nil, Config{TaskTimeout: 30 * time.Millisecond})
	outcomes, err := o.Execute(context.Background(), p)
	if err != nil {
		t.Fatalf("a 0.2 failure ratio must not abort: %v", err)
	}
	succeeded := 0
	for _, out := range outcomes {
		if out.Status == tools.StatusSuccess {
			succeeded++
		}
	}
	if succeeded != 4 {
		t.Errorf("succeeded = %d, want 4", succeeded)
	}
	if out := outcomes["e"]; !contains(out.Error, "timed out") {
		t.Errorf("e outcome = %+v", out)
	}
}

func TestExecuteTaskTimeout(t *testing.T) {
	rec := newRecorder()
	p := &plan.ExecutionPlan{
		Subtasks: []*plan.SubTask{sleepTask("slow")},
	}

	o := New(testRegistry(rec, 500*time.Millisecond), nil, Config{TaskTimeout: 30 * time.Millisecond, FailureRatio: 0.99})
	outcomes, err := o.Execute(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	out := outcomes["slow"]
	if out.Status != tools.StatusError {
		t.Fatalf("expected a timeout failure, got %+v", out)
	}
	if want := "timed out after"; !contains(out.Error, want) {
		t.Errorf("error %q does not mention %q", out.Error, want)
	}
	if p.Subtask("slow").Status != plan.StatusFailed {
		t.Errorf("status = %s, want failed", p.Subtask("slow").Status)
	}
}

func TestExecuteContextCancellation(t *testing.T) {
	rec := newRecorder()
	p := &plan.ExecutionPlan{
		Subtasks: []*plan.SubTask{sleepTask("a"), sleepTask("b", "a")},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	o := New(testRegistry(rec, 100*time.Millisecond), nil, Config{})
	_, err := o.Execute(ctx, p)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if p.Subtask("b").Status != plan.StatusCancelled {
		t.Errorf("b status = %s, want cancelled", p.Subtask("b").Status)
	}
}

func TestExecuteNoToolNoInference(t *testing.T) {
	p := &plan.ExecutionPlan{
		Subtasks: []*plan.SubTask{{ID: "think", Description: "reason", Status: plan.StatusPending}},
	}
	o := New(tools.NewRegistry(), nil, Config{FailureRatio: 0.99})
	outcomes, err := o.Execute(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if out := outcomes["think"]; out.Status != tools.StatusError || !contains(out.Error, "no inference backend") {
		t.Errorf("outcome = %+v", out)
	}
}

func TestDispatchGroups(t *testing.T) {
	testCases := []struct {
		name        string
		ready       []string
		hints       [][]string
		maxParallel int
		want        [][]string
	}{
		{
			name:        "No hints yields singletons",
			ready:       []string{"a", "b"},
			maxParallel: 5,
			want:        [][]string{{"a"}, {"b"}},
		},
		{
			name:        "Hint groups ready members",
			ready:       []string{"a", "b", "c"},
			hints:       [][]string{{"a", "b"}},
			maxParallel: 5,
			want:        [][]string{{"a", "b"}, {"c"}},
		},
		{
			name:        "Hint member not ready is skipped",
			ready:       []string{"a"},
			hints:       [][]string{{"a", "b"}},
			maxParallel: 5,
			want:        [][]string{{"a"}},
		},
		{
			name:        "Oversized hint is chunked",
			ready:       []string{"a", "b", "c", "d", "e"},
			hints:       [][]string{{"a", "b", "c", "d", "e"}},
			maxParallel: 2,
			want:        [][]string{{"a", "b"}, {"c", "d"}, {"e"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := dispatchGroups(tc.ready, tc.hints, tc.maxParallel)
			if len(got) != len(tc.want) {
				t.Fatalf("groups = %v, want %v", got, tc.want)
			}
			for i := range got {
				if len(got[i]) != len(tc.want[i]) {
					t.Fatalf("groups = %v, want %v", got, tc.want)
				}
				for j := range got[i] {
					if got[i][j] != tc.want[i][j] {
						t.Fatalf("groups = %v, want %v", got, tc.want)
					}
				}
			}
		})
	}
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }
