// Package orchestrator executes a validated plan: it computes the
// ready set each cycle, dispatches ready subtasks sequentially or in
// bounded parallel groups, applies per-task timeouts, accumulates
// outcomes under partial failure, and decides when the run halts.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"auton/internal/plan"
	"auton/internal/tools"
)

const (
	defaultMaxParallel  = 5
	defaultTaskTimeout  = 2 * time.Minute
	defaultFailureRatio = 0.5
)

// Config bounds a single run.
type Config struct {
	MaxParallel  int           // concurrency cap within a dispatch group
	TaskTimeout  time.Duration // per-task execution budget
	FailureRatio float64       // abort once failed/total exceeds this
}

func (c Config) withDefaults() Config {
	if c.MaxParallel <= 0 {
		c.MaxParallel = defaultMaxParallel
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = defaultTaskTimeout
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = defaultFailureRatio
	}
	return c
}

// AbortReason says why a run ended before full coverage.
type AbortReason string

const (
	AbortStuckGraph   AbortReason = "stuck-graph"
	AbortFailureRatio AbortReason = "failure-ratio-exceeded"
)

// RunAbortedError reports an aborted run. The partial outcomes are
// returned alongside it by Execute.
type RunAbortedError struct {
	Reason    AbortReason
	Uncovered []string // ids that never reached a terminal state
}

func (e *RunAbortedError) Error() string {
	if len(e.Uncovered) > 0 {
		return fmt.Sprintf("run aborted (%s): %d tasks never ran: %s",
			e.Reason, len(e.Uncovered), strings.Join(e.Uncovered, ", "))
	}
	return fmt.Sprintf("run aborted (%s)", e.Reason)
}

// InferenceFunc resolves a subtask that names no tool. It receives
// the subtask with parameters already resolved against prior results.
type InferenceFunc func(ctx context.Context, st *plan.SubTask, params map[string]plan.Value) (plan.Value, error)

// Orchestrator owns one plan for the duration of one run. It is the
// sole writer of subtask run state; concurrent runs on the same plan
// are undefined.
type Orchestrator struct {
	registry *tools.Registry
	infer    InferenceFunc
	obs      Observer
	cfg      Config
}

func New(registry *tools.Registry, infer InferenceFunc, cfg Config) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		infer:    infer,
		cfg:      cfg.withDefaults(),
	}
}

// Attach installs an observer. Must be called before Execute.
func (o *Orchestrator) Attach(obs Observer) { o.obs = obs }

// Execute validates nothing; callers run plan.Validate first. It
// returns the outcome map for every subtask that reached a terminal
// state. The error is non-nil only for an aborted run (RunAbortedError)
// or a cancelled context; ordinary task failures are data in the map.
func (o *Orchestrator) Execute(ctx context.Context, p *plan.ExecutionPlan) (map[string]TaskOutcome, error) {
	completed := make(map[string]struct{})
	failed := make(map[string]struct{})
	outcomes := make(map[string]TaskOutcome, len(p.Subtasks))
	total := len(p.Subtasks)

	for len(completed)+len(failed) < total {
		if err := ctx.Err(); err != nil {
			o.cancelPending(p)
			o.notifyRunFinished("cancelled", err)
			return outcomes, err
		}

		ready := p.ReadyTasks(completed)
		if len(ready) == 0 {
			// Incomplete coverage with nothing ready: a failed
			// dependency (or a bug upstream) left the graph stuck.
			uncovered := o.cancelPending(p)
			err := &RunAbortedError{Reason: AbortStuckGraph, Uncovered: uncovered}
			o.notifyRunFinished(string(AbortStuckGraph), err)
			return outcomes, err
		}

		for _, group := range dispatchGroups(ready, p.ParallelGroups, o.cfg.MaxParallel) {
			if len(group) == 1 {
				out := o.executeTask(ctx, p, group[0], outcomes)
				record(out, outcomes, completed, failed)
				continue
			}
			for _, out := range o.executeGroup(ctx, p, group, outcomes) {
				record(out, outcomes, completed, failed)
			}
		}

		o.notifyProgress(Progress{
			Total:     total,
			Completed: len(completed),
			Failed:    len(failed),
		})

		// The circuit breaker stops remaining work; a run that just
		// reached full coverage falls through to the summary below
		// even when most of it failed.
		if len(completed)+len(failed) < total && float64(len(failed))/float64(total) > o.cfg.FailureRatio {
			uncovered := o.cancelPending(p)
			err := &RunAbortedError{Reason: AbortFailureRatio, Uncovered: uncovered}
			o.notifyRunFinished(string(AbortFailureRatio), err)
			return outcomes, err
		}
	}

	if len(failed) > 0 {
		o.notifyRunFinished("partial-failure", nil)
	} else {
		o.notifyRunFinished("success", nil)
	}
	return outcomes, nil
}

func record(out TaskOutcome, outcomes map[string]TaskOutcome, completed, failed map[string]struct{}) {
	outcomes[out.TaskID] = out
	if out.Status == tools.StatusSuccess {
		completed[out.TaskID] = struct{}{}
	} else {
		failed[out.TaskID] = struct{}{}
	}
}

// executeGroup starts every member together and waits for all of
// them. One member's failure never cancels its siblings, so the
// errgroup context is deliberately derived from a plain context and
// member errors are folded into outcomes instead of being returned.
func (o *Orchestrator) executeGroup(ctx context.Context, p *plan.ExecutionPlan, group []string, prior map[string]TaskOutcome) []TaskOutcome {
	// Members of one group are simultaneously ready, so none depends
	// on another; a snapshot taken here is complete for all of them.
	snapshot := make(map[string]TaskOutcome, len(prior))
	for k, v := range prior {
		snapshot[k] = v
	}

	var (
		mu      sync.Mutex
		results = make([]TaskOutcome, 0, len(group))
	)
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.MaxParallel)
	for _, id := range group {
		g.Go(func() error {
			out := o.executeTask(ctx, p, id, snapshot)
			mu.Lock()
			results = append(results, out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// executeTask runs one subtask to a terminal state. It transitions
// the subtask to executing exactly once, applies the per-task
// timeout, and converts every failure mode into an error outcome.
func (o *Orchestrator) executeTask(ctx context.Context, p *plan.ExecutionPlan, id string, prior map[string]TaskOutcome) (out TaskOutcome) {
	out = TaskOutcome{TaskID: id, Status: tools.StatusError}
	st := p.Subtask(id)
	if st == nil {
		out.Error = fmt.Sprintf("subtask %q not found in plan", id)
		return out
	}

	defer func() {
		if rec := recover(); rec != nil {
			out.Status = tools.StatusError
			out.Error = fmt.Sprintf("panic in task %s: %v", id, rec)
			st.Status = plan.StatusFailed
			st.Error = out.Error
		}
		o.notifyTaskFinished(out)
	}()

	st.Status = plan.StatusExecuting
	o.notifyTaskStarted(id, st.Description)

	params := ResolveParameters(st.Parameters, prior)

	tctx, cancel := context.WithTimeout(ctx, o.cfg.TaskTimeout)
	defer cancel()

	start := time.Now()
	var result plan.Value
	var err error
	switch {
	case st.ToolName != "":
		env := o.registry.Execute(tctx, st.ToolName, params)
		if env.Status != tools.StatusSuccess {
			err = errors.New(env.Error)
		} else {
			result = env.Result
		}
	case o.infer != nil:
		result, err = o.infer(tctx, st, params)
	default:
		err = fmt.Errorf("task %s names no tool and no inference backend is configured", id)
	}
	out.ExecutionTime = time.Since(start)
	out.CompletedAt = time.Now()

	if err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("task %s timed out after %s", id, o.cfg.TaskTimeout)
	}

	if err != nil {
		st.Status = plan.StatusFailed
		st.Error = err.Error()
		out.Error = err.Error()
		return out
	}

	st.Status = plan.StatusCompleted
	st.Result = result
	st.CompletedAt = out.CompletedAt
	out.Status = tools.StatusSuccess
	out.Result = result
	return out
}

// cancelPending marks every still-pending subtask cancelled and
// returns their ids, sorted for stable reporting.
func (o *Orchestrator) cancelPending(p *plan.ExecutionPlan) []string {
	var ids []string
	for _, st := range p.Subtasks {
		if st.Status == plan.StatusPending {
			st.Status = plan.StatusCancelled
			ids = append(ids, st.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// dispatchGroups partitions the ready set. Hinted groups are honored
// for whichever members are ready, chunked to maxParallel; every
// ready id no hint covers becomes a singleton group so progress is
// guaranteed even for unhinted work.
func dispatchGroups(ready []string, hints [][]string, maxParallel int) [][]string {
	remaining := make(map[string]struct{}, len(ready))
	for _, id := range ready {
		remaining[id] = struct{}{}
	}

	var groups [][]string
	for _, hint := range hints {
		var avail []string
		for _, id := range hint {
			if _, ok := remaining[id]; ok {
				avail = append(avail, id)
			}
		}
		if len(avail) == 0 {
			continue
		}
		for start := 0; start < len(avail); start += maxParallel {
			end := start + maxParallel
			if end > len(avail) {
				end = len(avail)
			}
			chunk := avail[start:end]
			groups = append(groups, chunk)
			for _, id := range chunk {
				delete(remaining, id)
			}
		}
	}

	for _, id := range ready {
		if _, ok := remaining[id]; ok {
			groups = append(groups, []string{id})
		}
	}
	return groups
}
