// Package session supervises the mission lifecycle: queued missions
// run one at a time, each attempt executes the whole plan, and failed
// attempts retry with a fresh plan state up to the retry budget.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"auton/internal/aggregate"
	"auton/internal/logger"
	"auton/internal/orchestrator"
	"auton/internal/plan"
	"auton/internal/planner"
	"auton/internal/respond"
	"auton/internal/tools"
	"auton/internal/trace"
)

const defaultMaxRetries = 3

// Session owns the mission queue and the single currently running
// mission. One session serves one interactive process.
type Session struct {
	registry *tools.Registry
	infer    orchestrator.InferenceFunc
	cfg      orchestrator.Config

	queue   chan *Mission
	Results chan MissionResult

	curMu      sync.Mutex
	curMission *Mission
	curCancel  context.CancelFunc
}

func New(registry *tools.Registry, infer orchestrator.InferenceFunc, cfg orchestrator.Config) *Session {
	return &Session{
		registry: registry,
		infer:    infer,
		cfg:      cfg,
		queue:    make(chan *Mission, 100),
		Results:  make(chan MissionResult, 100),
	}
}

// Start launches the supervisor goroutine. Missions run strictly one
// at a time in submission order.
func (s *Session) Start() {
	go func() {
		for mission := range s.queue {
			logger.Log.Printf("[session] starting mission '%s' (ID: %s)", mission.OriginalGoal, mission.ID)
			mission.State = StatusRunning
			s.runMission(mission)
		}
	}()
}

// Submit queues a mission. Call only after the plan is validated and,
// if risky, confirmed.
func (s *Session) Submit(goal string, p *plan.ExecutionPlan, history []planner.ConversationTurn) string {
	id := uuid.New().String()[:8]
	s.queue <- &Mission{
		ID:           id,
		OriginalGoal: goal,
		State:        StatusPending,
		MaxRetries:   defaultMaxRetries,
		History:      history,
		Plan:         p,
	}
	return id
}

// CancelMission cancels the running mission if its id matches.
func (s *Session) CancelMission(id string) (bool, error) {
	s.curMu.Lock()
	defer s.curMu.Unlock()

	if s.curMission == nil || s.curMission.State != StatusRunning {
		return false, fmt.Errorf("no mission is currently running")
	}
	if id != "" && !strings.EqualFold(s.curMission.ID, id) {
		return false, fmt.Errorf("mission %s is not running (current running: %s)", id, s.curMission.ID)
	}
	if s.curCancel == nil {
		return false, fmt.Errorf("internal error: cancel function not set")
	}
	s.curCancel()
	return true, nil
}

// CancelMostRecent cancels the running mission, returning its id.
func (s *Session) CancelMostRecent() (string, error) {
	s.curMu.Lock()
	defer s.curMu.Unlock()

	if s.curMission == nil || s.curMission.State != StatusRunning {
		return "", fmt.Errorf("no mission is currently running")
	}
	if s.curCancel == nil {
		return "", fmt.Errorf("internal error: cancel function not set")
	}
	id := s.curMission.ID
	s.curCancel()
	return id, nil
}

func (s *Session) runMission(m *Mission) {
	var finalPlan string
	if m.Plan != nil {
		if b, err := json.Marshal(m.Plan); err == nil {
			finalPlan = string(b)
		}
	}

	missionCtx, cancel := context.WithCancel(context.Background())
	s.curMu.Lock()
	s.curMission = m
	s.curCancel = cancel
	s.curMu.Unlock()
	defer func() {
		cancel()
		s.curMu.Lock()
		if s.curMission != nil && s.curMission.ID == m.ID {
			s.curMission = nil
			s.curCancel = nil
		}
		s.curMu.Unlock()
	}()

	var (
		summary  aggregate.Summary
		finalErr error
	)

	for m.CurrentAttempt < m.MaxRetries {
		m.CurrentAttempt++
		if m.CurrentAttempt > 1 {
			m.Plan.Reset()
		}

		orch := orchestrator.New(s.registry, s.infer, s.cfg)
		orch.Attach(trace.New(m.ID))
		outcomes, execErr := orch.Execute(missionCtx, m.Plan)
		summary = aggregate.Summarize(m.Plan, outcomes)
		finalErr = execErr

		if execErr == nil {
			if summary.FullSuccess() {
				logger.Log.Printf("[session] mission '%s' SUCCEEDED (ID: %s)", m.OriginalGoal, m.ID)
				m.State = StatusSucceeded
			} else {
				logger.Log.Printf("[session] mission '%s' finished with partial failure (ID: %s, %d/%d completed)",
					m.OriginalGoal, m.ID, summary.CompletedTasks, summary.TotalTasks)
				m.State = StatusPartial
			}
			break
		}

		// No retry if cancelled.
		if errors.Is(execErr, context.Canceled) {
			logger.Log.Printf("[session] mission '%s' CANCELLED (ID: %s)", m.OriginalGoal, m.ID)
			m.State = StatusCancelled
			break
		}

		logger.Log.Printf("[session] mission '%s' FAILED on attempt %d/%d (ID: %s): %v",
			m.OriginalGoal, m.CurrentAttempt, m.MaxRetries, m.ID, execErr)

		m.History = append(m.History, planner.ConversationTurn{
			UserGoal:       m.OriginalGoal,
			AssistantPlan:  finalPlan,
			ExecutionError: execErr.Error(),
		})

		if m.CurrentAttempt >= m.MaxRetries {
			m.State = StatusFailed
			break
		}

		time.Sleep(1 * time.Second) // naive backoff
	}

	result := MissionResult{
		MissionID:    m.ID,
		OriginalGoal: m.OriginalGoal,
		State:        m.State,
		Attempts:     m.CurrentAttempt,
		FinalPlan:    finalPlan,
		Summary:      &summary,
	}
	if finalErr != nil {
		result.Error = finalErr.Error()
	}
	result.FinalResponse = respond.BuildResponse(missionCtx, m.OriginalGoal, summary)
	s.Results <- result
}

// IsPlanRisky reports whether a plan contains a tool call that should
// be confirmed before execution.
func IsPlanRisky(p *plan.ExecutionPlan) bool {
	for _, st := range p.Subtasks {
		switch st.ToolName {
		case "code_execution":
			return true
		case "file_operations":
			if op, ok := st.Parameters["operation"]; ok {
				if o, _ := op.AsString(); o == "delete" || o == "write" {
					return true
				}
			}
		}
	}
	return false
}
