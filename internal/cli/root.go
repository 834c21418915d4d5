package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"auton/internal/config"
	"auton/internal/display"
	"auton/internal/listener"
	"auton/internal/logger"
	"auton/internal/orchestrator"
	"auton/internal/plan"
	"auton/internal/planner"
	"auton/internal/session"
)

const maxCliHistory = 3

var planFile string

func consumeResults(s *session.Session, cliHistory *[]planner.ConversationTurn, mu *sync.Mutex) {
	for result := range s.Results {
		mu.Lock()
		newTurn := planner.ConversationTurn{
			UserGoal:      result.OriginalGoal,
			AssistantPlan: result.FinalPlan,
		}
		if result.Error != "" {
			newTurn.ExecutionError = result.Error
		}
		*cliHistory = append(*cliHistory, newTurn)
		if len(*cliHistory) > maxCliHistory {
			*cliHistory = (*cliHistory)[1:]
		}
		mu.Unlock()

		// Print mission completion without breaking current input
		printResult(result)
	}
}

func printResult(result session.MissionResult) {
	listener.AsyncPrintln(fmt.Sprintf("[Mission %s %s after %d attempt(s)]", result.MissionID, result.State, result.Attempts))
	if result.Summary != nil && result.Summary.TotalTasks > 0 {
		listener.AsyncPrintln(display.FormatSummary(*result.Summary))
	}
	if result.FinalResponse != "" {
		listener.AsyncPrintln(result.FinalResponse)
	}
}

// runManualPlans submits the missions found in a plans file and
// returns how many were actually queued.
func runManualPlans(s *session.Session, path string, names []string, confirm bool, lim plan.Limits, history []planner.ConversationTurn) int {
	plans, err := plan.LoadFromFile(path)
	if err != nil {
		listener.AsyncPrintln(fmt.Sprintf("[Manual] %v", err))
		return 0
	}
	if len(plans) == 0 {
		listener.AsyncPrintln("[Manual] No missions found in file")
		return 0
	}

	// Filter by names if provided (order preserved)
	if len(names) > 0 {
		selected, missing := plan.SelectByNames(plans, names)
		if len(missing) > 0 {
			listener.AsyncPrintln(fmt.Sprintf("[Manual] Missing missions: %v", missing))
		}
		plans = selected
	}

	// Show catalog if confirmation requested
	if confirm {
		listener.AsyncPrintln(display.FormatPlansCatalog(path, plans))
		listener.AsyncPrintln(fmt.Sprintf("About to run %d mission(s) from %s.", len(plans), path))
		ans := listener.GetConfirmation("Proceed? [y/n] > ")
		if ans != "y" && ans != "yes" {
			listener.AsyncPrintln("[Manual] Cancelled.")
			return 0
		}
	}

	// Validate and submit
	submitted := 0
	for _, p := range plans {
		if err := plan.Validate(p.Plan, lim); err != nil {
			listener.AsyncPrintln(fmt.Sprintf("[Manual] Invalid mission %q: %v", p.Name, err))
			continue
		}
		missionID := s.Submit(p.Name, p.Plan, history)
		listener.AsyncPrintln(fmt.Sprintf("[Manual] Submitted mission %s (%s)", missionID, p.Name))
		submitted++
	}
	if submitted == 0 {
		listener.AsyncPrintln("[Manual] No valid missions to run.")
	}
	return submitted
}

func handleCancel(s *session.Session, intent *planner.GoalIntent) {
	if intent.TargetIsPrevious || intent.TargetMissionID == "" {
		id, err := s.CancelMostRecent()
		if err != nil {
			listener.AsyncPrintln(fmt.Sprintf("[Cancel] %v", err))
			return
		}
		listener.AsyncPrintln(fmt.Sprintf("[Cancel] Mission %s cancelled", id))
		return
	}
	if _, err := s.CancelMission(intent.TargetMissionID); err != nil {
		listener.AsyncPrintln(fmt.Sprintf("[Cancel] %v", err))
		return
	}
	listener.AsyncPrintln(fmt.Sprintf("[Cancel] Mission %s cancelled", intent.TargetMissionID))
}

func newRootCmd(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "An autonomous task execution agent",
		Long:  `An agent that decomposes goals into dependency-ordered subtasks and executes them in the background, in parallel where the plan allows.`,
		Run: func(cmd *cobra.Command, args []string) {
			runInteractive(cfg)
		},
	}
	cmd.Flags().StringVar(&planFile, "plan-file", "", "run the execution plans in this JSON file and exit")
	return cmd
}

func runInteractive(cfg config.Config) {
	lim := plan.Limits{MaxSubtasks: cfg.MaxSubtasks, MaxParallel: cfg.MaxParallel}
	orchCfg := orchestrator.Config{
		MaxParallel:  cfg.MaxParallel,
		TaskTimeout:  cfg.TaskTimeout,
		FailureRatio: cfg.FailureRatio,
	}

	registry := buildRegistry(cfg)
	sess := session.New(registry, buildInfer(), orchCfg)
	sess.Start()

	if err := listener.Init(); err != nil {
		fmt.Println("Failed to init terminal input:", err)
		os.Exit(1)
	}
	defer listener.Close()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nGoodbye!")
		os.Exit(0)
	}()

	// Batch mode: run the file's missions, report each, and exit
	// without entering the interactive loop.
	if planFile != "" {
		submitted := runManualPlans(sess, planFile, nil, false, lim, nil)
		for i := 0; i < submitted; i++ {
			printResult(<-sess.Results)
		}
		return
	}

	var cliHistory []planner.ConversationTurn
	var historyMutex sync.Mutex
	go consumeResults(sess, &cliHistory, &historyMutex)

	listener.AsyncPrintln("Hello! How can I help you today? (type 'exit' or press Ctrl+C to quit)")

	for {
		inputText := listener.GetInput()
		if strings.EqualFold(strings.TrimSpace(inputText), "exit") {
			fmt.Println("Goodbye!")
			break
		}
		if strings.TrimSpace(inputText) == "" {
			continue
		}

		// Copy LLM context safely
		historyMutex.Lock()
		missionHistory := make([]planner.ConversationTurn, len(cliHistory))
		copy(missionHistory, cliHistory)
		historyMutex.Unlock()

		intentCtx, cancelIntent := context.WithTimeout(context.Background(), 20*time.Second)
		intent, err := planner.AnalyzeIntent(intentCtx, inputText)
		cancelIntent()
		if err != nil {
			listener.AsyncPrintln(fmt.Sprintf("[Intent analysis FAILED] %v", err))
			continue
		}

		if intent.Cancel {
			handleCancel(sess, intent)
			continue
		}

		if intent.RunManualPlans && strings.TrimSpace(intent.ManualPlansPath) != "" {
			runManualPlans(sess, intent.ManualPlansPath, intent.ManualPlanNames, intent.RequiresConfirmation, lim, missionHistory)
			continue
		}

		planID := uuid.New().String()[:8]
		listener.AsyncPrintln(fmt.Sprintf("Generating plan for the above query, plan's ID: %s ...", planID))

		planCtx, cancelPlan := context.WithTimeout(context.Background(), 20*time.Second)
		p, err := planner.GeneratePlan(planCtx, registry, missionHistory, inputText, lim)
		cancelPlan()
		if err != nil {
			listener.AsyncPrintln(fmt.Sprintf("[Plan generation FAILED] %v", err))
			continue
		}

		// Log full plan
		logger.Log.Printf("Plan %s for goal %q (FULL):\n%s",
			planID, inputText, display.FormatPlanFull(p))

		// Preview plan when confirmation was requested or the plan is risky
		needsConfirm := intent.RequiresConfirmation || session.IsPlanRisky(p)
		if needsConfirm {
			listener.AsyncPrintln(display.FormatPlan(p))

			var approved bool
			for {
				ans := listener.GetConfirmation("Do you want to execute this plan? [y/n] > ")
				if ans == "y" || ans == "yes" {
					approved = true
					break
				} else if ans == "n" || ans == "no" {
					approved = false
					break
				}
				listener.AsyncPrintln("Invalid input. Please enter 'y' or 'n'.")
			}

			if !approved {
				listener.AsyncPrintln(fmt.Sprintf("[Plan %s REJECTED]", planID))
				continue
			}
		}

		// Start mission in the background
		missionID := sess.Submit(inputText, p, missionHistory)

		if b, err := json.Marshal(p); err == nil {
			historyMutex.Lock()
			cliHistory = append(cliHistory, planner.ConversationTurn{
				UserGoal:      inputText,
				AssistantPlan: string(b),
			})
			if len(cliHistory) > maxCliHistory {
				cliHistory = cliHistory[1:]
			}
			historyMutex.Unlock()
		}

		listener.AsyncPrintln(fmt.Sprintf("[Plan %s ACCEPTED] Mission %s started", planID, missionID))
	}
}

func Execute(cfg config.Config) {
	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
