package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"auton/internal/llm"
)

// GoalIntent is the control-channel reading of a user input, decided
// before any plan is generated. Complexity and SuggestedTools are
// advisory hints carried into planning; the routing fields decide
// whether planning happens at all.
type GoalIntent struct {
	RequiresConfirmation bool     `json:"requires_confirmation"`
	RunManualPlans       bool     `json:"run_manual_plans"`
	ManualPlansPath      string   `json:"manual_plans_path"`
	ManualPlanNames      []string `json:"manual_plan_names"`
	Cancel               bool     `json:"cancel"`
	TargetMissionID      string   `json:"target_mission_id"`
	TargetIsPrevious     bool     `json:"target_is_previous"`
	Complexity           string   `json:"complexity"`
	SuggestedTools       []string `json:"suggested_tools"`
}

func buildIntentPrompt(userGoal string) string {
	var sb strings.Builder
	sb.WriteString("You are an expert user intent analyzer. Respond ONLY with this JSON (no extra text):\n")
	sb.WriteString("{\"requires_confirmation\": <bool>, \"run_manual_plans\": <bool>, \"manual_plans_path\": \"<string or empty>\", \"manual_plan_names\": [<zero or more strings in order>], \"cancel\": <bool>, \"target_mission_id\": \"<string or empty>\", \"target_is_previous\": <bool>, \"complexity\": \"<simple|moderate|complex>\", \"suggested_tools\": [<zero or more tool names>]}\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("- requires_confirmation: true ONLY if the user asks to see/review/confirm/approve/preview before execution OR uses verbs like 'show', 'list', 'preview'.\n")
	sb.WriteString("- run_manual_plans: true if the user asks to execute (or show/preview) plans/missions from a local .json file.\n")
	sb.WriteString("- manual_plans_path: extract the local .json path verbatim (quoted or unquoted). If none, use empty string.\n")
	sb.WriteString("- manual_plan_names: if the user names specific missions, return them in order; otherwise an empty array. If empty and run_manual_plans is true, default behavior is to run ALL missions in the file.\n")
	sb.WriteString("- cancel: true if the user asks to stop/abort/kill/cancel a mission or plan (treat plan == mission).\n")
	sb.WriteString("- target_mission_id: if the user mentions a specific mission/plan ID, put it here (otherwise empty).\n")
	sb.WriteString("- target_is_previous: true if the user says 'previous', 'last', or 'most recent' mission/plan (otherwise false).\n")
	sb.WriteString("- Only consider local files ending with .json. Ignore URLs.\n")
	sb.WriteString("- complexity: how involved the goal is (simple = one step, complex = many dependent steps).\n")
	sb.WriteString("- suggested_tools: names of tools likely needed, if obvious; otherwise an empty array.\n\n")

	sb.WriteString("Examples:\n")
	sb.WriteString("User: \"show me the plans from examples/demo_plans.json\"\n")
	sb.WriteString("Assistant: {\"requires_confirmation\": true, \"run_manual_plans\": true, \"manual_plans_path\": \"examples/demo_plans.json\", \"manual_plan_names\": []}\n\n")
	sb.WriteString("User: \"cancel the last mission\"\n")
	sb.WriteString("Assistant: {\"requires_confirmation\": false, \"run_manual_plans\": false, \"manual_plans_path\": \"\", \"manual_plan_names\": [], \"cancel\": true, \"target_mission_id\": \"\", \"target_is_previous\": true}\n\n")

	sb.WriteString("User Goal: \"")
	sb.WriteString(userGoal)
	sb.WriteString("\"\nAssistant JSON response: ")
	return sb.String()
}

// AnalyzeIntent classifies the user input. Without a model backend it
// returns the zero intent so plain goals still flow into planning.
func AnalyzeIntent(ctx context.Context, userGoal string) (*GoalIntent, error) {
	if !llm.Ready() {
		return &GoalIntent{}, nil
	}

	raw, err := llm.GenerateJSON(ctx, buildIntentPrompt(userGoal), "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate intent from LLM: %w", err)
	}

	var intent GoalIntent
	if err := json.Unmarshal([]byte(extractJSON(raw)), &intent); err != nil {
		return nil, fmt.Errorf("error parsing generated intent JSON: %v\nRaw Response: %s", err, raw)
	}

	if !intent.RunManualPlans {
		intent.ManualPlansPath = ""
		intent.ManualPlanNames = nil
	}
	if !intent.Cancel {
		intent.TargetMissionID = ""
		intent.TargetIsPrevious = false
	}
	return &intent, nil
}
