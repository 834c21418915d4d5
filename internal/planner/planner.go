// Package planner turns a user goal into a validated execution plan.
// The model proposes the decomposition; everything structural is
// checked and repaired locally before a plan is accepted.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"

	"auton/internal/llm"
	"auton/internal/orchestrator"
	"auton/internal/plan"
	"auton/internal/tools"
)

// ConversationTurn is one prior goal/outcome pair carried as planning
// context for follow-up requests.
type ConversationTurn struct {
	UserGoal       string
	AssistantPlan  string
	ExecutionError string
}

func buildPlanPrompt(registry *tools.Registry, history []ConversationTurn, userGoal string, lim plan.Limits) string {
	var sb strings.Builder

	sb.WriteString("You are an expert AI workflow planner. Decompose the user's goal into a STRICT JSON execution plan.\n")
	sb.WriteString("Respond ONLY with JSON. No extra text.\n\n")

	if len(history) > 0 {
		sb.WriteString("CONVERSATION HISTORY (context):\n")
		for _, turn := range history {
			sb.WriteString(fmt.Sprintf("User Goal: \"%s\"\n", turn.UserGoal))
			sb.WriteString(fmt.Sprintf("Previous Assistant Plan: %s\n", turn.AssistantPlan))
			if strings.TrimSpace(turn.ExecutionError) != "" {
				sb.WriteString(fmt.Sprintf("Previous Execution Error: %s\n", turn.ExecutionError))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("OUTPUT JSON SCHEMA:\n")
	sb.WriteString("{\"task_id\": \"<string>\", \"subtasks\": [{\"id\": \"<slug>\", \"description\": \"<string>\", \"tool_name\": \"<tool or empty>\", \"parameters\": {}, \"dependencies\": [<ids>], \"priority\": <1-4>}], \"execution_order\": [<ids>], \"parallel_groups\": [[<ids>], ...], \"estimated_duration\": <seconds>}\n\n")

	sb.WriteString("SEMANTICS:\n")
	sb.WriteString("- Subtasks form a dependency DAG; a subtask runs only after every id in its 'dependencies' has completed.\n")
	sb.WriteString("- Subtasks listed together in a 'parallel_groups' entry MAY run concurrently once all are eligible.\n")
	sb.WriteString("- A parameter may reference an earlier output as '{subtask_id.result}' or '{subtask_id.result.key}'.\n")
	sb.WriteString("- Priority is 1 (low) to 4 (critical) and is advisory only.\n\n")

	sb.WriteString(registry.PromptPart())
	sb.WriteString("\n")

	sb.WriteString("HARD RULES:\n")
	sb.WriteString(fmt.Sprintf("1) At most %d subtasks; at most %d ids per parallel group.\n", lim.MaxSubtasks, lim.MaxParallel))
	sb.WriteString("2) Every id in 'dependencies', 'execution_order' and 'parallel_groups' MUST name a subtask defined in this plan.\n")
	sb.WriteString("3) NO dependency cycles. If A references '{B.result}', A must list B in its dependencies.\n")
	sb.WriteString("4) NEVER place two subtasks in the same parallel group when one depends on the other.\n")
	sb.WriteString("5) Leave 'tool_name' empty only for reasoning steps that need no tool.\n")
	sb.WriteString("6) Subtask ids must be short, unique, lowercase slugs.\n\n")

	sb.WriteString("Generate the plan now for this goal:\n")
	sb.WriteString(fmt.Sprintf("User Goal: \"%s\"\n", userGoal))
	sb.WriteString("Assistant: ")

	return sb.String()
}

// GeneratePlan asks the model for a plan, repairs what it can, and
// validates the result. If the model output is unusable the fallback
// single-subtask plan is returned instead of an error, so a mission
// can always start.
func GeneratePlan(ctx context.Context, registry *tools.Registry, history []ConversationTurn, userGoal string, lim plan.Limits) (*plan.ExecutionPlan, error) {
	if !llm.Ready() {
		return FallbackPlan(userGoal), nil
	}

	prompt := buildPlanPrompt(registry, history, userGoal, lim)
	raw, err := llm.GenerateJSON(ctx, prompt, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan from LLM: %w", err)
	}

	p, perr := decodePlan(raw)
	if perr != nil {
		return FallbackPlan(userGoal), nil
	}

	normalize(p, userGoal)
	repairDependencies(p)

	if err := plan.Validate(p, lim); err != nil {
		return nil, fmt.Errorf("generated plan invalid: %w", err)
	}
	p.ResourceRequirements = plan.EstimateResources(p)
	return p, nil
}

// decodePlan parses model output that may be fenced, prefixed with
// prose, or slightly malformed. Repair is attempted once before
// giving up.
func decodePlan(raw string) (*plan.ExecutionPlan, error) {
	body := extractJSON(raw)
	p, err := plan.FromWireJSON([]byte(body))
	if err == nil {
		return p, nil
	}
	repaired, rerr := jsonrepair.JSONRepair(body)
	if rerr != nil {
		return nil, err
	}
	return plan.FromWireJSON([]byte(repaired))
}

// extractJSON strips markdown fences and leading/trailing prose,
// keeping the outermost {...} document.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// normalize fills in the ids the model tends to omit.
func normalize(p *plan.ExecutionPlan, userGoal string) {
	if strings.TrimSpace(p.TaskID) == "" {
		p.TaskID = "plan_" + uuid.New().String()[:8]
	}
	for i, st := range p.Subtasks {
		if strings.TrimSpace(st.ID) == "" {
			st.ID = fmt.Sprintf("task_%d", i+1)
		}
		if strings.TrimSpace(st.Description) == "" {
			st.Description = userGoal
		}
	}
}

// repairDependencies adds a dependency edge for every result
// placeholder whose target the model forgot to declare.
func repairDependencies(p *plan.ExecutionPlan) {
	ids := make(map[string]struct{}, len(p.Subtasks))
	for _, st := range p.Subtasks {
		ids[st.ID] = struct{}{}
	}
	for _, st := range p.Subtasks {
		declared := make(map[string]struct{}, len(st.Dependencies))
		for _, dep := range st.Dependencies {
			declared[dep] = struct{}{}
		}
		for _, ref := range orchestrator.ReferencedTasks(st.Parameters) {
			if ref == st.ID {
				continue
			}
			if _, known := ids[ref]; !known {
				continue
			}
			if _, has := declared[ref]; !has {
				st.Dependencies = append(st.Dependencies, ref)
				declared[ref] = struct{}{}
			}
		}
	}
}

// FallbackPlan wraps the goal in a single reasoning subtask. Used when
// no model is configured or its plan output could not be decoded.
func FallbackPlan(userGoal string) *plan.ExecutionPlan {
	p, _ := plan.FromWireJSON(mustWire(userGoal))
	p.TaskID = "plan_" + uuid.New().String()[:8]
	p.EstimatedDuration = 60
	p.ResourceRequirements = plan.EstimateResources(p)
	return p
}

func mustWire(userGoal string) []byte {
	doc := map[string]any{
		"task_id": "fallback",
		"subtasks": []map[string]any{{
			"id":          "task_1",
			"description": userGoal,
			"priority":    2,
		}},
		"execution_order": []string{"task_1"},
	}
	b, _ := json.Marshal(doc)
	return b
}
