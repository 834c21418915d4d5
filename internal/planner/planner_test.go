package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auton/internal/plan"
	"auton/internal/tools"
)

func TestExtractJSON(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "Bare JSON passes through",
			in:   `{"task_id":"x"}`,
			want: `{"task_id":"x"}`,
		},
		{
			name: "Fenced block is unwrapped",
			in:   "```json\n{\"task_id\":\"x\"}\n```",
			want: `{"task_id":"x"}`,
		},
		{
			name: "Leading prose is stripped",
			in:   "Here is your plan:\n{\"task_id\":\"x\"}\nHope it helps!",
			want: `{"task_id":"x"}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractJSON(tc.in))
		})
	}
}

func TestDecodePlanRepairsMalformedJSON(t *testing.T) {
	// Trailing comma: invalid JSON a model emits often enough to repair.
	raw := `{"task_id": "t", "subtasks": [{"id": "a", "description": "do it"},]}`
	p, err := decodePlan(raw)
	require.NoError(t, err)
	require.Len(t, p.Subtasks, 1)
	assert.Equal(t, "a", p.Subtasks[0].ID)
}

func TestDecodePlanRejectsGarbage(t *testing.T) {
	_, err := decodePlan("the plan is to win")
	assert.Error(t, err)
}

func TestNormalizeFillsMissingIDs(t *testing.T) {
	p, err := plan.FromWireJSON([]byte(`{"subtasks": [{"id": "", "description": ""}, {"id": "b", "description": "keep"}]}`))
	require.NoError(t, err)

	normalize(p, "the goal")

	assert.NotEmpty(t, p.TaskID)
	assert.Equal(t, "task_1", p.Subtasks[0].ID)
	assert.Equal(t, "the goal", p.Subtasks[0].Description)
	assert.Equal(t, "b", p.Subtasks[1].ID)
	assert.Equal(t, "keep", p.Subtasks[1].Description)
}

func TestRepairDependenciesAddsEdgeForPlaceholder(t *testing.T) {
	p := &plan.ExecutionPlan{
		Subtasks: []*plan.SubTask{
			{ID: "fetch", Description: "fetch"},
			{ID: "use", Description: "use", Parameters: map[string]plan.Value{
				"input": plan.String("{fetch.result}"),
			}},
		},
	}

	repairDependencies(p)

	require.Len(t, p.Subtasks[1].Dependencies, 1)
	assert.Equal(t, "fetch", p.Subtasks[1].Dependencies[0])
}

func TestRepairDependenciesIgnoresUnknownAndSelf(t *testing.T) {
	p := &plan.ExecutionPlan{
		Subtasks: []*plan.SubTask{
			{ID: "a", Parameters: map[string]plan.Value{
				"x": plan.String("{a.result} {ghost.result}"),
			}},
		},
	}

	repairDependencies(p)

	assert.Empty(t, p.Subtasks[0].Dependencies)
}

func TestRepairDependenciesDoesNotDuplicate(t *testing.T) {
	p := &plan.ExecutionPlan{
		Subtasks: []*plan.SubTask{
			{ID: "fetch"},
			{ID: "use", Dependencies: []string{"fetch"}, Parameters: map[string]plan.Value{
				"input": plan.String("{fetch.result}"),
			}},
		},
	}

	repairDependencies(p)

	assert.Equal(t, []string{"fetch"}, p.Subtasks[1].Dependencies)
}

func TestFallbackPlan(t *testing.T) {
	p := FallbackPlan("summarize the report")

	require.Len(t, p.Subtasks, 1)
	assert.Equal(t, "summarize the report", p.Subtasks[0].Description)
	assert.Empty(t, p.Subtasks[0].ToolName)
	assert.NoError(t, plan.Validate(p, plan.Limits{}))
}

func TestGeneratePlanWithoutBackendFallsBack(t *testing.T) {
	reg := tools.NewRegistry()
	p, err := GeneratePlan(context.Background(), reg, nil, "do something", plan.Limits{})
	require.NoError(t, err)
	require.Len(t, p.Subtasks, 1)
	assert.Equal(t, "do something", p.Subtasks[0].Description)
}

func TestBuildPlanPromptMentionsToolsAndLimits(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(tools.NewTextTool())

	prompt := buildPlanPrompt(reg, nil, "my goal", plan.Limits{MaxSubtasks: 7, MaxParallel: 3})

	assert.Contains(t, prompt, "text_processing")
	assert.Contains(t, prompt, "At most 7 subtasks")
	assert.Contains(t, prompt, "my goal")
}

func TestBuildPlanPromptIncludesHistory(t *testing.T) {
	reg := tools.NewRegistry()
	history := []ConversationTurn{{
		UserGoal:       "earlier goal",
		AssistantPlan:  `{"task_id":"old"}`,
		ExecutionError: "it broke",
	}}

	prompt := buildPlanPrompt(reg, history, "new goal", plan.Limits{})

	assert.Contains(t, prompt, "earlier goal")
	assert.Contains(t, prompt, "it broke")
}
