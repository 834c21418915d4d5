package orchestrator

import (
	"reflect"
	"testing"

	"auton/internal/plan"
	"auton/internal/tools"
)

func priorOutcomes() map[string]TaskOutcome {
	return map[string]TaskOutcome{
		"fetch": {
			TaskID: "fetch",
			Status: tools.StatusSuccess,
			Result: plan.Map(map[string]plan.Value{
				"title":      plan.String("Go Concurrency Patterns"),
				"word_count": plan.Number(1280),
			}),
		},
		"score": {
			TaskID: "score",
			Status: tools.StatusSuccess,
			Result: plan.Number(0.87),
		},
	}
}

func TestResolveParameters(t *testing.T) {
	testCases := []struct {
		name     string
		params   map[string]plan.Value
		expected map[string]plan.Value
	}{
		{
			name: "Exact placeholder keeps the value type",
			params: map[string]plan.Value{
				"confidence": plan.String("{score.result}"),
			},
			expected: map[string]plan.Value{
				"confidence": plan.Number(0.87),
			},
		},
		{
			name: "Exact placeholder with key digs into a map result",
			params: map[string]plan.Value{
				"count": plan.String("{fetch.result.word_count}"),
			},
			expected: map[string]plan.Value{
				"count": plan.Number(1280),
			},
		},
		{
			name: "Embedded placeholder interpolates as text",
			params: map[string]plan.Value{
				"summary": plan.String("Article '{fetch.result.title}' scored {score.result}"),
			},
			expected: map[string]plan.Value{
				"summary": plan.String("Article 'Go Concurrency Patterns' scored 0.87"),
			},
		},
		{
			name: "Unknown task resolves to empty string",
			params: map[string]plan.Value{
				"content": plan.String("{ghost.result}"),
			},
			expected: map[string]plan.Value{
				"content": plan.String(""),
			},
		},
		{
			name: "Unknown key resolves to empty string",
			params: map[string]plan.Value{
				"content": plan.String("{fetch.result.missing_key}"),
			},
			expected: map[string]plan.Value{
				"content": plan.String(""),
			},
		},
		{
			name: "Non-string values pass through",
			params: map[string]plan.Value{
				"count": plan.Number(3),
				"flag":  plan.Bool(true),
			},
			expected: map[string]plan.Value{
				"count": plan.Number(3),
				"flag":  plan.Bool(true),
			},
		},
		{
			name: "Placeholders inside lists and maps",
			params: map[string]plan.Value{
				"inputs": plan.List(plan.String("{score.result}"), plan.String("static")),
				"nested": plan.Map(map[string]plan.Value{"t": plan.String("{fetch.result.title}")}),
			},
			expected: map[string]plan.Value{
				"inputs": plan.List(plan.Number(0.87), plan.String("static")),
				"nested": plan.Map(map[string]plan.Value{"t": plan.String("Go Concurrency Patterns")}),
			},
		},
		{
			name: "String without placeholder is preserved",
			params: map[string]plan.Value{
				"greeting": plan.String("Hello, world!"),
			},
			expected: map[string]plan.Value{
				"greeting": plan.String("Hello, world!"),
			},
		},
	}

	prior := priorOutcomes()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveParameters(tc.params, prior)
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("resolved = %v, want %v", got, tc.expected)
			}
		})
	}
}

func TestReferencedTasks(t *testing.T) {
	params := map[string]plan.Value{
		"a": plan.String("{one.result} and {two.result.key}"),
		"b": plan.List(plan.String("{three.result}")),
		"c": plan.String("no refs here"),
	}
	got := ReferencedTasks(params)
	if len(got) != 3 {
		t.Fatalf("refs = %v, want three ids", got)
	}
	seen := map[string]bool{}
	for _, id := range got {
		seen[id] = true
	}
	for _, want := range []string{"one", "two", "three"} {
		if !seen[want] {
			t.Errorf("missing reference %q in %v", want, got)
		}
	}
}
