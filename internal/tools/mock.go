package tools

import (
	"context"
	"fmt"
	"math"
	"sort"

	"auton/internal/plan"
)

// DataAnalysisTool computes basic statistics over a numeric list.
type DataAnalysisTool struct{}

func (DataAnalysisTool) Name() string { return "data_analysis" }

func (DataAnalysisTool) Description() string {
	return "Compute basic statistics over numeric data. Parameters: data (list of numbers)."
}

func (DataAnalysisTool) Invoke(_ context.Context, params map[string]plan.Value) (plan.Value, error) {
	v, ok := params["data"]
	if !ok {
		return plan.Value{}, fmt.Errorf("missing required parameter %q", "data")
	}
	items, ok := v.AsList()
	if !ok {
		return plan.Value{}, fmt.Errorf("parameter %q must be a list of numbers", "data")
	}

	nums := make([]float64, 0, len(items))
	for i, item := range items {
		n, ok := item.AsNumber()
		if !ok {
			return plan.Value{}, fmt.Errorf("data[%d] is not a number", i)
		}
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return plan.Value{}, fmt.Errorf("data is empty")
	}

	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	mean := sum / float64(len(nums))
	variance := 0.0
	for _, n := range nums {
		variance += (n - mean) * (n - mean)
	}
	variance /= float64(len(nums))

	return plan.Map(map[string]plan.Value{
		"count":  plan.Number(float64(len(nums))),
		"min":    plan.Number(sorted[0]),
		"max":    plan.Number(sorted[len(sorted)-1]),
		"mean":   plan.Number(mean),
		"stddev": plan.Number(math.Sqrt(variance)),
		"sum":    plan.Number(sum),
	}), nil
}

// CodeExecutionTool is registered so plans referencing it validate,
// but execution stays disabled; running model-authored code needs a
// sandbox this agent does not ship.
type CodeExecutionTool struct{}

func (CodeExecutionTool) Name() string { return "code_execution" }

func (CodeExecutionTool) Description() string {
	return "Execute a code snippet (disabled in this build). Parameters: code, language."
}

func (CodeExecutionTool) Invoke(_ context.Context, params map[string]plan.Value) (plan.Value, error) {
	if _, err := getString(params, "code"); err != nil {
		return plan.Value{}, err
	}
	return plan.Value{}, fmt.Errorf("code execution is disabled: no sandbox available")
}
