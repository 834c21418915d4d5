package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// NamedPlan pairs a plan with the name it carries in a plans file.
type NamedPlan struct {
	Name string
	Plan *ExecutionPlan
}

// subtaskWire is the JSON shape plans files and the planner share.
type subtaskWire struct {
	ID           string           `json:"id"`
	Description  string           `json:"description"`
	ToolName     string           `json:"tool_name,omitempty"`
	Parameters   map[string]Value `json:"parameters,omitempty"`
	Dependencies []string         `json:"dependencies,omitempty"`
	Priority     int              `json:"priority,omitempty"`
}

type planWire struct {
	TaskID            string        `json:"task_id"`
	Subtasks          []subtaskWire `json:"subtasks"`
	ExecutionOrder    []string      `json:"execution_order,omitempty"`
	ParallelGroups    [][]string    `json:"parallel_groups,omitempty"`
	EstimatedDuration int           `json:"estimated_duration,omitempty"`
}

// FromWireJSON decodes a single plan document into an ExecutionPlan.
// Subtasks start pending; priorities outside 1..4 fall back to medium.
func FromWireJSON(data []byte) (*ExecutionPlan, error) {
	var w planWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse plan JSON: %w", err)
	}
	if len(w.Subtasks) == 0 {
		return nil, fmt.Errorf("plan has no subtasks")
	}
	return fromWire(&w), nil
}

func fromWire(w *planWire) *ExecutionPlan {
	now := time.Now()
	p := &ExecutionPlan{
		TaskID:            w.TaskID,
		ExecutionOrder:    w.ExecutionOrder,
		ParallelGroups:    w.ParallelGroups,
		EstimatedDuration: w.EstimatedDuration,
		CreatedAt:         now,
	}
	for _, sw := range w.Subtasks {
		p.Subtasks = append(p.Subtasks, &SubTask{
			ID:           sw.ID,
			Description:  sw.Description,
			ToolName:     sw.ToolName,
			Parameters:   sw.Parameters,
			Dependencies: sw.Dependencies,
			Status:       StatusPending,
			Priority:     PriorityFromInt(sw.Priority),
			CreatedAt:    now,
		})
	}
	return p
}

/*
LoadFromFile loads one or many plans from a JSON file and always
returns a slice. Supported shapes:

 1. {"plans": [ {"name": "alpha", "task_id": ..., "subtasks": [...]}, ... ]}
 2. A bare array of plan objects.
 3. A single plan object.

Unnamed plans are auto-named "manual:<base>#<index>".
*/
func LoadFromFile(path string) ([]NamedPlan, error) {
	clean := filepath.Clean(path)
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("read plans file %s: %w", clean, err)
	}
	base := filepath.Base(clean)

	var obj struct {
		Plans []json.RawMessage `json:"plans"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && len(obj.Plans) > 0 {
		return parsePlanList(obj.Plans, base)
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return parsePlanList(arr, base)
	}

	p, err := FromWireJSON(data)
	if err != nil {
		return nil, fmt.Errorf("unrecognized plans format in %s: %w", clean, err)
	}
	return []NamedPlan{{Name: "manual:" + base, Plan: p}}, nil
}

func parsePlanList(items []json.RawMessage, base string) ([]NamedPlan, error) {
	var out []NamedPlan
	for i, raw := range items {
		var wrap struct {
			Name string `json:"name"`
			planWire
		}
		if err := json.Unmarshal(raw, &wrap); err != nil || len(wrap.Subtasks) == 0 {
			return nil, fmt.Errorf("could not parse plan #%d", i+1)
		}
		name := strings.TrimSpace(wrap.Name)
		if name == "" {
			name = fmt.Sprintf("manual:%s#%d", base, i+1)
		}
		out = append(out, NamedPlan{Name: name, Plan: fromWire(&wrap.planWire)})
	}
	return out, nil
}

// SelectByNames filters plans by name, case-insensitively, preserving
// the requested order. Unknown names are returned separately.
func SelectByNames(plans []NamedPlan, names []string) (selected []NamedPlan, missing []string) {
	if len(names) == 0 {
		return plans, nil
	}
	for _, want := range names {
		w := strings.TrimSpace(want)
		if w == "" {
			continue
		}
		found := false
		for i := range plans {
			if strings.EqualFold(plans[i].Name, w) {
				selected = append(selected, plans[i])
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return selected, missing
}
