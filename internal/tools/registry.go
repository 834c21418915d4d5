// Package tools provides the uniform adapter between the orchestrator
// and heterogeneous tool back-ends. Every invocation returns an
// Envelope; callers never see a raised error escape the registry.
package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"auton/internal/plan"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the outcome contract consumed by the orchestrator. Any
// non-success status is treated as task failure; the orchestrator
// never inspects Result's internal shape.
type Envelope struct {
	Status string     `json:"status"`
	Result plan.Value `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
	Tool   string     `json:"tool"`
}

// Tool is one capability a subtask can name via tool_name.
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, params map[string]plan.Value) (plan.Value, error)
}

// Registry holds the tools available to a session.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Execute invokes a tool by name and folds every failure mode,
// including panics in a back-end, into an error envelope.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]plan.Value) (env Envelope) {
	env = Envelope{Tool: name}
	defer func() {
		if rec := recover(); rec != nil {
			env.Status = StatusError
			env.Error = fmt.Sprintf("panic in tool %s: %v", name, rec)
		}
	}()

	t, ok := r.Get(name)
	if !ok {
		env.Status = StatusError
		env.Error = fmt.Sprintf("tool %q is not registered", name)
		return env
	}

	result, err := t.Invoke(ctx, params)
	if err != nil {
		env.Status = StatusError
		env.Error = err.Error()
		return env
	}
	env.Status = StatusSuccess
	env.Result = result
	return env
}

// PromptPart renders the tool catalog for the planning prompt.
func (r *Registry) PromptPart() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sb strings.Builder
	sb.WriteString("AVAILABLE TOOLS:\n")
	for _, name := range r.order {
		sb.WriteString(fmt.Sprintf("- `%s`: %s\n", name, r.tools[name].Description()))
	}
	return sb.String()
}

// getString extracts a required string parameter.
func getString(params map[string]plan.Value, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string", key)
	}
	return s, nil
}

// getInt extracts an optional integer parameter with a default.
func getInt(params map[string]plan.Value, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	if n, ok := v.AsNumber(); ok {
		return int(n)
	}
	return def
}
