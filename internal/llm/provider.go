// Package llm holds the model providers the planner and the
// inference fallback call into. One provider is active per process.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotInitialized is returned when a call is made before Init.
var ErrNotInitialized = errors.New("llm provider is not initialized")

type Config struct {
	Backend    string // "gemini" or "ollama"
	Model      string
	OllamaHost string
}

// Provider is one model backend.
type Provider interface {
	Init(cfg Config) error
	DefaultModel() string
	AllowedModelOrDefault(model string) string
	Generate(ctx context.Context, prompt, model string) (string, error)
	GenerateJSON(ctx context.Context, prompt, model string, schema any) (string, error)
}

var (
	active   Provider
	activeID string
)

// Init selects and initializes the backend. Empty backend defaults
// to gemini.
func Init(cfg Config) error {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "gemini"
	}
	var p Provider
	switch backend {
	case "ollama":
		p = &ollamaProvider{}
	case "gemini":
		p = &geminiProvider{}
	default:
		return fmt.Errorf("unsupported llm backend: %s", cfg.Backend)
	}
	if err := p.Init(cfg); err != nil {
		return err
	}
	active = p
	activeID = backend
	return nil
}

// Ready reports whether a provider is available.
func Ready() bool { return active != nil }

// ActiveBackend names the provider selected by Init, or "".
func ActiveBackend() string {
	if active == nil {
		return ""
	}
	return activeID
}

func Generate(ctx context.Context, prompt, model string) (string, error) {
	if active == nil {
		return "", ErrNotInitialized
	}
	return active.Generate(ctx, prompt, model)
}

func GenerateJSON(ctx context.Context, prompt, model string, schema any) (string, error) {
	if active == nil {
		return "", ErrNotInitialized
	}
	return active.GenerateJSON(ctx, prompt, model, schema)
}
