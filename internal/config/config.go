// Package config assembles runtime settings from the environment.
// Every value has a working default so the binary starts with an
// empty environment.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Model backend.
	Backend    string // "gemini" or "ollama"
	Model      string
	OllamaHost string

	// Workspace roots.
	WorkspaceDir string // file_operations confinement root
	DocsDir      string // corpus indexed for document_search
	IndexPath    string // persisted vector index, empty for in-memory

	// Execution bounds.
	MaxParallel  int
	TaskTimeout  time.Duration
	FailureRatio float64
	MaxSubtasks  int

	// Misc.
	SearchEndpoint string // web_search backend, empty for offline mode
	LogFile        string
}

func Load() Config {
	return Config{
		Backend:        getEnv("AGENT_BACKEND", "gemini"),
		Model:          getEnv("AGENT_MODEL", ""),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		WorkspaceDir:   getEnv("AGENT_WORKSPACE", "workspace"),
		DocsDir:        getEnv("AGENT_DOCS_DIR", "docs"),
		IndexPath:      getEnv("AGENT_INDEX_PATH", ""),
		MaxParallel:    getEnvInt("AGENT_MAX_PARALLEL", 5),
		TaskTimeout:    getEnvDuration("AGENT_TASK_TIMEOUT", 2*time.Minute),
		FailureRatio:   getEnvFloat("AGENT_FAILURE_RATIO", 0.5),
		MaxSubtasks:    getEnvInt("AGENT_MAX_SUBTASKS", 20),
		SearchEndpoint: getEnv("AGENT_SEARCH_ENDPOINT", ""),
		LogFile:        getEnv("AGENT_LOG_FILE", "agent.log"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
