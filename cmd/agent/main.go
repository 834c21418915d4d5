package main

import (
	"log"

	"github.com/joho/godotenv"

	"auton/internal/cli"
	"auton/internal/config"
	"auton/internal/llm"
	"auton/internal/logger"
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := config.Load()

	if err := logger.Init(cfg.LogFile); err != nil {
		log.Fatalf("Fatal Error: Could not initialize logger: %v", err)
	}

	// Without a model backend the agent still runs manual plans and
	// tool-only missions, so this is a warning rather than a fatal.
	if err := llm.Init(llm.Config{
		Backend:    cfg.Backend,
		Model:      cfg.Model,
		OllamaHost: cfg.OllamaHost,
	}); err != nil {
		log.Printf("Warning: model backend unavailable (%v); planning falls back to single-task plans", err)
	}

	cli.Execute(cfg)
}
