package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/philippgille/chromem-go"

	"auton/internal/config"
	"auton/internal/llm"
	"auton/internal/logger"
	"auton/internal/orchestrator"
	"auton/internal/plan"
	"auton/internal/retrieval"
	"auton/internal/tools"
)

// buildRegistry wires every tool the planner may name. The document
// search tool is only registered when a corpus directory exists.
func buildRegistry(cfg config.Config) *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(tools.NewFileTool(cfg.WorkspaceDir))
	reg.Register(tools.NewWebSearchTool(cfg.SearchEndpoint))
	reg.Register(tools.NewWebFetchTool())
	reg.Register(tools.NewTextTool())
	reg.Register(tools.DataAnalysisTool{})
	reg.Register(tools.CodeExecutionTool{})

	if ret := buildRetriever(cfg); ret != nil {
		reg.Register(tools.NewDocSearchTool(ret))
	}
	return reg
}

func buildRetriever(cfg config.Config) *retrieval.Retriever {
	if _, err := os.Stat(cfg.DocsDir); err != nil {
		return nil
	}

	var embed chromem.EmbeddingFunc
	if llm.ActiveBackend() == "ollama" {
		embed = chromem.NewEmbeddingFuncOllama("nomic-embed-text", cfg.OllamaHost+"/api")
	}
	ret, err := retrieval.New(retrieval.Config{
		DocsDir:     cfg.DocsDir,
		PersistPath: cfg.IndexPath,
	}, embed)
	if err != nil {
		logger.Log.Printf("[cli] document index unavailable: %v", err)
		return nil
	}
	if n, err := ret.IndexDirectory(context.Background()); err != nil {
		logger.Log.Printf("[cli] indexing %s failed: %v", cfg.DocsDir, err)
	} else if n > 0 {
		logger.Log.Printf("[cli] indexed %d document chunks from %s", n, cfg.DocsDir)
	}
	return ret
}

// buildInfer returns the fallback for subtasks that name no tool:
// plain model reasoning over the description and resolved parameters.
func buildInfer() orchestrator.InferenceFunc {
	return func(ctx context.Context, st *plan.SubTask, params map[string]plan.Value) (plan.Value, error) {
		if !llm.Ready() {
			return plan.Value{}, fmt.Errorf("task %s needs reasoning but no model backend is configured", st.ID)
		}
		var sb strings.Builder
		sb.WriteString("Perform this task and reply with the result only:\n")
		sb.WriteString(st.Description)
		if len(params) > 0 {
			sb.WriteString("\n\nInputs:\n")
			for k, v := range params {
				sb.WriteString(fmt.Sprintf("- %s: %s\n", k, v.Text()))
			}
		}
		out, err := llm.Generate(ctx, sb.String(), "")
		if err != nil {
			return plan.Value{}, err
		}
		return plan.String(strings.TrimSpace(out)), nil
	}
}
