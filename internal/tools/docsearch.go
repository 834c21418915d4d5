package tools

import (
	"context"
	"fmt"

	"auton/internal/plan"
	"auton/internal/retrieval"
)

// DocSearchTool answers queries from the locally indexed document
// collection.
type DocSearchTool struct {
	Retriever *retrieval.Retriever
}

func NewDocSearchTool(r *retrieval.Retriever) *DocSearchTool {
	return &DocSearchTool{Retriever: r}
}

func (t *DocSearchTool) Name() string { return "document_search" }

func (t *DocSearchTool) Description() string {
	return "Search locally indexed documents. Parameters: query (string), top_k (int, default 5)."
}

func (t *DocSearchTool) Invoke(ctx context.Context, params map[string]plan.Value) (plan.Value, error) {
	if t.Retriever == nil {
		return plan.Value{}, fmt.Errorf("document index is not configured")
	}
	query, err := getString(params, "query")
	if err != nil {
		return plan.Value{}, err
	}
	topK := getInt(params, "top_k", 5)

	hits, err := t.Retriever.Search(ctx, query, topK)
	if err != nil {
		return plan.Value{}, err
	}

	items := make([]plan.Value, 0, len(hits))
	for _, h := range hits {
		items = append(items, plan.Map(map[string]plan.Value{
			"path":       plan.String(h.Path),
			"chunk":      plan.Number(float64(h.Chunk)),
			"content":    plan.String(h.Content),
			"similarity": plan.Number(float64(h.Similarity)),
		}))
	}
	return plan.Map(map[string]plan.Value{
		"query":   plan.String(query),
		"matches": plan.List(items...),
	}), nil
}
