package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"auton/internal/plan"
)

// WebSearchTool fetches a search endpoint and extracts result links
// from the returned HTML. Without a configured endpoint it answers
// with canned results, the same degraded mode the agent runs in when
// no search key is present.
type WebSearchTool struct {
	Endpoint string // e.g. "https://html.duckduckgo.com/html/"
	Client   *http.Client
}

func NewWebSearchTool(endpoint string) *WebSearchTool {
	return &WebSearchTool{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 20 * time.Second},
	}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Search the web. Parameters: query (string), max_results (int, default 10)."
}

func (t *WebSearchTool) Invoke(ctx context.Context, params map[string]plan.Value) (plan.Value, error) {
	query, err := getString(params, "query")
	if err != nil {
		return plan.Value{}, err
	}
	maxResults := getInt(params, "max_results", 10)

	if t.Endpoint == "" {
		return mockSearchResults(query, maxResults), nil
	}

	u := t.Endpoint
	if strings.Contains(u, "?") {
		u += "&q=" + url.QueryEscape(query)
	} else {
		u += "?q=" + url.QueryEscape(query)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return plan.Value{}, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", "auton-agent/1.0")

	resp, err := t.Client.Do(req)
	if err != nil {
		return plan.Value{}, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return plan.Value{}, fmt.Errorf("search endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return plan.Value{}, fmt.Errorf("read search response: %w", err)
	}

	results, err := extractSearchResults(string(body), maxResults)
	if err != nil {
		return plan.Value{}, err
	}
	return plan.Map(map[string]plan.Value{
		"query":   plan.String(query),
		"results": results,
	}), nil
}

// extractSearchResults pulls anchors out of a result page. Fragment
// and same-page links are skipped.
func extractSearchResults(html string, limit int) (plan.Value, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return plan.Value{}, fmt.Errorf("parse search HTML: %w", err)
	}

	var items []plan.Value
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.HasPrefix(href, "http") {
			return true
		}
		title := strings.TrimSpace(s.Text())
		if title == "" {
			return true
		}
		items = append(items, plan.Map(map[string]plan.Value{
			"title": plan.String(title),
			"url":   plan.String(href),
		}))
		return len(items) < limit
	})
	return plan.List(items...), nil
}

func mockSearchResults(query string, limit int) plan.Value {
	if limit > 3 {
		limit = 3
	}
	items := make([]plan.Value, 0, limit)
	for i := 0; i < limit; i++ {
		items = append(items, plan.Map(map[string]plan.Value{
			"title":   plan.String(fmt.Sprintf("Result %d for %q", i+1, query)),
			"url":     plan.String(fmt.Sprintf("https://example.com/search/%d", i+1)),
			"snippet": plan.String("No search endpoint configured; this is a placeholder result."),
		}))
	}
	return plan.Map(map[string]plan.Value{
		"query":   plan.String(query),
		"results": plan.List(items...),
		"mock":    plan.Bool(true),
	})
}
