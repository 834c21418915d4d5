package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	htmldom "golang.org/x/net/html"

	"auton/internal/plan"
)

// WebFetchTool retrieves a single page and returns its title, text
// and optionally the outer HTML of a selector match.
type WebFetchTool struct {
	Client *http.Client
}

func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (t *WebFetchTool) Name() string { return "web_fetch" }

func (t *WebFetchTool) Description() string {
	return "Fetch a URL and return its title and text content. Parameters: url (string), selector (optional CSS selector to extract)."
}

func (t *WebFetchTool) Invoke(ctx context.Context, params map[string]plan.Value) (plan.Value, error) {
	rawURL, err := getString(params, "url")
	if err != nil {
		return plan.Value{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return plan.Value{}, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("User-Agent", "auton-agent/1.0")

	resp, err := t.Client.Do(req)
	if err != nil {
		return plan.Value{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return plan.Value{}, fmt.Errorf("read %s: %w", rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return plan.Value{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	out := map[string]plan.Value{
		"url":         plan.String(rawURL),
		"status_code": plan.Number(float64(resp.StatusCode)),
		"title":       plan.String(strings.TrimSpace(doc.Find("title").First().Text())),
		"text":        plan.String(strings.TrimSpace(doc.Text())),
	}

	if sel, ok := params["selector"]; ok {
		if selector, isStr := sel.AsString(); isStr && selector != "" {
			var matches []plan.Value
			doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
				matches = append(matches, plan.String(outerHTML(s)))
			})
			out["matches"] = plan.List(matches...)
		}
	}
	return plan.Map(out), nil
}

func outerHTML(sel *goquery.Selection) string {
	var buf bytes.Buffer
	for _, n := range sel.Nodes {
		_ = htmldom.Render(&buf, n)
	}
	return buf.String()
}
