package tools

import (
	"context"
	"fmt"
	"strings"

	"auton/internal/plan"
)

// TextTool covers the lightweight text operations plans lean on
// between I/O steps: summarize, extract a section, reformat.
type TextTool struct {
	MaxLength int
}

func NewTextTool() *TextTool { return &TextTool{MaxLength: 10000} }

func (t *TextTool) Name() string { return "text_processing" }

func (t *TextTool) Description() string {
	return "Process text. Parameters: operation (summarize|extract|format), text, target_section (for extract), format_type (for format)."
}

func (t *TextTool) Invoke(_ context.Context, params map[string]plan.Value) (plan.Value, error) {
	op, err := getString(params, "operation")
	if err != nil {
		return plan.Value{}, err
	}
	text, err := getString(params, "text")
	if err != nil {
		return plan.Value{}, err
	}
	if t.MaxLength > 0 && len(text) > t.MaxLength {
		text = text[:t.MaxLength]
	}

	switch op {
	case "summarize":
		return t.summarize(text), nil
	case "extract":
		section, err := getString(params, "target_section")
		if err != nil {
			return plan.Value{}, err
		}
		return t.extract(text, section)
	case "format":
		formatType := "plain"
		if v, ok := params["format_type"]; ok {
			if s, isStr := v.AsString(); isStr {
				formatType = s
			}
		}
		return t.format(text, formatType), nil
	default:
		return plan.Value{}, fmt.Errorf("unknown text operation %q", op)
	}
}

// summarize keeps the leading sentences up to a soft cap and reports
// basic statistics. Deliberately model-free; plans route semantic
// summarization through the inference fallback instead.
func (t *TextTool) summarize(text string) plan.Value {
	const limit = 400
	summary := strings.TrimSpace(text)
	if len(summary) > limit {
		cut := strings.LastIndexAny(summary[:limit], ".!?\n")
		if cut < limit/2 {
			cut = limit
		} else {
			cut++
		}
		summary = strings.TrimSpace(summary[:cut])
	}
	return plan.Map(map[string]plan.Value{
		"summary":    plan.String(summary),
		"chars":      plan.Number(float64(len(text))),
		"words":      plan.Number(float64(len(strings.Fields(text)))),
		"paragraphs": plan.Number(float64(len(splitParagraphs(text)))),
	})
}

// extract returns the paragraph block following a heading that
// contains the target section name, case-insensitively.
func (t *TextTool) extract(text, section string) (plan.Value, error) {
	lower := strings.ToLower(section)
	paragraphs := splitParagraphs(text)
	for i, p := range paragraphs {
		firstLine := strings.SplitN(p, "\n", 2)[0]
		if !strings.Contains(strings.ToLower(firstLine), lower) {
			continue
		}
		// A heading-only paragraph means the section body is the next
		// paragraph.
		body := p
		if i+1 < len(paragraphs) && strings.TrimSpace(strings.TrimPrefix(p, firstLine)) == "" {
			body = paragraphs[i+1]
		}
		return plan.Map(map[string]plan.Value{
			"section": plan.String(section),
			"content": plan.String(strings.TrimSpace(body)),
		}), nil
	}
	return plan.Value{}, fmt.Errorf("section %q not found", section)
}

func (t *TextTool) format(text, formatType string) plan.Value {
	var formatted string
	switch formatType {
	case "bullets":
		lines := strings.Split(strings.TrimSpace(text), "\n")
		var sb strings.Builder
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			sb.WriteString("- " + line + "\n")
		}
		formatted = strings.TrimRight(sb.String(), "\n")
	case "upper":
		formatted = strings.ToUpper(text)
	default:
		formatted = strings.TrimSpace(text)
	}
	return plan.Map(map[string]plan.Value{
		"formatted":   plan.String(formatted),
		"format_type": plan.String(formatType),
	})
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
