package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"auton/internal/plan"
)

// FileTool exposes read/write/list/delete/mkdir under a workspace
// root. Paths are confined to the root; escaping it is an error, not
// a silent clamp.
type FileTool struct {
	Root string
}

func NewFileTool(root string) *FileTool { return &FileTool{Root: root} }

func (t *FileTool) Name() string { return "file_operations" }

func (t *FileTool) Description() string {
	return "Read, write, list and delete files under the workspace directory. Parameters: operation (read|write|list|delete|mkdir), path, content (for write)."
}

func (t *FileTool) resolve(rel string) (string, error) {
	if t.Root == "" {
		return "", fmt.Errorf("file workspace is not configured")
	}
	joined := filepath.Join(t.Root, filepath.Clean("/"+rel))
	root := filepath.Clean(t.Root)
	if joined != root && !strings.HasPrefix(joined, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes the workspace", rel)
	}
	return joined, nil
}

func (t *FileTool) Invoke(_ context.Context, params map[string]plan.Value) (plan.Value, error) {
	op, err := getString(params, "operation")
	if err != nil {
		return plan.Value{}, err
	}
	path, err := getString(params, "path")
	if err != nil {
		return plan.Value{}, err
	}
	abs, err := t.resolve(path)
	if err != nil {
		return plan.Value{}, err
	}

	switch op {
	case "read":
		data, err := os.ReadFile(abs)
		if err != nil {
			return plan.Value{}, fmt.Errorf("read %s: %w", path, err)
		}
		return plan.Map(map[string]plan.Value{
			"path":    plan.String(path),
			"content": plan.String(string(data)),
			"size":    plan.Number(float64(len(data))),
		}), nil

	case "write":
		content, err := getString(params, "content")
		if err != nil {
			return plan.Value{}, err
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return plan.Value{}, fmt.Errorf("create parent for %s: %w", path, err)
		}
		if err := writeFileAtomic(abs, content); err != nil {
			return plan.Value{}, err
		}
		return plan.Map(map[string]plan.Value{
			"path":    plan.String(path),
			"written": plan.Number(float64(len(content))),
		}), nil

	case "list":
		entries, err := os.ReadDir(abs)
		if err != nil {
			return plan.Value{}, fmt.Errorf("list %s: %w", path, err)
		}
		names := make([]plan.Value, 0, len(entries))
		sorted := make([]string, 0, len(entries))
		for _, e := range entries {
			n := e.Name()
			if e.IsDir() {
				n += "/"
			}
			sorted = append(sorted, n)
		}
		sort.Strings(sorted)
		for _, n := range sorted {
			names = append(names, plan.String(n))
		}
		return plan.Map(map[string]plan.Value{
			"path":    plan.String(path),
			"entries": plan.List(names...),
		}), nil

	case "delete":
		if err := os.RemoveAll(abs); err != nil {
			return plan.Value{}, fmt.Errorf("delete %s: %w", path, err)
		}
		return plan.Map(map[string]plan.Value{"deleted": plan.String(path)}), nil

	case "mkdir":
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return plan.Value{}, fmt.Errorf("mkdir %s: %w", path, err)
		}
		return plan.Map(map[string]plan.Value{"created": plan.String(path)}), nil

	default:
		return plan.Value{}, fmt.Errorf("unknown file operation %q", op)
	}
}

// writeFileAtomic writes via a temp file and rename so readers never
// see a half-written file.
func writeFileAtomic(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
