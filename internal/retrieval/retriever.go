// Package retrieval indexes local documents into a chromem-go vector
// collection and answers similarity queries for the document_search
// tool.
package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

type Config struct {
	DocsDir      string
	PersistPath  string // empty means in-memory only
	Collection   string
	ChunkSize    int // characters per chunk
	ChunkOverlap int
}

// Result is one scored chunk.
type Result struct {
	Path       string
	Chunk      int
	Content    string
	Similarity float32
}

type Retriever struct {
	cfg Config
	db  *chromem.DB
	col *chromem.Collection
}

// New opens (or creates) the vector store. A nil embed falls back to
// chromem's default embedding backend.
func New(cfg Config, embed chromem.EmbeddingFunc) (*Retriever, error) {
	if cfg.Collection == "" {
		cfg.Collection = "documents"
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 800
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 120
	}

	var db *chromem.DB
	var err error
	if cfg.PersistPath != "" {
		db, err = chromem.NewPersistentDB(cfg.PersistPath, false)
		if err != nil {
			return nil, fmt.Errorf("open persistent vector store: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	col, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("open collection %q: %w", cfg.Collection, err)
	}

	return &Retriever{cfg: cfg, db: db, col: col}, nil
}

// Count returns the number of indexed chunks.
func (r *Retriever) Count() int { return r.col.Count() }

// IndexDirectory walks DocsDir for .txt and .md files, chunks them
// and adds every chunk to the collection. Returns the chunk count.
func (r *Retriever) IndexDirectory(ctx context.Context) (int, error) {
	if r.cfg.DocsDir == "" {
		return 0, nil
	}
	added := 0
	err := filepath.WalkDir(r.cfg.DocsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rel, relErr := filepath.Rel(r.cfg.DocsDir, path)
		if relErr != nil {
			rel = path
		}
		n, err := r.IndexDocument(ctx, rel, string(data))
		if err != nil {
			return err
		}
		added += n
		return nil
	})
	if err != nil {
		return added, fmt.Errorf("index %s: %w", r.cfg.DocsDir, err)
	}
	return added, nil
}

// IndexDocument chunks one document and stores its pieces.
func (r *Retriever) IndexDocument(ctx context.Context, name, content string) (int, error) {
	chunks := chunkText(content, r.cfg.ChunkSize, r.cfg.ChunkOverlap)
	for i, chunk := range chunks {
		doc := chromem.Document{
			ID:      name + "#" + strconv.Itoa(i),
			Content: chunk,
			Metadata: map[string]string{
				"path":  name,
				"chunk": strconv.Itoa(i),
			},
		}
		if err := r.col.AddDocument(ctx, doc); err != nil {
			return i, fmt.Errorf("add chunk %d of %s: %w", i, name, err)
		}
	}
	return len(chunks), nil
}

// Search runs a similarity query. topK is clamped to the collection
// size; an empty collection yields no results rather than an error.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if topK <= 0 {
		topK = 5
	}
	if count := r.col.Count(); count == 0 {
		return nil, nil
	} else if topK > count {
		topK = count
	}

	hits, err := r.col.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query vector store: %w", err)
	}

	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		chunk, _ := strconv.Atoi(h.Metadata["chunk"])
		out = append(out, Result{
			Path:       h.Metadata["path"],
			Chunk:      chunk,
			Content:    h.Content,
			Similarity: h.Similarity,
		})
	}
	return out, nil
}

// chunkText splits on paragraph boundaries where possible, falling
// back to a hard cut, with the configured overlap between chunks.
func chunkText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}
		cut := strings.LastIndex(text[start:end], "\n\n")
		if cut < size/2 {
			if sp := strings.LastIndexAny(text[start:end], " \n"); sp > size/2 {
				cut = sp
			} else {
				cut = size
			}
		}
		chunk := strings.TrimSpace(text[start : start+cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		next := start + cut - overlap
		if next <= start {
			next = start + cut
		}
		start = next
	}
	return chunks
}
