package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voocel/agentcore/schema"
)

// FindTool searches for files matching a glob pattern.
type FindTool struct {
	WorkDir string
}

func NewFind(workDir string) *FindTool { return &FindTool{WorkDir: workDir} }

func (t *FindTool) Name() string  { return "find" }
func (t *FindTool) Label() string { return "Find Files" }
func (t *FindTool) Description() string {
	return "Search for files by glob pattern. Returns matching file paths (max 1000 results)."
}
func (t *FindTool) Schema() map[string]any {
	return schema.Object(
		schema.Property("pattern", schema.String("Glob pattern to match file names (e.g. '*.go')")).Required(),
		schema.Property("path", schema.String("Directory to search in (default: working directory)")),
	)
}

type findArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
}

const findMaxResults = 1000

func (t *FindTool) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var a findArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("invalid args: %w", err)
	}

	searchDir := t.WorkDir
	if a.Path != "" {
		if filepath.IsAbs(a.Path) {
			searchDir = a.Path
		} else {
			searchDir = filepath.Join(t.WorkDir, a.Path)
		}
	}

	var matches []string
	truncated := false

	err := filepath.WalkDir(searchDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == "node_modules" || name == "__pycache__" || name == ".venv" {
				return filepath.SkipDir
			}
			return nil
		}
		if matched, _ := filepath.Match(a.Pattern, d.Name()); matched {
			rel, _ := filepath.Rel(searchDir, path)
			matches = append(matches, rel)
		}
		if len(matches) >= findMaxResults {
			truncated = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return nil, fmt.Errorf("walk: %w", err)
	}

	if len(matches) == 0 {
		return json.Marshal("No files found matching pattern.")
	}

	result := strings.Join(matches, "\n")
	if truncated {
		result += fmt.Sprintf("\n\n[Results truncated at %d. Use a more specific pattern.]", findMaxResults)
	}
	return json.Marshal(result)
}
