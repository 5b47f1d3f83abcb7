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

// LsTool lists directory contents.
type LsTool struct {
	WorkDir string
}

func NewLs(workDir string) *LsTool { return &LsTool{WorkDir: workDir} }

func (t *LsTool) Name() string  { return "ls" }
func (t *LsTool) Label() string { return "List Directory" }
func (t *LsTool) Description() string {
	return fmt.Sprintf("List directory contents. Returns file and directory names with sizes (max %d entries).", lsMaxEntries)
}
func (t *LsTool) Schema() map[string]any {
	return schema.Object(
		schema.Property("path", schema.String("Directory path (default: working directory)")),
	)
}

type lsArgs struct {
	Path string `json:"path"`
}

const lsMaxEntries = 200

func (t *LsTool) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var a lsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("invalid args: %w", err)
	}

	dir := t.WorkDir
	if a.Path != "" {
		if filepath.IsAbs(a.Path) {
			dir = a.Path
		} else {
			dir = filepath.Join(t.WorkDir, a.Path)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var sb strings.Builder
	count := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if count >= lsMaxEntries {
			sb.WriteString(fmt.Sprintf("\n[Listing truncated at %d entries.]", lsMaxEntries))
			break
		}
		if e.IsDir() {
			sb.WriteString(e.Name() + "/\n")
		} else {
			info, err := e.Info()
			if err != nil {
				sb.WriteString(e.Name() + "\n")
			} else {
				sb.WriteString(fmt.Sprintf("%s (%s)\n", e.Name(), formatSize(int(info.Size()))))
			}
		}
		count++
	}

	if count == 0 {
		return json.Marshal("Directory is empty.")
	}
	return json.Marshal(strings.TrimRight(sb.String(), "\n"))
}
