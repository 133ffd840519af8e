package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Filesystem reads and writes files inside the session workspace. Paths
// are relative to the workspace root; anything escaping it is rejected.
type Filesystem struct {
	root string
}

// NewFilesystem creates the filesystem tool rooted at the session
// workspace.
func NewFilesystem(root string) *Filesystem {
	return &Filesystem{root: root}
}

func (f *Filesystem) Name() string { return "filesystem" }

func (f *Filesystem) Description() string {
	return "Read, write, and list files in the session workspace"
}

func (f *Filesystem) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type": "string",
				"enum": []any{"read", "write", "list", "delete", "exists"},
			},
			"path":    map[string]any{"type": "string", "description": "Path relative to the workspace"},
			"content": map[string]any{"type": "string", "description": "Content for write"},
		},
		"required": []any{"operation"},
	}
}

// Invoke implements Tool.
func (f *Filesystem) Invoke(_ context.Context, args map[string]any) Result {
	op := stringArg(args, "operation")
	switch op {
	case "read":
		return f.read(stringArg(args, "path"))
	case "write":
		return f.write(stringArg(args, "path"), stringArg(args, "content"))
	case "list":
		path := stringArg(args, "path")
		if path == "" {
			path = "."
		}
		return f.list(path)
	case "delete":
		return f.delete(stringArg(args, "path"))
	case "exists":
		return f.exists(stringArg(args, "path"))
	case "":
		return Fail(CodeBadArguments, "no operation specified; use read, write, list, delete, or exists")
	default:
		return Fail(CodeBadArguments, "unknown operation %q; use read, write, list, delete, or exists", op)
	}
}

// resolve maps a workspace-relative path to an absolute one, refusing
// escapes via .. or absolute paths.
func (f *Filesystem) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("no path specified")
	}
	if filepath.IsAbs(path) || !filepath.IsLocal(path) {
		return "", fmt.Errorf("path escapes workspace: %s", path)
	}
	return filepath.Join(f.root, path), nil
}

func (f *Filesystem) read(path string) Result {
	abs, err := f.resolve(path)
	if err != nil {
		return Fail(CodeBadArguments, "%v", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Fail(CodeNotFound, "file not found: %s", path)
		}
		return Fail(CodeInternal, "read failed: %v", err)
	}
	if !utf8.Valid(data) {
		return Fail(CodeBadArguments, "file is not UTF-8 text: %s", path)
	}
	return Ok(string(data))
}

func (f *Filesystem) write(path, content string) Result {
	abs, err := f.resolve(path)
	if err != nil {
		return Fail(CodeBadArguments, "%v", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return Fail(CodeInternal, "create parent directory: %v", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return Fail(CodeInternal, "write failed: %v", err)
	}
	return Ok(fmt.Sprintf("wrote %d bytes to %s", len(content), path), abs)
}

func (f *Filesystem) list(path string) Result {
	abs, err := f.resolve(path)
	if err != nil {
		return Fail(CodeBadArguments, "%v", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Fail(CodeNotFound, "directory not found: %s", path)
		}
		return Fail(CodeInternal, "list failed: %v", err)
	}

	if len(entries) == 0 {
		return Ok("(empty directory)")
	}
	var sb strings.Builder
	for _, entry := range entries {
		kind := "file"
		var size int64
		if entry.IsDir() {
			kind = "dir"
		} else if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		fmt.Fprintf(&sb, "%-4s  %-30s  %10d bytes\n", kind, entry.Name(), size)
	}
	return Ok(strings.TrimRight(sb.String(), "\n"))
}

func (f *Filesystem) delete(path string) Result {
	abs, err := f.resolve(path)
	if err != nil {
		return Fail(CodeBadArguments, "%v", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Fail(CodeNotFound, "file not found: %s", path)
		}
		return Fail(CodeInternal, "stat failed: %v", err)
	}
	if info.IsDir() {
		return Fail(CodeBadArguments, "cannot delete directory: %s", path)
	}
	if err := os.Remove(abs); err != nil {
		return Fail(CodeInternal, "delete failed: %v", err)
	}
	return Ok("deleted " + path)
}

func (f *Filesystem) exists(path string) Result {
	abs, err := f.resolve(path)
	if err != nil {
		return Fail(CodeBadArguments, "%v", err)
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return Ok("does not exist: " + path)
		}
		return Fail(CodeInternal, "stat failed: %v", err)
	}
	return Ok("exists: " + path)
}
