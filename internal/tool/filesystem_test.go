package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFilesystem_WriteThenRead(t *testing.T) {
	fs := NewFilesystem(t.TempDir())
	ctx := context.Background()

	res := fs.Invoke(ctx, map[string]any{
		"operation": "write",
		"path":      "notes/hello.txt",
		"content":   "hello world",
	})
	if !res.Success {
		t.Fatalf("write failed: %+v", res.Error)
	}
	if len(res.Artifacts) != 1 {
		t.Errorf("write should report the created file as an artifact, got %v", res.Artifacts)
	}

	res = fs.Invoke(ctx, map[string]any{"operation": "read", "path": "notes/hello.txt"})
	if !res.Success {
		t.Fatalf("read failed: %+v", res.Error)
	}
	if res.Output != "hello world" {
		t.Errorf("read output = %q", res.Output)
	}
}

func TestFilesystem_ReadMissingIsNotFound(t *testing.T) {
	fs := NewFilesystem(t.TempDir())

	res := fs.Invoke(context.Background(), map[string]any{"operation": "read", "path": "nope.txt"})
	if res.Success {
		t.Fatal("reading a missing file should fail")
	}
	if res.Error.Code != CodeNotFound {
		t.Errorf("code = %s, want %s", res.Error.Code, CodeNotFound)
	}
}

func TestFilesystem_RejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	fs := NewFilesystem(filepath.Join(dir, "ws"))

	for _, path := range []string{"../outside.txt", "/etc/passwd", "a/../../b"} {
		res := fs.Invoke(context.Background(), map[string]any{
			"operation": "write",
			"path":      path,
			"content":   "x",
		})
		if res.Success {
			t.Errorf("path %q should be rejected", path)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "outside.txt")); err == nil {
		t.Error("write escaped the workspace")
	}
}

func TestFilesystem_ListAndDelete(t *testing.T) {
	fs := NewFilesystem(t.TempDir())
	ctx := context.Background()

	fs.Invoke(ctx, map[string]any{"operation": "write", "path": "a.txt", "content": "a"})
	fs.Invoke(ctx, map[string]any{"operation": "write", "path": "b.txt", "content": "b"})

	res := fs.Invoke(ctx, map[string]any{"operation": "list"})
	if !res.Success {
		t.Fatalf("list failed: %+v", res.Error)
	}
	if !strings.Contains(res.Output, "a.txt") || !strings.Contains(res.Output, "b.txt") {
		t.Errorf("list output missing entries:\n%s", res.Output)
	}

	res = fs.Invoke(ctx, map[string]any{"operation": "delete", "path": "a.txt"})
	if !res.Success {
		t.Fatalf("delete failed: %+v", res.Error)
	}

	res = fs.Invoke(ctx, map[string]any{"operation": "exists", "path": "a.txt"})
	if !res.Success || !strings.Contains(res.Output, "does not exist") {
		t.Errorf("exists after delete = %q", res.Output)
	}
}

func TestFilesystem_MissingOperation(t *testing.T) {
	fs := NewFilesystem(t.TempDir())

	res := fs.Invoke(context.Background(), map[string]any{})
	if res.Success || res.Error.Code != CodeBadArguments {
		t.Errorf("expected bad_arguments, got %+v", res)
	}
}
