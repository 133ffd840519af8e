package tool

import (
	"context"
	"errors"
	"testing"
)

type fakeTool struct {
	name string
}

func (f *fakeTool) Name() string                { return f.name }
func (f *fakeTool) Description() string         { return "fake" }
func (f *fakeTool) Parameters() map[string]any  { return map[string]any{"type": "object"} }
func (f *fakeTool) Invoke(_ context.Context, _ map[string]any) Result {
	return Ok("ok")
}

func TestRegistry_ResolveRegistered(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeTool{name: "alpha"})

	got, err := reg.Resolve("alpha")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Name() != "alpha" {
		t.Errorf("resolved wrong tool: %s", got.Name())
	}
}

func TestRegistry_UnknownToolIsFirstClass(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Resolve("missing")
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *UnknownToolError, got %v", err)
	}
	if unknown.Name != "missing" {
		t.Errorf("error names %q, want missing", unknown.Name)
	}
}

func TestRegistry_NamesSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeTool{name: "zeta"})
	reg.Register(&fakeTool{name: "alpha"})

	names := reg.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("names = %v", names)
	}
}

func TestFail_CarriesStructuredError(t *testing.T) {
	res := Fail(CodeBadArguments, "bad %s", "thing")
	if res.Success {
		t.Error("Fail result marked successful")
	}
	if res.Error == nil || res.Error.Code != CodeBadArguments {
		t.Errorf("error = %+v", res.Error)
	}
	if res.Error.Message != "bad thing" {
		t.Errorf("message = %q", res.Error.Message)
	}
}

func TestIntArg_JSONNumbers(t *testing.T) {
	args := map[string]any{"n": float64(7)}
	if got := intArg(args, "n", 5); got != 7 {
		t.Errorf("intArg = %d, want 7", got)
	}
	if got := intArg(args, "missing", 5); got != 5 {
		t.Errorf("fallback = %d, want 5", got)
	}
}
