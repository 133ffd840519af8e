package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestSearch(t *testing.T, handler http.HandlerFunc) *WebSearch {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	w := NewWebSearch("test-key")
	w.endpoint = srv.URL
	w.client = srv.Client()
	return w
}

func TestWebSearch_FormatsResults(t *testing.T) {
	w := newTestSearch(t, func(rw http.ResponseWriter, req *http.Request) {
		var got tavilyRequest
		json.NewDecoder(req.Body).Decode(&got)
		if got.Query != "go testing" {
			t.Errorf("query = %q", got.Query)
		}
		json.NewEncoder(rw).Encode(map[string]any{
			"answer": "Use the testing package.",
			"results": []map[string]any{
				{"title": "testing", "url": "https://pkg.go.dev/testing", "content": "Package testing provides support", "score": 0.9},
			},
		})
	})

	res := w.Invoke(context.Background(), map[string]any{"query": "go testing"})
	if !res.Success {
		t.Fatalf("search failed: %+v", res.Error)
	}
	if !strings.Contains(res.Output, "Use the testing package.") {
		t.Errorf("answer missing from output:\n%s", res.Output)
	}
	if !strings.Contains(res.Output, "pkg.go.dev/testing") {
		t.Errorf("result URL missing from output:\n%s", res.Output)
	}
}

func TestWebSearch_RemoteErrorIsRecoverable(t *testing.T) {
	w := newTestSearch(t, func(rw http.ResponseWriter, _ *http.Request) {
		http.Error(rw, "quota exceeded", http.StatusPaymentRequired)
	})

	res := w.Invoke(context.Background(), map[string]any{"query": "q"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error.Code != CodeRemote {
		t.Errorf("code = %s, want %s", res.Error.Code, CodeRemote)
	}
}

func TestWebSearch_HonorsContextDeadline(t *testing.T) {
	w := newTestSearch(t, func(rw http.ResponseWriter, _ *http.Request) {
		time.Sleep(2 * time.Second)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := w.Invoke(ctx, map[string]any{"query": "q"})
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.Error.Code != CodeTimeout {
		t.Errorf("code = %s, want %s", res.Error.Code, CodeTimeout)
	}
	if time.Since(start) > time.Second {
		t.Error("invoke did not return near the deadline")
	}
}

func TestWebSearch_NoQuery(t *testing.T) {
	w := NewWebSearch("key")
	res := w.Invoke(context.Background(), map[string]any{})
	if res.Success || res.Error.Code != CodeBadArguments {
		t.Errorf("expected bad_arguments, got %+v", res)
	}
}

func TestWebSearch_MissingKey(t *testing.T) {
	w := NewWebSearch("")
	res := w.Invoke(context.Background(), map[string]any{"query": "q"})
	if res.Success || res.Error.Code != CodeBadArguments {
		t.Errorf("expected bad_arguments, got %+v", res)
	}
}
