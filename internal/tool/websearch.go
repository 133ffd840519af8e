package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// WebSearch queries the Tavily search API.
type WebSearch struct {
	client   *http.Client
	apiKey   string
	endpoint string
}

// NewWebSearch creates the search tool. The http.Client's own timeout is a
// backstop; the per-invocation context governs each call.
func NewWebSearch(apiKey string) *WebSearch {
	return &WebSearch{
		client:   http.DefaultClient,
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
	}
}

func (w *WebSearch) Name() string { return "web_search" }

func (w *WebSearch) Description() string {
	return "Search the web for current information"
}

func (w *WebSearch) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":       map[string]any{"type": "string"},
			"max_results": map[string]any{"type": "integer", "description": "default 5"},
		},
		"required": []any{"query"},
	}
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Invoke implements Tool.
func (w *WebSearch) Invoke(ctx context.Context, args map[string]any) Result {
	query := stringArg(args, "query")
	if query == "" {
		return Fail(CodeBadArguments, "no query provided")
	}
	if w.apiKey == "" {
		return Fail(CodeBadArguments, "web search not configured: missing Tavily API key")
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:        w.apiKey,
		Query:         query,
		MaxResults:    intArg(args, "max_results", 5),
		IncludeAnswer: true,
	})
	if err != nil {
		return Fail(CodeInternal, "encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return Fail(CodeInternal, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Fail(CodeTimeout, "web search timed out")
		}
		return Fail(CodeRemote, "web search failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Fail(CodeRemote, "search API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Fail(CodeRemote, "decode response: %v", err)
	}

	var sb strings.Builder
	if parsed.Answer != "" {
		fmt.Fprintf(&sb, "Answer: %s\n\n", parsed.Answer)
	}
	fmt.Fprintf(&sb, "Found %d results:\n", len(parsed.Results))
	for i, r := range parsed.Results {
		content := r.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		fmt.Fprintf(&sb, "\n%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, content)
	}
	return Ok(sb.String())
}
