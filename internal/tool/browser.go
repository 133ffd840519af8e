package tool

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Browser fetches web pages and extracts readable content. It keeps the
// last loaded document so a navigate step can be followed by extract steps
// against the same page.
type Browser struct {
	client *http.Client

	mu      sync.Mutex
	doc     *goquery.Document
	current string
}

// NewBrowser creates the browser tool.
func NewBrowser() *Browser {
	return &Browser{client: http.DefaultClient}
}

func (b *Browser) Name() string { return "browser" }

func (b *Browser) Description() string {
	return "Fetch web pages and extract their text, links, and headings"
}

func (b *Browser) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type": "string",
				"enum": []any{"navigate", "extract"},
			},
			"url":      map[string]any{"type": "string", "description": "Page to load (navigate)"},
			"selector": map[string]any{"type": "string", "description": "CSS selector to extract (default: readable text)"},
		},
		"required": []any{"operation"},
	}
}

// Invoke implements Tool.
func (b *Browser) Invoke(ctx context.Context, args map[string]any) Result {
	switch op := stringArg(args, "operation"); op {
	case "navigate":
		return b.navigate(ctx, stringArg(args, "url"))
	case "extract":
		return b.extract(stringArg(args, "selector"))
	case "":
		return Fail(CodeBadArguments, "no operation specified; use navigate or extract")
	default:
		return Fail(CodeBadArguments, "unknown operation %q; use navigate or extract", op)
	}
}

func (b *Browser) navigate(ctx context.Context, rawURL string) Result {
	if rawURL == "" {
		return Fail(CodeBadArguments, "no url provided")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return Fail(CodeBadArguments, "invalid url: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Fail(CodeInternal, "build request: %v", err)
	}
	req.Header.Set("User-Agent", "stride/1.0")

	resp, err := b.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Fail(CodeTimeout, "page load timed out: %s", rawURL)
		}
		return Fail(CodeRemote, "fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Fail(CodeRemote, "fetch of %s returned %d", rawURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Fail(CodeRemote, "parse page: %v", err)
	}

	b.mu.Lock()
	b.doc = doc
	b.current = rawURL
	b.mu.Unlock()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	return Ok(fmt.Sprintf("loaded %s\ntitle: %s", rawURL, title))
}

func (b *Browser) extract(selector string) Result {
	b.mu.Lock()
	doc, current := b.doc, b.current
	b.mu.Unlock()

	if doc == nil {
		return Fail(CodeBadArguments, "no page loaded; navigate first")
	}

	if selector != "" {
		var parts []string
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		if len(parts) == 0 {
			return Fail(CodeNotFound, "selector %q matched nothing on %s", selector, current)
		}
		return Ok(strings.Join(parts, "\n"))
	}

	return Ok(readableText(doc))
}

// readableText pulls headings, paragraphs and list items in document
// order, skipping script and style noise.
func readableText(doc *goquery.Document) string {
	var sb strings.Builder

	doc.Find("script, style, noscript").Remove()
	doc.Find("h1, h2, h3, h4, p, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		if goquery.NodeName(s) == "li" {
			sb.WriteString("- ")
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	})

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return strings.TrimSpace(doc.Find("body").Text())
	}
	return out
}
