package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"google.golang.org/genai"
)

const (
	webTimeout     = 30 * time.Second
	maxWebBytes    = 2 * 1024 * 1024
	maxWebText     = 32 * 1024
	maxSearchLinks = 8
	userAgent      = "leo-assistant/1.0"
)

// skippedTags are HTML elements whose text never carries page content.
var skippedTags = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "aside": true, "noscript": true, "iframe": true,
}

// WebFetchTool fetches a URL and extracts readable text.
type WebFetchTool struct {
	Client *http.Client
}

// NewWebFetchTool creates a web fetch tool with a default HTTP client.
func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{Client: &http.Client{Timeout: webTimeout}}
}

func (t *WebFetchTool) Name() string { return "web_fetch" }

func (t *WebFetchTool) Description() string {
	return "Fetch a web page and return its readable text content"
}

func (t *WebFetchTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"url": {
					Type:        genai.TypeString,
					Description: "The URL to fetch",
				},
			},
			Required: []string{"url"},
		},
	}
}

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	rawURL, _ := GetString(args, "url")
	if rawURL == "" {
		return "", fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("invalid url: %s", rawURL)
	}

	body, contentType, err := t.get(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if !strings.Contains(contentType, "html") {
		return clipText(string(body), maxWebText), nil
	}

	text, err := extractText(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	return clipText(text, maxWebText), nil
}

func (t *WebFetchTool) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch failed: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebBytes))
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// extractText walks the parsed document collecting visible text.
func extractText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.TrimSpace(b.String()), nil
}

func clipText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n... (truncated)"
}

// WebSearchTool searches the web via the DuckDuckGo HTML endpoint.
type WebSearchTool struct {
	Client  *http.Client
	BaseURL string
}

// NewWebSearchTool creates a web search tool.
func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{
		Client:  &http.Client{Timeout: webTimeout},
		BaseURL: "https://html.duckduckgo.com/html/",
	}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Search the web and return result titles with links"
}

func (t *WebSearchTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {
					Type:        genai.TypeString,
					Description: "Search query",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, _ := GetString(args, "query")
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.BaseURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search failed: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebBytes))
	if err != nil {
		return "", err
	}

	results := parseSearchResults(string(body))
	if len(results) == 0 {
		return "(no results)", nil
	}
	return strings.Join(results, "\n"), nil
}

// parseSearchResults pulls result links out of the DuckDuckGo HTML page.
func parseSearchResults(page string) []string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var results []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxSearchLinks {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			href := attrValue(n, "href")
			title := strings.TrimSpace(nodeText(n))
			if href != "" && title != "" {
				results = append(results, fmt.Sprintf("- %s\n  %s", title, cleanResultURL(href)))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, c := range strings.Fields(attr.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// cleanResultURL unwraps DuckDuckGo's redirect links (uddg parameter).
func cleanResultURL(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
