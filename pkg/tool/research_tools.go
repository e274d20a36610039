package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/loomwork/loom/pkg/httpclient"
)

// research category tools call out to Tavily's web-research API, the same
// external-dependency shape as a web-request tool built on a retrying
// httpclient.Client wrapping net/http, gated here on an API key rather than
// a domain allowlist. A job with no TAVILY_API_KEY set simply has no
// research tools registered — the worker checks TavilyAvailable before
// wiring them in.

const tavilyBaseURL = "https://api.tavily.com"

func TavilyAvailable() bool {
	return os.Getenv("TAVILY_API_KEY") != ""
}

type tavilyClient struct {
	apiKey string
	http   *httpclient.Client
}

func newTavilyClient() *tavilyClient {
	return &tavilyClient{
		apiKey: os.Getenv("TAVILY_API_KEY"),
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
			httpclient.WithMaxRetries(2),
		),
	}
}

func (c *tavilyClient) post(ctx context.Context, path string, payload map[string]interface{}) (map[string]interface{}, error) {
	payload["api_key"] = c.apiKey

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tavily response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("tavily returned %d: %s", resp.StatusCode, raw)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse tavily response: %w", err)
	}
	return out, nil
}

type webSearchTool struct{ client *tavilyClient }

func NewWebSearchTool() Tool { return webSearchTool{client: newTavilyClient()} }

func (t webSearchTool) Info() Info {
	return Info{
		Name:        "web_search",
		Description: "Search the web for a query and return ranked results.",
		Category:    CategoryResearch,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "query", Type: "string", Required: true},
			{Name: "max_results", Type: "integer"},
		},
	}
}

func (t webSearchTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return Result{}, fmt.Errorf("query is required")
	}
	maxResults := 5
	if v, ok := args["max_results"].(float64); ok && v > 0 {
		maxResults = int(v)
	}

	out, err := t.client.post(ctx, "/search", map[string]interface{}{
		"query":       query,
		"max_results": maxResults,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: formatTavilyJSON(out)}, nil
}

type extractWebpageTool struct{ client *tavilyClient }

func NewExtractWebpageTool() Tool { return extractWebpageTool{client: newTavilyClient()} }

func (t extractWebpageTool) Info() Info {
	return Info{
		Name:        "extract_webpage",
		Description: "Extract the readable content of one or more URLs.",
		Category:    CategoryResearch,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "urls", Type: "array", Required: true},
		},
	}
}

func (t extractWebpageTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	urls, ok := args["urls"].([]interface{})
	if !ok || len(urls) == 0 {
		return Result{}, fmt.Errorf("urls is required and must be a non-empty array")
	}
	out, err := t.client.post(ctx, "/extract", map[string]interface{}{"urls": urls})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: formatTavilyJSON(out)}, nil
}

type crawlWebsiteTool struct{ client *tavilyClient }

func NewCrawlWebsiteTool() Tool { return crawlWebsiteTool{client: newTavilyClient()} }

func (t crawlWebsiteTool) Info() Info {
	return Info{
		Name:        "crawl_website",
		Description: "Crawl a website starting from a base URL, following internal links up to a depth limit.",
		Category:    CategoryResearch,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "url", Type: "string", Required: true},
			{Name: "max_depth", Type: "integer"},
		},
	}
}

func (t crawlWebsiteTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return Result{}, fmt.Errorf("url is required")
	}
	maxDepth := 1
	if v, ok := args["max_depth"].(float64); ok && v > 0 {
		maxDepth = int(v)
	}
	out, err := t.client.post(ctx, "/crawl", map[string]interface{}{
		"url":       url,
		"max_depth": maxDepth,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: formatTavilyJSON(out)}, nil
}

type mapWebsiteTool struct{ client *tavilyClient }

func NewMapWebsiteTool() Tool { return mapWebsiteTool{client: newTavilyClient()} }

func (t mapWebsiteTool) Info() Info {
	return Info{
		Name:        "map_website",
		Description: "Return a site's link structure without fetching page content.",
		Category:    CategoryResearch,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "url", Type: "string", Required: true},
		},
	}
}

func (t mapWebsiteTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return Result{}, fmt.Errorf("url is required")
	}
	out, err := t.client.post(ctx, "/map", map[string]interface{}{"url": url})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: formatTavilyJSON(out)}, nil
}

type browseWebsiteTool struct{ client *tavilyClient }

func NewBrowseWebsiteTool() Tool { return browseWebsiteTool{client: newTavilyClient()} }

func (t browseWebsiteTool) Info() Info {
	return Info{
		Name:        "browse_website",
		Description: "Fetch a single page and return its extracted content and outbound links.",
		Category:    CategoryResearch,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "url", Type: "string", Required: true},
		},
	}
}

func (t browseWebsiteTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return Result{}, fmt.Errorf("url is required")
	}
	out, err := t.client.post(ctx, "/extract", map[string]interface{}{"urls": []string{url}})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: formatTavilyJSON(out)}, nil
}

func formatTavilyJSON(v map[string]interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
