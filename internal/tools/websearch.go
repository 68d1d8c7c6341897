package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/go-resty/resty/v2"
)

// WebSearchConfig selects the search backend. SerpAPI is used when
// SerpAPIKey is set, DuckDuckGo Instant Answer otherwise.
type WebSearchConfig struct {
	SerpAPIURL    string
	SerpAPIKey    string
	DuckDuckGoURL string
	Timeout       time.Duration
	MaxResults    int
}

// WebSearch queries a public search API and returns a compact JSON digest.
type WebSearch struct {
	cfg    WebSearchConfig
	client *resty.Client
}

func NewWebSearch(cfg WebSearchConfig) *WebSearch {
	if cfg.SerpAPIURL == "" {
		cfg.SerpAPIURL = "https://serpapi.com/search.json"
	}
	if cfg.DuckDuckGoURL == "" {
		cfg.DuckDuckGoURL = "https://api.duckduckgo.com/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &WebSearch{
		cfg: cfg,
		client: resty.New().
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
	}
}

func (*WebSearch) Name() string { return "web_search" }

func (*WebSearch) Description() string { return "Search the web." }

type searchHit struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type serpResult struct {
	Success bool        `json:"success"`
	Source  string      `json:"source"`
	Results []searchHit `json:"results"`
}

type ddgResult struct {
	Success  bool   `json:"success"`
	Source   string `json:"source"`
	Abstract string `json:"abstract"`
	Related  []any  `json:"related"`
}

// Call reports request and decoding failures inside the output.
func (w *WebSearch) Call(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return fail(fmt.Errorf("empty query"))
	}
	if w.cfg.SerpAPIKey != "" {
		return w.serpAPI(ctx, query)
	}
	return w.duckDuckGo(ctx, query)
}

func (w *WebSearch) get(ctx context.Context, url string, params map[string]string) (*gabs.Container, error) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search request failed: %s", resp.Status())
	}
	body, err := gabs.ParseJSON(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return body, nil
}

func (w *WebSearch) serpAPI(ctx context.Context, query string) (string, error) {
	body, err := w.get(ctx, w.cfg.SerpAPIURL, map[string]string{"q": query, "api_key": w.cfg.SerpAPIKey})
	if err != nil {
		return fail(err)
	}
	if msg, ok := body.Path("error").Data().(string); ok {
		return fail(fmt.Errorf("serpapi: %s", msg))
	}
	out := serpResult{Success: true, Source: "serpapi", Results: []searchHit{}}
	for _, r := range body.Path("organic_results").Children() {
		if len(out.Results) == w.cfg.MaxResults {
			break
		}
		out.Results = append(out.Results, searchHit{
			Title:   str(r, "title"),
			Link:    str(r, "link"),
			Snippet: str(r, "snippet"),
		})
	}
	return encode(out)
}

func (w *WebSearch) duckDuckGo(ctx context.Context, query string) (string, error) {
	body, err := w.get(ctx, w.cfg.DuckDuckGoURL, map[string]string{"q": query, "format": "json", "no_html": "1"})
	if err != nil {
		return fail(err)
	}
	abstract := str(body, "AbstractText")
	if abstract == "" {
		abstract = str(body, "AbstractURL")
	}
	out := ddgResult{Success: true, Source: "duckduckgo", Abstract: abstract, Related: []any{}}
	for _, r := range body.Path("RelatedTopics").Children() {
		if len(out.Related) == w.cfg.MaxResults {
			break
		}
		out.Related = append(out.Related, r.Data())
	}
	return encode(out)
}

func str(c *gabs.Container, path string) string {
	s, _ := c.Path(path).Data().(string)
	return s
}
