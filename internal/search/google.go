// File path: internal/search/google.go
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/config"
)

// Query is one web search request.
type Query struct {
	Text string
	Num  int
}

// Result is one organic search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Domain  string `json:"domain"`
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

// GoogleClient queries the Google Custom Search JSON API, restricted to UK
// results.
type GoogleClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	engineID   string
	limiter    *rate.Limiter
}

var _ Searcher = (*GoogleClient)(nil)

// Option customises a GoogleClient.
type Option func(*GoogleClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *GoogleClient) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// NewGoogleClient builds a client from cfg. Missing credentials are reported
// by Search, not here.
func NewGoogleClient(cfg config.SearchConfig, opts ...Option) *GoogleClient {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	g := &GoogleClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		engineID:   cfg.EngineID,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

type googleResponse struct {
	Items []struct {
		Title       string `json:"title"`
		HTMLTitle   string `json:"htmlTitle"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		HTMLSnippet string `json:"htmlSnippet"`
		DisplayLink string `json:"displayLink"`
	} `json:"items"`
}

// Search runs q. A response without items is an empty result, not an error.
func (g *GoogleClient) Search(ctx context.Context, q Query) ([]Result, error) {
	var missing []string
	if g.apiKey == "" {
		missing = append(missing, "GOOGLE_SEARCH_API_KEY")
	}
	if g.engineID == "" {
		missing = append(missing, "GOOGLE_SEARCH_CX")
	}
	if len(missing) > 0 {
		return nil, &common.ConfigurationError{Service: "google search", Missing: missing}
	}
	num := q.Num
	if num <= 0 || num > 10 {
		num = 10
	}
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", q.Text)
	params.Set("num", strconv.Itoa(num))
	params.Set("gl", "uk")
	params.Set("cr", "countryUK")

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for search rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logger := common.Logger()
	logger.Debug("search: querying google", "query", q.Text, "num", num)
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &common.UpstreamError{Service: "google search", Op: "query", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		logger.Error("search: google returned error", "status", resp.StatusCode, "body", string(body))
		return nil, &common.UpstreamError{Service: "google search", Op: "query", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	var payload googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &common.UpstreamError{Service: "google search", Op: "decode", Err: err}
	}

	results := make([]Result, 0, len(payload.Items))
	for _, item := range payload.Items {
		if strings.TrimSpace(item.Link) == "" {
			continue
		}
		results = append(results, Result{
			Title:   pickText(item.HTMLTitle, item.Title),
			Link:    item.Link,
			Snippet: pickText(item.HTMLSnippet, item.Snippet),
			Domain:  domainOf(item.Link, item.DisplayLink),
		})
	}
	logger.Info("search: google query complete", "query", q.Text, "results", len(results))
	return results, nil
}

// pickText prefers the HTML variant rendered to plain text, which keeps
// entity-decoded characters the plain field sometimes truncates.
func pickText(html, plain string) string {
	if strings.TrimSpace(html) != "" {
		if text := htmlToText(html); text != "" {
			return text
		}
	}
	return strings.TrimSpace(plain)
}

func htmlToText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	doc.Find("br").ReplaceWithHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func domainOf(link, display string) string {
	if u, err := url.Parse(link); err == nil && u.Hostname() != "" {
		return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}
	return strings.TrimPrefix(strings.ToLower(display), "www.")
}
