// Package wikipedia implements the knowledge-lookup gateway against the
// MediaWiki action API.
package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"colloquy/internal/domain"
	"colloquy/internal/infra/config"
)

var _ domain.KnowledgeSource = (*Client)(nil)

const (
	defaultTimeout   = 10 * time.Second
	defaultCacheSize = 128
	defaultRPM       = 30
	defaultUserAgent = "colloquy/1.0 (https://github.com/colloquy/colloquy)"

	maxResponseBody = 4 * 1024 * 1024
)

// Client fetches article summaries from a MediaWiki endpoint. Lookups are
// rate limited and successful summaries are cached; not-found results are
// cached too so repeated bad directives do not hit the network.
type Client struct {
	endpoint  string // full api.php URL, language already applied
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	cache     *lru.Cache[string, cacheEntry]
	logger    *slog.Logger
}

type cacheEntry struct {
	summary string
	found   bool
}

// New creates a Wikipedia client. The language selects the wiki subdomain
// unless an explicit endpoint override is given via WithEndpoint.
func New(cfg config.KnowledgeConfig, logger *slog.Logger) (*Client, error) {
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = defaultRPM
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &Client{
		endpoint:  fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang),
		userAgent: ua,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		cache:     cache,
		logger:    logger,
	}, nil
}

// WithEndpoint overrides the API endpoint. Used in tests and for private
// MediaWiki installs.
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

// Summary implements domain.KnowledgeSource. It tries an exact-title intro
// extract first, then falls back to a full-text search and fetches the top
// hit. A missing article is reported as domain.ErrNotFound, which callers
// treat as an ordinary outcome rather than a failure.
func (c *Client) Summary(ctx context.Context, query, lang string) (string, error) {
	if query == "" {
		return "", domain.NewDomainError("wikipedia.Summary", domain.ErrInvalidInput, "empty query")
	}

	key := lang + ":" + query
	if hit, ok := c.cache.Get(key); ok {
		if !hit.found {
			return "", domain.ErrNotFound
		}
		return hit.summary, nil
	}

	summary, err := c.extractByTitle(ctx, query)
	if err == nil {
		c.cache.Add(key, cacheEntry{summary: summary, found: true})
		return summary, nil
	}
	if !isNotFound(err) {
		return "", err
	}

	title, err := c.searchTitle(ctx, query)
	if err != nil {
		if isNotFound(err) {
			c.cache.Add(key, cacheEntry{})
		}
		return "", err
	}

	summary, err = c.extractByTitle(ctx, title)
	if err != nil {
		if isNotFound(err) {
			c.cache.Add(key, cacheEntry{})
		}
		return "", err
	}
	c.cache.Add(key, cacheEntry{summary: summary, found: true})
	return summary, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

type queryResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Missing *any   `json:"missing,omitempty"`
		} `json:"pages"`
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// extractByTitle fetches the plain-text intro extract for an exact title.
func (c *Client) extractByTitle(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":          {"query"},
		"format":          {"json"},
		"prop":            {"extracts"},
		"exintro":         {"1"},
		"explaintext":     {"1"},
		"redirects":       {"1"},
		"titles":          {title},
		"exsectionformat": {"plain"},
	}

	var resp queryResponse
	if err := c.doQuery(ctx, params, &resp); err != nil {
		return "", err
	}

	for id, page := range resp.Query.Pages {
		if id == "-1" || page.Missing != nil || page.Extract == "" {
			continue
		}
		return page.Extract, nil
	}
	return "", domain.ErrNotFound
}

// searchTitle runs a full-text search and returns the top hit's title.
func (c *Client) searchTitle(ctx context.Context, query string) (string, error) {
	params := url.Values{
		"action":   {"query"},
		"format":   {"json"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"1"},
	}

	var resp queryResponse
	if err := c.doQuery(ctx, params, &resp); err != nil {
		return "", err
	}
	if len(resp.Query.Search) == 0 {
		return "", domain.ErrNotFound
	}
	return resp.Query.Search[0].Title, nil
}

func (c *Client) doQuery(ctx context.Context, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
