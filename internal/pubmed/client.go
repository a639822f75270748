// Package pubmed fetches literature references from the NCBI eutils
// API (esearch + esummary) and formats them for report inclusion.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go-imaging-report/internal/logger"
)

const (
	esearchURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	esummaryURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi"

	maxCacheEntries = 32
)

// Fetcher retrieves formatted citation strings for a query.
type Fetcher interface {
	FetchReferences(ctx context.Context, query string, maxResults int) ([]string, error)
}

// Client talks to eutils with a bounded in-memory query cache.
// Identical queries within one process reuse the first response.
type Client struct {
	apiKey     string
	http       *http.Client
	searchURL  string
	summaryURL string

	mu    sync.Mutex
	cache map[string][]string
}

func NewClient(apiKey string, timeout time.Duration) *Client {
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
	return &Client{
		apiKey: apiKey,
		http: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		searchURL:  esearchURL,
		summaryURL: esummaryURL,
		cache:      make(map[string][]string),
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type articleSummary struct {
	Title   string `json:"title"`
	PubDate string `json:"pubdate"`
	Source  string `json:"source"`
}

// FetchReferences returns up to maxResults formatted citations for the
// query. Returns an empty slice when the query matches nothing; the
// caller decides whether that omits the references section.
func (c *Client) FetchReferences(ctx context.Context, query string, maxResults int) ([]string, error) {
	if query == "" || !c.Enabled() {
		return nil, nil
	}

	cacheKey := query + "|" + strconv.Itoa(maxResults)
	c.mu.Lock()
	if cached, ok := c.cache[cacheKey]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	ids, err := c.search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		logger.WithStage("pubmed").WithField("query", query).Info("no articles matched")
		return nil, nil
	}

	refs, err := c.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.cache) >= maxCacheEntries {
		// Bounded cache: reset rather than evict selectively.
		c.cache = make(map[string][]string)
	}
	c.cache[cacheKey] = refs
	c.mu.Unlock()
	return refs, nil
}

func (c *Client) search(ctx context.Context, query string, maxResults int) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmode": {"json"},
		"retmax":  {strconv.Itoa(maxResults)},
		"api_key": {c.apiKey},
	}
	var parsed esearchResponse
	if err := c.getJSON(ctx, c.searchURL, params, &parsed); err != nil {
		return nil, fmt.Errorf("pubmed search: %w", err)
	}
	return parsed.ESearchResult.IDList, nil
}

func (c *Client) summaries(ctx context.Context, ids []string) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {joinIDs(ids)},
		"retmode": {"json"},
		"api_key": {c.apiKey},
	}
	var parsed esummaryResponse
	if err := c.getJSON(ctx, c.summaryURL, params, &parsed); err != nil {
		return nil, fmt.Errorf("pubmed summaries: %w", err)
	}

	refs := make([]string, 0, len(ids))
	for _, id := range ids {
		raw, ok := parsed.Result[id]
		if !ok {
			continue
		}
		var article articleSummary
		if err := json.Unmarshal(raw, &article); err != nil {
			continue
		}
		if article.Title == "" {
			article.Title = "No title"
		}
		if article.PubDate == "" {
			article.PubDate = "Unknown date"
		}
		if article.Source == "" {
			article.Source = "Unknown source"
		}
		refs = append(refs, fmt.Sprintf("**%s** (%s, %s) [Read more](https://pubmed.ncbi.nlm.nih.gov/%s/)",
			article.Title, article.PubDate, article.Source, id))
	}
	return refs, nil
}

// getJSON issues a GET with two retries on transient failures.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			resp.Body.Close()
			return fmt.Errorf("client error: status code %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("request failed after 3 attempts: %w", lastErr)
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += id
	}
	return out
}
