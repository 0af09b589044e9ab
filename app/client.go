package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"docsearch/search"
	"docsearch/server"
)

// SearchClient queries a running docsearch server.
type SearchClient struct {
	BaseURL string
	HTTP    *http.Client
}

// NewSearchClient creates a client for the server at baseURL.
func NewSearchClient(baseURL string) *SearchClient {
	return &SearchClient{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: searchTimeout + 10*time.Second},
	}
}

// Search issues GET /api/search. A non-200 reply is returned as an error
// carrying the server's message.
func (c *SearchClient) Search(ctx context.Context, query string, fullText bool) ([]search.Result, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", c.BaseURL, err)
	}
	u = u.JoinPath("api", "search")
	q := url.Values{}
	q.Set("q", query)
	q.Set("fullText", strconv.FormatBool(fullText))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e server.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			return nil, fmt.Errorf("search: %s", resp.Status)
		}
		return nil, fmt.Errorf("search: %s (%s)", e.Error, resp.Status)
	}

	var results []search.Result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	if results == nil {
		results = []search.Result{}
	}
	return results, nil
}
