// Package search wraps the external ranked-lookup collaborator. The engine
// treats it as a black box: a query goes in, an ordered pid list comes out,
// and the snapshot is filtered to that list preserving its order.
package search

import (
	"context"
	"fmt"
	"sync/atomic"

	pkghttp "FreshSnap/pkg/http"
	applogger "FreshSnap/pkg/logger"
)

// Client calls the search collaborator over HTTP.
type Client struct {
	http    *pkghttp.Client
	baseURL string
	log     *applogger.Logger

	available atomic.Bool
}

func NewClient(httpClient *pkghttp.Client, baseURL string, log *applogger.Logger) *Client {
	return &Client{http: httpClient, baseURL: baseURL, log: log}
}

// Available reports whether search was reachable at the last probe. When
// false, callers fall back to substring matching over the snapshot.
func (c *Client) Available() bool {
	return c.baseURL != "" && c.available.Load()
}

// Probe checks the collaborator once and records the result. Called at
// startup; search being down is degraded service, not a startup failure.
func (c *Client) Probe(ctx context.Context) bool {
	if c.baseURL == "" {
		c.available.Store(false)
		return false
	}
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.baseURL + "/health",
	}, nil)
	ok := err == nil
	c.available.Store(ok)
	if !ok {
		c.log.Warn("search collaborator unavailable", applogger.Error(err))
	}
	return ok
}

// Reindex asks the collaborator to rebuild its instrument index. Fired
// after reference data is cleared so search stops ranking stale names.
func (c *Client) Reindex(ctx context.Context) error {
	if c.baseURL == "" {
		return nil
	}
	return c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    c.baseURL + "/reindex",
		Body:   map[string]string{"scope": "instruments"},
	}, nil)
}

type queryResponse struct {
	PIDs []string `json:"pids"`
}

// Query returns pids ranked by relevance for the query string.
func (c *Client) Query(ctx context.Context, q string, limit int) ([]string, error) {
	if !c.Available() {
		return nil, fmt.Errorf("search unavailable")
	}
	var resp queryResponse
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.baseURL + "/search",
		QueryParams: map[string][]string{
			"q":     {q},
			"limit": {fmt.Sprintf("%d", limit)},
		},
	}, &resp)
	if err != nil {
		c.available.Store(false)
		return nil, fmt.Errorf("search query: %w", err)
	}
	return resp.PIDs, nil
}
