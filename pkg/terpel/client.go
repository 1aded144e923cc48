// Package terpel fetches the public Terpel station feed and normalizes
// its records into the canonical station schema.
package terpel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// Source tags every station ingested from this provider and
	// namespaces the derived ids.
	Source = "terpel"

	brand          = "Terpel"
	defaultBaseURL = "https://www.terpel.com/api/map_points/eds"
	// DefaultTimeout bounds one feed request.
	DefaultTimeout = 20 * time.Second
)

// FetchError reports that the feed itself was unreachable or unusable.
// Unlike per-record failures it is fatal to the whole ingestion run.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching terpel feed %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client fetches raw station records from the Terpel feed.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a feed client with default settings.
func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// NewClientWithURL creates a feed client against a custom endpoint.
func NewClientWithURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// FetchStations downloads and decodes the full station feed. Any
// transport, HTTP or decode failure is returned as a *FetchError.
func (c *Client) FetchStations(ctx context.Context) ([]RawStation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, http.NoBody)
	if err != nil {
		return nil, &FetchError{URL: c.baseURL, Err: err}
	}
	// The feed rejects requests without a browser user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: c.baseURL, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: c.baseURL, Err: fmt.Errorf("reading response body: %w", err)}
	}

	var stations []RawStation
	if err := json.Unmarshal(body, &stations); err != nil {
		return nil, &FetchError{URL: c.baseURL, Err: fmt.Errorf("unmarshaling JSON: %w", err)}
	}

	return stations, nil
}
