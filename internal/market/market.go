// Package market fetches Taiwan stock quotes and daily history from the
// Yahoo Finance REST API.
package market

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// DataUnavailableError reports that the provider could not deliver price
// data for a symbol (network failure, unknown symbol, market closed with
// no data). Callers turn it into a user-facing reply.
type DataUnavailableError struct {
	Symbol string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data unavailable for %s: %v", e.Symbol, e.Err)
	}
	return fmt.Sprintf("data unavailable for %s", e.Symbol)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// Client is a Yahoo Finance REST client.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu    sync.RWMutex
	names map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a Yahoo Finance client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		names:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// yahooSymbol converts a Taiwan stock id to its Yahoo Finance symbol.
func yahooSymbol(symbol string) string {
	return symbol + ".TW"
}
