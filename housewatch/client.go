package housewatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultURL is the public S3 object holding every House transaction.
	DefaultURL = "https://house-stock-watcher-data.s3-us-west-2.amazonaws.com/data/all_transactions.json"
	// DefaultTimeout bounds the whole request, body included.
	DefaultTimeout = 30 * time.Second
)

// Client fetches the House Stock Watcher transaction feed.
type Client struct {
	url        string
	httpClient *http.Client
	log        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithURL points the client at a mirror of the feed.
func WithURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.url = u
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a feed client
func NewClient(opts ...Option) *Client {
	c := &Client{
		url: DefaultURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the feed location.
func (c *Client) URL() string {
	return c.url
}

// FetchTransactions downloads the full feed. Elements that are not objects,
// or that carry composite values in known fields, are skipped so that one bad
// entry does not lose the rest.
func (c *Client) FetchTransactions(ctx context.Context) ([]Trade, error) {
	log := c.log.With(zap.String("url", c.url))
	log.Debug("fetching transactions")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: classify(err), Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			Kind:       KindNetwork,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body)),
		}
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		kind := KindDecode
		if isTimeout(err) {
			kind = KindTimeout
		}
		return nil, &FetchError{Kind: kind, Err: fmt.Errorf("decode response: %w", err)}
	}
	if raw == nil {
		return nil, &FetchError{Kind: KindDecode, Err: errors.New("decode response: expected a JSON array")}
	}

	trades := make([]Trade, 0, len(raw))
	skipped := 0
	for i, elem := range raw {
		var t Trade
		if err := json.Unmarshal(elem, &t); err != nil {
			skipped++
			log.Debug("skipping malformed transaction", zap.Int("index", i), zap.Error(err))
			continue
		}
		trades = append(trades, t)
	}
	if skipped > 0 {
		log.Warn("skipped malformed transactions", zap.Int("skipped", skipped))
	}

	log.Info("fetched transactions", zap.Int("count", len(trades)))
	return trades, nil
}

func classify(err error) ErrorKind {
	if isTimeout(err) {
		return KindTimeout
	}
	return KindNetwork
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
