// Package morpho implements the query client for the lending protocol's
// public GraphQL API.
package morpho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"morpho-exposure-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout      = 60 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 1 * time.Second
	DefaultMaxDelay     = 10 * time.Second
	DefaultBackoffMult  = 2.0
	DefaultRequestDelay = 300 * time.Millisecond
)

// Client issues GraphQL queries over HTTP with retries, exponential backoff
// and a shared inter-request delay gate. The gate is global to the client:
// every caller, on every goroutine, draws from the same budget.
type Client struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	gate        *rateGate
	chainNames  map[int64]string
	logger      *log.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRequestDelay sets the shared minimum delay between requests.
func WithRequestDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.gate = newRateGate(d)
	}
}

// WithChainNames sets the chain id → name mapping used when converting
// raw records.
func WithChainNames(names map[int64]string) ClientOption {
	return func(c *Client) {
		c.chainNames = names
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new API client.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		gate:        newRateGate(DefaultRequestDelay),
		chainNames:  map[int64]string{},
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// gqlRequest is the POST body of a GraphQL query. Queries are built with
// all arguments interpolated, so no variables object is sent.
type gqlRequest struct {
	Query string `json:"query"`
}

// gqlResponse is the envelope of a GraphQL response.
type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// gqlError is one entry of the response errors array.
type gqlError struct {
	Message string `json:"message"`
}

func (e *gqlError) Error() string {
	return fmt.Sprintf("graphql error: %s", e.Message)
}

// retryable reports whether a GraphQL-level error is worth retrying.
// The API surfaces transient timeouts and rate limiting as in-band errors.
func (e *gqlError) retryable() bool {
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "rate")
}

// query performs a GraphQL call with retries and exponential backoff,
// decoding the data envelope into result. The operation tag labels the
// request metrics.
func (c *Client) query(ctx context.Context, operation, query string, result interface{}) error {
	body, err := json.Marshal(gqlRequest{Query: query})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	defer func() {
		observability.RecordAPILatency(operation, time.Since(start).Seconds())
	}()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			observability.RecordAPIRetry()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}
		observability.RecordAPIRequest(operation)

		if err := c.gate.wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			observability.RecordAPIError("http")
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			observability.RecordAPIError("read")
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			observability.RecordAPIError("rate_limited")
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			observability.RecordAPIError("server")
			lastErr = fmt.Errorf("server error %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			observability.RecordAPIError("status")
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		var envelope gqlResponse
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			observability.RecordAPIError("decode")
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if len(envelope.Errors) > 0 {
			gerr := &envelope.Errors[0]
			observability.RecordAPIError("graphql")
			if gerr.retryable() {
				lastErr = gerr
				continue
			}
			return gerr
		}

		if result != nil && envelope.Data != nil {
			dec := json.NewDecoder(bytes.NewReader(envelope.Data))
			dec.UseNumber()
			if err := dec.Decode(result); err != nil {
				observability.RecordAPIError("decode")
				return fmt.Errorf("unmarshal data: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// chainName resolves a chain id against the configured mapping.
func (c *Client) chainName(chainID int64) string {
	if name, ok := c.chainNames[chainID]; ok {
		return name
	}
	return fmt.Sprintf("%d", chainID)
}
