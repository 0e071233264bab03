package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/rickgao/barsync/internal/model"
)

// APIError represents an error status from the gateway.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aktools api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// doRequest performs an HTTP request with the given method and path.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// maxRetryBackoff caps the delay between retries.
const maxRetryBackoff = time.Minute

// nextBackoff doubles b up to maxRetryBackoff.
func nextBackoff(b time.Duration) time.Duration {
	if b <= 0 || b >= maxRetryBackoff/2 {
		return maxRetryBackoff
	}
	return b * 2
}

// doWithRetry performs a request with exponential backoff retry.
// With maxRetries == 0 the first error is returned as is.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := min(c.retryBackoff, maxRetryBackoff)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff = nextBackoff(backoff)
		}

		body, err := c.doRequest(ctx, method, path, query)
		if err == nil {
			return body, nil
		}

		lastErr = err

		// Check if error is retryable
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	if c.maxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// getTable calls a gateway function and decodes its records.
// Every failure is reported as model.ErrProviderUnavailable.
func (c *Client) getTable(ctx context.Context, function string, query url.Values) (model.RawTable, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, "/api/public/"+function, query)
	if err != nil {
		return model.RawTable{}, fmt.Errorf("%w: %s: %w", model.ErrProviderUnavailable, function, err)
	}

	table, err := decodeTable(body)
	if err != nil {
		return model.RawTable{}, fmt.Errorf("%w: %s: %w", model.ErrProviderUnavailable, function, err)
	}

	return table, nil
}
