package provider

import (
	"context"
	"net/http"
	"time"
)

// retryPolicy is a conservative retry-with-backoff wrapper applied to every
// outbound provider HTTP call. Only transport errors and retryable status
// codes (429 and 5xx) are retried; client errors return immediately.
type retryPolicy struct {
	attempts  int
	baseDelay time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: 3, baseDelay: 500 * time.Millisecond}
}

// doRequest executes the request returned by build, retrying with doubling
// delays. The builder is invoked per attempt so request bodies are fresh.
func (p retryPolicy) doRequest(ctx context.Context, client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	attempts := p.attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := p.baseDelay
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			continue
		}
		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		resp.Body.Close()
		lastErr = &httpStatusError{status: resp.StatusCode}
	}
	return nil, lastErr
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return "upstream returned " + http.StatusText(e.status)
}
