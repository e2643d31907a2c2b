package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBytes = 4 << 20

// restClient is the thin HTTP layer shared by the REST-based providers.
// Every call goes through the retry policy.
type restClient struct {
	http  *http.Client
	retry retryPolicy
}

func newRESTClient(client *http.Client) *restClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &restClient{http: client, retry: defaultRetryPolicy()}
}

// doJSON sends an optional JSON body and decodes the JSON response into out
// when out is non-nil. Error messages deliberately omit the URL; provider
// URLs can carry access tokens in query parameters.
func (r *restClient) doJSON(ctx context.Context, method, url string, headers map[string]string, in, out any) (int, error) {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
	}

	build := func() (*http.Request, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequest(method, url, body)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}

	resp, err := r.retry.doRequest(ctx, r.http, build)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("%s request failed with status %d: %s", method, resp.StatusCode, truncateForLog(data))
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func truncateForLog(data []byte) string {
	const limit = 256
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}
