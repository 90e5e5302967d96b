package http

import (
	"context"
	"net/http"
	"time"
)

// Client retries idempotent requests on transport errors, 429 and 5xx.
type Client struct {
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: 2,
		backoff:    200 * time.Millisecond,
	}
}

// WithRetries returns a copy of c using n retries and a linear backoff step.
func (c *Client) WithRetries(n int, backoff time.Duration) *Client {
	cp := *c
	cp.maxRetries = n
	cp.backoff = backoff
	return &cp
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if !retryable(req) {
		return c.httpClient.Do(req)
	}

	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, berr
			}
			req.Body = body
		}

		resp, err = c.httpClient.Do(req)
		if attempt >= c.maxRetries || !shouldRetry(resp, err) {
			return resp, err
		}
		if resp != nil {
			resp.Body.Close()
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(time.Duration(attempt+1) * c.backoff):
		}
	}
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.Do(req.WithContext(ctx))
}

func retryable(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return req.Body == nil || req.GetBody != nil
	}
	return false
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}
