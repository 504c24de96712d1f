// internal/common/httpclient/client.go
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	wferr "loan-workflow/internal/common/errors"
	"loan-workflow/internal/common/logger"
	"loan-workflow/pkg/backoff"
)

// Client is a JSON HTTP client with the engine's retry ladder:
//   - 503 and transport errors retry with exponential backoff, bounded;
//   - 429 retries once after the collaborator-specified delay, a second 429
//     is treated as 503;
//   - after the final backoff window one extra re-check is made before the
//     terminal SERVICE_UNAVAILABLE is surfaced.
type Client struct {
	service    string
	httpClient *http.Client
	policy     backoff.Policy
	logger     logger.Logger

	// sleep is injectable so tests can skip real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

// WithPolicy overrides the default backoff schedule.
func WithPolicy(p backoff.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithSleeper replaces the delay function, for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

func New(service string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		service:    service,
		httpClient: &http.Client{Timeout: timeout},
		policy:     backoff.Default,
		logger:     log.WithFields(map[string]interface{}{"service": service}),
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DoJSON performs one logical request, retrying per the ladder above. body is
// marshalled when non-nil; the response is unmarshalled into out when out is
// non-nil and the response carries a body.
func (c *Client) DoJSON(ctx context.Context, method, url string, body, out interface{}, headers map[string]string) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	rateLimitUsed := false
	attempt := 0
	for {
		err := c.doOnce(ctx, method, url, payload, out, headers)
		if err == nil {
			return nil
		}

		switch wferr.CodeOf(err) {
		case wferr.ErrCodeRateLimited:
			if rateLimitUsed {
				// Recurring 429 is treated as an outage.
				err = wferr.NewServiceUnavailable(c.service, err)
				break
			}
			rateLimitUsed = true
			delay := retryAfterOf(err)
			c.logger.Warn("rate limited, honoring retry-after", map[string]interface{}{
				"url":   url,
				"delay": delay.String(),
			})
			if serr := c.sleep(ctx, delay); serr != nil {
				return serr
			}
			continue
		case wferr.ErrCodeServiceUnavailable, wferr.ErrCodeTimeout:
			// fall through to backoff below
		default:
			return err
		}

		if c.policy.Exhausted(attempt + 1) {
			// One-shot re-check after the final backoff window, then give up.
			if serr := c.sleep(ctx, c.policy.Delay(attempt)); serr != nil {
				return serr
			}
			if ferr := c.doOnce(ctx, method, url, payload, out, headers); ferr == nil {
				return nil
			}
			return err
		}

		c.logger.Warn("collaborator call failed, retrying", map[string]interface{}{
			"url":     url,
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
		if serr := c.sleep(ctx, c.policy.Delay(attempt)); serr != nil {
			return serr
		}
		attempt++
	}
}

func (c *Client) doOnce(ctx context.Context, method, url string, payload []byte, out interface{}, headers map[string]string) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return wferr.NewTimeout(c.service, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return wferr.NewRateLimited(c.service, parseRetryAfter(resp))
	case resp.StatusCode == http.StatusServiceUnavailable:
		return wferr.NewServiceUnavailable(c.service, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return wferr.NewNotFound(c.service, url)
	case resp.StatusCode == http.StatusConflict:
		return wferr.NewConflict(fmt.Sprintf("%s returned 409", c.service))
	case resp.StatusCode >= 400:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return wferr.NewValidationFailed(fmt.Sprintf("%s returned %d: %s", c.service, resp.StatusCode, string(b)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.service, err)
	}
	return nil
}

func parseRetryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 2 * time.Second
}

func retryAfterOf(err error) time.Duration {
	if we, ok := err.(*wferr.WorkflowError); ok {
		if ms, ok := we.Metadata["retryAfterMs"].(int64); ok && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return 2 * time.Second
}
