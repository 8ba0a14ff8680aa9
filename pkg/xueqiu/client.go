package xueqiu

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"xqcrawl/pkg/config"
	"xqcrawl/pkg/errors"
	"xqcrawl/pkg/logger"
	"xqcrawl/pkg/ratelimit"
	"xqcrawl/pkg/retry"
	"xqcrawl/pkg/session"
)

// challengeMarkers identify the WAF's interactive slide-verification
// page when it is served in place of a JSON body.
var challengeMarkers = []string{"x5sec", "punish", "滑动验证", "captcha"}

// Client executes logical requests against the platform with rate
// limiting, bounded retry and session-expiry detection. It is constructed
// once and shared; everything flowing through it is paced by the single
// limiter instance.
type Client struct {
	httpClient  *http.Client
	session     *session.Store
	limiter     ratelimit.Limiter
	backoff     retry.BackoffStrategy
	maxAttempts int
	baseURL     string
	logger      logger.Logger
}

// NewClient builds a client from the engine configuration. The limiter is
// passed in rather than constructed here so callers can share one pacing
// point across channels.
func NewClient(cfg *config.Config, sess *session.Store, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.HTTP.Timeout()},
		session:     sess,
		limiter:     limiter,
		backoff:     retry.NewExponentialBackoff(cfg.Retry.Base()),
		maxAttempts: cfg.Retry.MaxAttempts,
		baseURL:     BaseURL,
		logger:      log,
	}
}

// Session exposes the session store so the orchestrator can inspect the
// expiry latch.
func (c *Client) Session() *session.Store {
	return c.session
}

// Get performs one logical GET with the full retry budget:
// maxAttempts+1 total tries, exponential backoff between retries only.
// Transport errors and 5xx responses are retried; a login redirect fails
// immediately with CredentialsExpired and latches the session. 4xx
// responses are returned to the caller for interpretation.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	target := path
	if !strings.HasPrefix(target, "http") {
		target = c.baseURL + target
	}
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff.NextDelay(attempt - 1)
			c.logger.WarnWithFields("retrying request", map[string]interface{}{
				"url":      target,
				"attempt":  attempt,
				"delay_ms": delay.Milliseconds(),
				"error":    lastErr.Error(),
			})
			if err := retry.Wait(ctx, delay); err != nil {
				return nil, err
			}
		}

		if c.session.Expired() {
			return nil, errors.New(errors.ErrorTypeCredentialsExpired,
				"session already marked expired; refresh cookies before retrying")
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.doRequest(ctx, target)
		if err != nil {
			lastErr = err
			continue
		}

		resolved := resp.Request.URL.String()
		if c.session.IsExpiredSignal(resolved) {
			resp.Body.Close()
			c.session.MarkExpired()
			return nil, errors.Newf(errors.ErrorTypeCredentialsExpired,
				"request for %s resolved to login page %s", target, resolved)
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = errors.Newf(errors.ErrorTypeTransport, "server returned status %d", resp.StatusCode).
				WithCode(resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, errors.Newf(errors.ErrorTypeTransportExhausted,
		"request failed after %d attempts: %v", c.maxAttempts+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeTransport, "failed to build request: %v", err)
	}
	for key, value := range c.session.Headers() {
		req.Header.Set(key, value)
	}
	req.Header.Set("Cookie", c.session.CookieHeader())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.WarnWithFields("request failed", map[string]interface{}{
			"url":   target,
			"error": err.Error(),
		})
		return nil, errors.Newf(errors.ErrorTypeTransport, "network error: %v", err)
	}

	c.logger.DebugWithFields("request completed", map[string]interface{}{
		"url":         resp.Request.URL.String(),
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return resp, nil
}

// GetJSON performs a GET and decodes the JSON body into target. A body
// that is not JSON is never retried: a challenge page maps to Blocked so
// the orchestrator can switch channels, anything else to
// MalformedResponse.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, target interface{}) error {
	resp, err := c.Get(ctx, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Newf(errors.ErrorTypeTransport, "failed to read response body: %v", err)
	}

	if resp.StatusCode == http.StatusForbidden && isChallengePage(body) {
		return errors.New(errors.ErrorTypeBlocked, "anti-bot challenge interposed on API channel").
			WithCode(resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return errors.Newf(errors.ErrorTypeMalformed, "unexpected status %d for %s", resp.StatusCode, path).
			WithCode(resp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		if isChallengePage(body) {
			return errors.New(errors.ErrorTypeBlocked, "challenge page served where JSON was expected")
		}
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		c.logger.ErrorWithFields("response is not valid JSON", map[string]interface{}{
			"url":     path,
			"preview": preview,
		})
		return errors.Newf(errors.ErrorTypeMalformed, "response is not valid JSON: %v", err)
	}
	return nil
}

func isChallengePage(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "<") {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
