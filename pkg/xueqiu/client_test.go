package xueqiu

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xqcrawl/pkg/config"
	"xqcrawl/pkg/errors"
	"xqcrawl/pkg/logger"
	"xqcrawl/pkg/ratelimit"
	"xqcrawl/pkg/session"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.RateLimit.MinInterval = 0
	cfg.RateLimit.MaxInterval = 0
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.BaseDelay = 0.001
	return cfg
}

func testSession(t *testing.T) *session.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"xq_a_token": "tok"}`), 0600))
	s, err := session.Load(session.Options{CookiesFile: path, UserAgent: "test", Logger: logger.Nop()})
	require.NoError(t, err)
	return s
}

func testClient(t *testing.T, cfg *config.Config, serverURL string) *Client {
	t.Helper()
	c := NewClient(cfg, testSession(t), ratelimit.NewIntervalLimiter(cfg.RateLimit.Min(), cfg.RateLimit.Max()), logger.Nop())
	c.baseURL = serverURL
	return c
}

func TestGetRetriesServerErrorsUntilExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Retry.MaxAttempts = 2
	c := testClient(t, cfg, server.URL)

	_, err := c.Get(context.Background(), "/anything", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransportExhausted))
	// maxAttempts = 2 means 3 total tries.
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestGetRecoversAfterTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := testClient(t, testConfig(), server.URL)
	resp, err := c.Get(context.Background(), "/anything", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestGetLoginRedirectFailsWithoutRetry(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/user/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>login</html>"))
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Redirect(w, r, "/user/login", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := testClient(t, testConfig(), server.URL)
	_, err := c.Get(context.Background(), "/data", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCredentialsExpired))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "login redirect must not be retried")
	assert.True(t, c.Session().Expired(), "session must be latched expired")

	// Subsequent requests through the doomed session fail immediately.
	_, err = c.Get(context.Background(), "/data", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCredentialsExpired))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGetReturns4xxToCaller(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := testClient(t, testConfig(), server.URL)
	resp, err := c.Get(context.Background(), "/missing", nil)
	require.NoError(t, err, "4xx is a response, not a transport failure")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetJSONMalformedBodyNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"truncated":`))
	}))
	defer server.Close()

	c := testClient(t, testConfig(), server.URL)
	var out map[string]interface{}
	err := c.GetJSON(context.Background(), "/data", nil, &out)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformed))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "parse failures must not be retried")
}

func TestGetJSONChallengePageSignalsBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div id="nc_1_wrapper">滑动验证</div></body></html>`))
	}))
	defer server.Close()

	c := testClient(t, testConfig(), server.URL)
	var out map[string]interface{}
	err := c.GetJSON(context.Background(), "/statuses/original/timeline.json", nil, &out)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeBlocked))
}

func TestGetJSONForbiddenChallengeSignalsBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<html><script src="x5sec.js"></script></html>`))
	}))
	defer server.Close()

	c := testClient(t, testConfig(), server.URL)
	var out map[string]interface{}
	err := c.GetJSON(context.Background(), "/data", nil, &out)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeBlocked))
}

func TestGetJSONSendsSessionHeaders(t *testing.T) {
	var gotCookie, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := testClient(t, testConfig(), server.URL)
	var out map[string]interface{}
	require.NoError(t, c.GetJSON(context.Background(), "/data", url.Values{"page": {"1"}}, &out))
	assert.Equal(t, "xq_a_token=tok", gotCookie)
	assert.Equal(t, "test", gotUA)
}
