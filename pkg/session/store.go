package session

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/zalando/go-keyring"

	"xqcrawl/pkg/errors"
	"xqcrawl/pkg/logger"
)

const (
	// BaseURL is the site origin sent as Referer and Origin.
	BaseURL = "https://xueqiu.com"

	keyringService = "xqcrawl"
	keyringKey     = "cookies"

	envCookies = "XQCRAWL_COOKIES"
)

// loginPaths are the URL markers of a login redirect. A response whose
// resolved URL contains one of these means the cookies no longer
// authenticate the session.
var loginPaths = []string{"/login", "/user/login"}

// Credentials maps cookie names to values.
type Credentials map[string]string

// Store owns the authentication material for one session: the cookie set
// and the static request headers. Expiry is a sticky latch; once set, no
// request may be attempted until the cookies are reloaded.
type Store struct {
	creds     Credentials
	userAgent string
	source    string
	path      string
	expired   atomic.Bool
	logger    logger.Logger
}

// Options configures credential loading.
type Options struct {
	// CookiesFile is the path of the cookies JSON file. Empty tries the
	// default config/cookies.json.
	CookiesFile string
	// UserAgent is sent with every request.
	UserAgent string
	Logger    logger.Logger
}

// Load builds a session store, trying the cookie file, then the
// XQCRAWL_COOKIES environment variable, then the OS keyring. Credentials
// missing everywhere is a fatal configuration error, not a retryable one.
func Load(opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	path := opts.CookiesFile
	if path == "" {
		path = "config/cookies.json"
	}

	s := &Store{userAgent: opts.UserAgent, path: path, logger: log}

	if creds, err := loadFromFile(path); err == nil {
		s.creds = creds
		s.source = "file"
	} else if creds, err := loadFromEnv(); err == nil {
		s.creds = creds
		s.source = "env"
	} else if creds, err := loadFromKeyring(); err == nil {
		s.creds = creds
		s.source = "keyring"
	} else {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"no cookies configured: create %s (see cookies.json.example), set %s, or run `xqcrawl auth import`",
			path, envCookies)
	}

	log.InfoWithFields("session credentials loaded", map[string]interface{}{
		"source":  s.source,
		"cookies": len(s.creds),
	})
	return s, nil
}

func loadFromFile(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseCredentials(data)
}

func loadFromEnv() (Credentials, error) {
	raw := os.Getenv(envCookies)
	if raw == "" {
		return nil, fmt.Errorf("%s not set", envCookies)
	}
	return parseCredentials([]byte(raw))
}

func loadFromKeyring() (Credentials, error) {
	raw, err := keyring.Get(keyringService, keyringKey)
	if err != nil {
		return nil, err
	}
	return parseCredentials([]byte(raw))
}

// parseCredentials decodes a cookie-name to value mapping, dropping
// explanatory keys (the shipped example file documents each cookie with a
// companion "<name>_说明" entry).
func parseCredentials(data []byte) (Credentials, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Newf(errors.ErrorTypeConfig, "cookies are not a valid JSON object: %v", err)
	}
	creds := make(Credentials, len(raw))
	for name, value := range raw {
		if strings.HasSuffix(name, "说明") {
			continue
		}
		creds[name] = value
	}
	if len(creds) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "cookie set is empty")
	}
	return creds, nil
}

// SaveToKeyring stores a cookie file's contents in the OS keyring so runs
// no longer need the file on disk.
func SaveToKeyring(cookiesFile string) error {
	data, err := os.ReadFile(cookiesFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cookiesFile, err)
	}
	if _, err := parseCredentials(data); err != nil {
		return err
	}
	if err := keyring.Set(keyringService, keyringKey, string(data)); err != nil {
		return fmt.Errorf("failed to store cookies in keyring: %w", err)
	}
	return nil
}

// ClearKeyring removes stored cookies from the OS keyring.
func ClearKeyring() error {
	if err := keyring.Delete(keyringService, keyringKey); err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("failed to clear keyring: %w", err)
	}
	return nil
}

// Headers returns the static request headers for this session.
func (s *Store) Headers() map[string]string {
	return map[string]string{
		"User-Agent":      s.userAgent,
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "zh-CN,zh;q=0.9",
		"Referer":         BaseURL,
		"Origin":          BaseURL,
	}
}

// CookieHeader renders the cookie set as a Cookie header value, sorted by
// name for deterministic requests.
func (s *Store) CookieHeader() string {
	names := make([]string, 0, len(s.creds))
	for name := range s.creds {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+s.creds[name])
	}
	return strings.Join(pairs, "; ")
}

// Cookies returns a copy of the credential map. Borrowers must not mutate
// the session through it.
func (s *Store) Cookies() Credentials {
	out := make(Credentials, len(s.creds))
	for k, v := range s.creds {
		out[k] = v
	}
	return out
}

// IsExpiredSignal reports whether a resolved response URL indicates a
// login redirect.
func (s *Store) IsExpiredSignal(resolvedURL string) bool {
	for _, p := range loginPaths {
		if strings.Contains(resolvedURL, p) {
			return true
		}
	}
	return false
}

// MarkExpired latches the session as expired.
func (s *Store) MarkExpired() {
	if s.expired.CompareAndSwap(false, true) {
		s.logger.Error("session cookies are expired; refresh them and re-run")
	}
}

// Expired reports whether the session has been latched as expired.
func (s *Store) Expired() bool {
	return s.expired.Load()
}

// Reload re-reads credentials from the original source and clears the
// expiry latch.
func (s *Store) Reload() error {
	var (
		creds Credentials
		err   error
	)
	switch s.source {
	case "file":
		creds, err = loadFromFile(s.path)
	case "env":
		creds, err = loadFromEnv()
	case "keyring":
		creds, err = loadFromKeyring()
	default:
		return errors.New(errors.ErrorTypeConfig, "session has no credential source")
	}
	if err != nil {
		return err
	}
	s.creds = creds
	s.expired.Store(false)
	return nil
}
