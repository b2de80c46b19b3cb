// Package synology is a session-authenticated client for the Synology
// FileStation web API (webapi/auth.cgi and webapi/entry.cgi).
package synology

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"synolink/internal/logging"
	"synolink/internal/metrics"
)

const (
	endpointAuth  = "auth.cgi"
	endpointEntry = "entry.cgi"

	apiAuth         = "SYNO.API.Auth"
	apiList         = "SYNO.FileStation.List"
	apiDownload     = "SYNO.FileStation.Download"
	apiUpload       = "SYNO.FileStation.Upload"
	apiCreateFolder = "SYNO.FileStation.CreateFolder"
	apiDelete       = "SYNO.FileStation.Delete"
	apiInfo         = "SYNO.FileStation.Info"
	apiSearch       = "SYNO.FileStation.Search"

	sessionName = "FileStation"

	DefaultPollInterval = 500 * time.Millisecond

	maxErrorBodyChars = 512
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for every request.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithBaseURL replaces the http://host:port/webapi base URL.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithLogger sets the logger used for request failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logging.OrNop(l)
	}
}

// WithMetrics records every request on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = rec
	}
}

// WithFs sets the filesystem used to stage uploads.
func WithFs(fs afero.Fs) Option {
	return func(c *Client) {
		if fs != nil {
			c.fs = fs
		}
	}
}

// WithTempDir sets the directory for staged uploads.
func WithTempDir(dir string) Option {
	return func(c *Client) {
		c.tempDir = dir
	}
}

// WithPollInterval sets the delay between search polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithSleeper replaces the wait used between search polls.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// Client talks to one appliance and owns at most one session.
//
// The session id is shared by every call made through the same Client: a
// Logout running concurrently with another operation invalidates it for
// that operation's later requests.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	fs           afero.Fs
	tempDir      string
	pollInterval time.Duration
	sleep        Sleeper
	logger       *zap.Logger
	metrics      *metrics.Recorder

	mu  sync.Mutex
	sid string
}

// NewClient returns a client for http://host:port/webapi.
func NewClient(host string, port int, opts ...Option) *Client {
	c := &Client{
		baseURL:      fmt.Sprintf("http://%s:%d/webapi", host, port),
		httpClient:   &http.Client{},
		fs:           afero.NewOsFs(),
		tempDir:      os.TempDir(),
		pollInterval: DefaultPollInterval,
		sleep:        sleepContext,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the webapi base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Authenticated reports whether a session is held.
func (c *Client) Authenticated() bool {
	return c.session() != ""
}

func (c *Client) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sid
}

func (c *Client) setSession(sid string) {
	c.mu.Lock()
	c.sid = sid
	c.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func apiParams(api, version, method string) url.Values {
	params := url.Values{}
	params.Set("api", api)
	params.Set("version", version)
	params.Set("method", method)
	return params
}

// withSession adds _sid, failing when no session is held.
func (c *Client) withSession(params url.Values) (url.Values, error) {
	sid := c.session()
	if sid == "" {
		return nil, ErrNotAuthenticated
	}
	params.Set("_sid", sid)
	return params, nil
}

// get issues a GET and returns the raw body of a 2xx response.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	api, method := params.Get("api"), params.Get("method")
	reqURL := c.baseURL + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", api, method, err)
	}
	return c.do(req, api, method)
}

func (c *Client) do(req *http.Request, api, method string) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRemoteRequest(api, method, metrics.OutcomeError, time.Since(start))
		c.logger.Error("filestation request failed",
			zap.String("api", api), zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", api, method, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveRemoteRequest(api, method, metrics.OutcomeError, time.Since(start))
		c.logger.Error("filestation response read failed",
			zap.String("api", api), zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("%s %s: read response: %w", api, method, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.metrics.ObserveRemoteRequest(api, method, metrics.OutcomeError, time.Since(start))
		text := strings.TrimSpace(string(body))
		if len(text) > maxErrorBodyChars {
			text = text[:maxErrorBodyChars]
		}
		httpErr := &HTTPError{API: api, Method: method, StatusCode: resp.StatusCode, Body: text}
		c.logger.Error("filestation request rejected",
			zap.String("api", api), zap.String("method", method), zap.Int("status", resp.StatusCode))
		return nil, httpErr
	}

	c.metrics.ObserveRemoteRequest(api, method, metrics.OutcomeOK, time.Since(start))
	return body, nil
}

// call issues a GET and decodes the response envelope. Reported failures are
// left in the envelope for the caller to interpret.
func (c *Client) call(ctx context.Context, endpoint string, params url.Values) (*envelope, error) {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	return c.decodeEnvelope(body, params.Get("api"), params.Get("method"))
}

func (c *Client) decodeEnvelope(body []byte, api, method string) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Error("filestation response is not JSON",
			zap.String("api", api), zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("%s %s: decode response: %w", api, method, err)
	}
	if !env.Success {
		c.logger.Warn("filestation reported failure",
			zap.String("api", api), zap.String("method", method), zap.Int("code", errorCode(env.Error)))
	}
	return &env, nil
}

func errorCode(body *ErrorBody) int {
	if body == nil {
		return 0
	}
	return body.Code
}

func apiErrorFrom(env *envelope, api, method string) *APIError {
	return &APIError{API: api, Method: method, Code: errorCode(env.Error)}
}

// jsonArray encodes values as the JSON array literal FileStation expects for
// batch parameters such as path=["/a"]. HTML escaping stays off so names
// containing &, < or > reach the server untouched.
func jsonArray(values ...string) string {
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(values)
	return strings.TrimSuffix(buf.String(), "\n")
}
