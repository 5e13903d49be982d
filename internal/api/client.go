// Package api is the client of the places REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UnknownOlympus/venuemap/internal/metrics"
	"github.com/UnknownOlympus/venuemap/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Common errors of the places API client.
var (
	ErrUnauthorized   = errors.New("places API rejected the credentials")
	ErrNotFound       = errors.New("places API resource not found")
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrEmptyBaseURL   = errors.New("places API base URL is empty")
)

// StatusError is returned for every non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("places API returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// Config holds the settings of a Client.
type Config struct {
	BaseURL   string           // BaseURL of the API, e.g. https://example.org/api/v1
	RateLimit int              // RateLimit in requests per second; zero disables limiting
	Timeout   time.Duration    // Timeout of a single HTTP request
	Session   session.Store    // Session holds the tokens of the signed-in account
	Metrics   *metrics.Metrics // Metrics for request durations and errors
	Logger    *slog.Logger     // Logger for logging operations
}

// Client calls the places API. Authorized calls carry the session's bearer token;
// a 401 triggers one shared token refresh and a replay of the request.
type Client struct {
	httpClient HTTPClient
	baseURL    string
	session    session.Store
	limiter    *rate.Limiter
	refreshes  singleflight.Group
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewClient creates a Client with a default *http.Client.
func NewClient(cfg Config) (*Client, error) {
	const defaultTimeout = 15 * time.Second

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return NewClientWithHTTP(&http.Client{Timeout: timeout}, cfg)
}

// NewClientWithHTTP creates a Client with a custom HTTP client.
// Useful for testing with mocked HTTP clients.
func NewClientWithHTTP(httpClient HTTPClient, cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	store := cfg.Session
	if store == nil {
		store = session.NewMemoryStore()
	}

	appMetrics := cfg.Metrics
	if appMetrics == nil {
		appMetrics = metrics.NewMetrics(prometheus.NewRegistry())
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		session:    store,
		limiter:    rate.NewLimiter(limit, max(cfg.RateLimit, 1)),
		metrics:    appMetrics,
		log:        logger,
	}, nil
}

// Session returns the token store used by the client.
func (c *Client) Session() session.Store {
	return c.session
}

// request describes one API call.
type request struct {
	endpoint string     // endpoint is the metrics label
	method   string     // method is the HTTP method
	path     string     // path relative to the base URL, starting with a slash
	query    url.Values // query parameters, may be nil
	body     any        // body is encoded as JSON when not nil
	auth     bool       // auth attaches the bearer token and refreshes on 401
}

// call performs the request and decodes a JSON response into out when out is not nil.
func (c *Client) call(ctx context.Context, req request, out any) error {
	var payload []byte
	if req.body != nil {
		var err error
		if payload, err = json.Marshal(req.body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	access := ""
	if req.auth {
		token, err := c.session.AccessToken(ctx)
		if err != nil && !errors.Is(err, session.ErrNoSession) {
			return fmt.Errorf("failed to read access token: %w", err)
		}
		access = token
	}

	status, body, err := c.send(ctx, req, payload, access)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && req.auth {
		c.log.DebugContext(ctx, "Access token rejected, refreshing", "endpoint", req.endpoint)

		if access, err = c.refresh(ctx, access); err != nil {
			return err
		}
		if status, body, err = c.send(ctx, req, payload, access); err != nil {
			return err
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		c.metrics.APIErrors.WithLabelValues(req.endpoint).Inc()
		c.log.ErrorContext(ctx, "Places API error", "endpoint", req.endpoint, "status", status, "body", string(body))
		return &StatusError{StatusCode: status, Body: string(body)}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err = json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.endpoint, err)
	}

	return nil
}

// send executes one HTTP round trip and returns the status code and the full body.
func (c *Client) send(ctx context.Context, req request, payload []byte, access string) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL := c.baseURL + req.path
	if len(req.query) > 0 {
		reqURL += "?" + req.query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, reqURL, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		bearer(access).SetAuthHeader(httpReq)
	}

	c.log.DebugContext(ctx, "Places API request", "method", req.method, "url", reqURL)

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	c.metrics.APIRequestSeconds.WithLabelValues(req.endpoint).Observe(time.Since(startTime).Seconds())
	if err != nil {
		c.metrics.APIErrors.WithLabelValues(req.endpoint).Inc()
		return 0, nil, fmt.Errorf("failed to execute %s request: %w", req.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, body, nil
}

// listEnvelope is the paginated list shape of the API.
type listEnvelope[T any] struct {
	Results []T `json:"results"`
}

// decodeList accepts both a bare JSON array and an object with a results array.
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var envelope listEnvelope[T]
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	if envelope.Results == nil {
		return []T{}, nil
	}

	return envelope.Results, nil
}

// rawBody captures an undecoded response body.
type rawBody []byte

func (r *rawBody) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}
