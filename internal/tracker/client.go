package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the hosted tracker instance.
const DefaultBaseURL = "https://rally1.rallydev.com"

// apiPath is the path prefix of every Web Services API endpoint.
const apiPath = "/slm/webservice/v2.0"

// Client is a high-level client for the tracker's Web Services API.
// It is safe for concurrent use; each caller opens its own Session.
type Client struct {
	baseURL     string
	apiKey      string
	integration string
	httpClient  *http.Client
	logger      *slog.Logger

	sessions atomic.Int64
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient  *http.Client
	logger      *slog.Logger
	timeout     time.Duration
	tracing     bool
	integration string
}

// New creates a new Client for the given tracker instance.
// The apiKey is sent as the ZSESSIONID header on every request.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("tracker: baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	cfg := &clientConfig{integration: "faultline"}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}
	if cfg.tracing {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		httpClient.Transport = otelhttp.NewTransport(base)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		integration: cfg.integration,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithTimeout sets a timeout on the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d < 0 {
			return fmt.Errorf("tracker: negative timeout %s", d)
		}
		cfg.timeout = d
		return nil
	}
}

// WithTracing wraps the HTTP transport with OpenTelemetry instrumentation.
// Spans are exported by whatever tracer provider the process installed.
func WithTracing() Option {
	return func(cfg *clientConfig) error {
		cfg.tracing = true
		return nil
	}
}

// WithIntegrationName sets the X-RallyIntegrationName header the service
// uses to attribute API traffic.
func WithIntegrationName(name string) Option {
	return func(cfg *clientConfig) error {
		cfg.integration = name
		return nil
	}
}

// BaseURL returns the instance URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Open starts a new Session. Callers must Close it on every exit path.
func (c *Client) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	id := c.sessions.Add(1)
	c.logger.DebugContext(ctx, "session opened", "session", id)
	return &httpSession{client: c, id: id}, nil
}

// endpoint returns the absolute URL for a type name, collection URL or reference.
func (c *Client) endpoint(target string) string {
	if strings.Contains(target, "://") {
		return target
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + strings.ToLower(target)
	}
	return c.baseURL + apiPath + target
}

// doJSON executes an HTTP request and decodes the JSON response into dst.
// If the response has an error status, it returns an *APIError.
func (c *Client) doJSON(ctx context.Context, method, url, operation string, body io.Reader, dst any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", operation, err)
	}
	if c.apiKey != "" {
		req.Header.Set("ZSESSIONID", c.apiKey)
	}
	if c.integration != "" {
		req.Header.Set("X-RallyIntegrationName", c.integration)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.InfoContext(ctx, "API request", "operation", operation, "method", method, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: do request: %w", operation, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API response", "operation", operation, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(respBody))
		if msg == "" {
			msg = resp.Status
		}
		return newAPIError(operation, resp.StatusCode, msg)
	}

	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("%s: decode response: %w", operation, err)
		}
	}
	return nil
}

// ReadAPIKey reads the first line of a file (e.g. .tracker-api-key) and returns it trimmed.
func ReadAPIKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(strings.Split(string(data), "\n")[0])
	return line, nil
}
