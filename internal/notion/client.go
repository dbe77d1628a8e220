// Package notion is a thin client for the Notion REST API. Responses are
// returned as raw JSON so tool results mirror what Notion sent.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/roivaz/notion-chakra-mcp/internal/logging"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	APIVersion     = "2022-06-28"

	defaultTimeout = 30 * time.Second
	// Notion allows an average of three requests per second per integration.
	defaultRateLimit = 3

	maxErrorBody = 64 << 10
)

// Options configures a Client.
type Options struct {
	Token     string
	BaseURL   string
	Version   string
	Timeout   time.Duration
	RateLimit float64
	Logger    logging.Logger
	// HTTPClient is the transport wrapped with bearer authentication.
	HTTPClient *http.Client
}

// Client issues Notion API requests. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	token   string
	baseURL string
	version string
	timeout time.Duration
	limiter *rate.Limiter
	tracer  trace.Tracer
	log     logging.Logger
	now     func() time.Time
}

// NewClient builds a client. An empty token is accepted; every request then
// fails with ErrMissingToken.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Version == "" {
		opts.Version = APIVersion
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	burst := int(opts.RateLimit)
	if burst < 1 {
		burst = 1
	}

	ctx := context.Background()
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"})

	return &Client{
		http:    oauth2.NewClient(ctx, ts),
		token:   opts.Token,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		version: opts.Version,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), burst),
		tracer:  otel.Tracer("github.com/roivaz/notion-chakra-mcp/internal/notion"),
		log:     opts.Logger.WithName("notion"),
		now:     time.Now,
	}
}

// do sends one request. body may be nil. A single attempt is made; retries
// belong to the caller.
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
	}

	ctx, span := c.tracer.Start(ctx, "notion "+method+" "+routeOf(path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer span.End()

	raw, status, err := c.send(ctx, method, path, payload)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return raw, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (json.RawMessage, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		// The limiter gives up early when the wait would outlast the deadline.
		if _, ok := ctx.Deadline(); ok {
			return nil, 0, fmt.Errorf("%s %s: rate limiter: %w", method, path, errors.Join(err, context.DeadlineExceeded))
		}
		return nil, 0, fmt.Errorf("%s %s: rate limiter: %w", method, path, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, c.transportError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, c.transportError(ctx, method, path, err)
	}
	c.log.Debug("notion request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, c.apiError(resp, data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	return json.RawMessage(data), resp.StatusCode, nil
}

// transportError separates caller cancellation from failures worth retrying.
func (c *Client) transportError(ctx context.Context, method, path string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s %s: %w", method, path, ctxErr)
	}
	return &NetworkError{Method: method, Path: path, Err: err}
}

func (c *Client) apiError(resp *http.Response, data []byte) error {
	apiErr := &APIError{}
	if len(data) > maxErrorBody {
		data = data[:maxErrorBody]
	}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = ""
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	apiErr.StatusCode = resp.StatusCode
	apiErr.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), c.now())
	return apiErr
}

// routeOf replaces ids in path with placeholders to keep span names low cardinality.
func routeOf(path string) string {
	path, _, _ = strings.Cut(path, "?")
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if _, err := NormalizeID(p); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
