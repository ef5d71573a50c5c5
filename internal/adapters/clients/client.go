package clients

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/http/middleware"
	"github.com/nico-vromans/random-quote-generator/internal/platform/config"
	"github.com/nico-vromans/random-quote-generator/internal/platform/logging"
)

const instrumentationName = "github.com/nico-vromans/random-quote-generator/internal/adapters/clients"

const (
	defaultTimeout             = 10 * time.Second
	defaultMaxIdleConns        = 50
	defaultMaxIdleConnsPerHost = 5
	defaultIdleConnTimeout     = 90 * time.Second
)

// Metric result labels besides the status class.
const (
	resultCircuitOpen = "circuit_open"
	resultError       = "error"
)

// Config configures one upstream API.
type Config struct {
	// BaseURL is prefixed to every request path, e.g. "https://zenquotes.io/api/".
	BaseURL string

	// ServiceName names the upstream in logs, spans and metrics. Quote APIs
	// use their registry key.
	ServiceName string

	// Timeout bounds each attempt. Retries and backoff come on top.
	Timeout time.Duration

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	// AuthFunc adds credentials to every attempt, as a header (API Ninjas)
	// or a query parameter (Unsplash).
	AuthFunc func(*http.Request)

	Logger *slog.Logger
}

// Client calls one upstream API.
type Client struct {
	http    *http.Client
	baseURL string
	name    string
	auth    func(*http.Request)
	retry   retryPolicy
	breaker *Breaker
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *clientMetrics
}

type clientMetrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	retries  metric.Int64Counter
}

func newClientMetrics() (*clientMetrics, error) {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram("http.client.request.duration",
		metric.WithDescription("Duration of upstream calls, retries included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	requests, err := meter.Int64Counter("http.client.request.total",
		metric.WithDescription("Upstream calls by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	retries, err := meter.Int64Counter("http.client.retries",
		metric.WithDescription("Repeated upstream attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating retry counter: %w", err)
	}

	return &clientMetrics{duration: duration, requests: requests, retries: retries}, nil
}

// New builds a client. The config is copied.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	metrics, err := newClientMetrics()
	if err != nil {
		return nil, err
	}

	logger := cmp.Or(cfg.Logger, slog.Default()).With(
		slog.String("component", "clients.Client"),
		slog.String("downstream", cfg.ServiceName),
	)

	breaker := NewBreaker(cfg.Circuit, func(from, to State) {
		logger.Warn("circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return &Client{
		http: &http.Client{
			Timeout:   cmp.Or(cfg.Timeout, defaultTimeout),
			Transport: newTransport(cfg.Transport),
		},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		name:    cfg.ServiceName,
		auth:    cfg.AuthFunc,
		retry:   newRetryPolicy(cfg.Retry),
		breaker: breaker,
		logger:  logger,
		tracer:  otel.Tracer(instrumentationName),
		metrics: metrics,
	}, nil
}

// Get sends a JSON GET to path below the base URL. query may be nil.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	target := c.url(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	return c.Do(ctx, req)
}

// Do sends req through the breaker with retries.
//
// Transport failures are retried and end in ErrRetriesExhausted. Responses
// with status 429 or 5xx are retried too; when every attempt gets one, the
// last response is returned for the caller to map. Such a call counts as a
// breaker failure. A request with a body is only retried when GetBody is set.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := logging.FromContextOr(ctx, c.logger).With(
		slog.String("downstream", c.name),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if !c.breaker.Allow() {
		c.record(ctx, req.Method, resultCircuitOpen, 0, time.Since(start))
		logger.WarnContext(ctx, "upstream call blocked by open circuit")

		return nil, ErrCircuitOpen
	}

	ctx, span := c.tracer.Start(ctx, "HTTP "+req.Method+" "+c.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.name),
		),
	)
	defer span.End()

	req = req.WithContext(ctx)
	c.prepare(ctx, req)

	resp, err := c.send(ctx, req, logger)
	elapsed := time.Since(start)

	if err != nil {
		c.breaker.Record(false)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.record(ctx, req.Method, resultError, 0, elapsed)
		logger.WarnContext(ctx, "upstream call failed",
			slog.Duration("duration", elapsed),
			slog.Any("error", err),
		)

		return nil, err
	}

	c.breaker.Record(!retryableStatus(resp.StatusCode))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status)
	}

	c.record(ctx, req.Method, fmt.Sprintf("%dxx", resp.StatusCode/100), resp.StatusCode, elapsed)
	logger.DebugContext(ctx, "upstream call completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", elapsed),
	)

	return resp, nil
}

func (c *Client) send(ctx context.Context, req *http.Request, logger *slog.Logger) (*http.Response, error) {
	attempts := c.retry.attempts()

	for attempt := 1; ; attempt++ {
		resp, err := c.http.Do(req)

		switch {
		case err != nil:
			if ctx.Err() != nil || !retryableError(err) {
				return nil, err
			}

			if attempt == attempts {
				return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
			}

		case !retryableStatus(resp.StatusCode) || attempt == attempts:
			return resp, nil

		default:
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			return nil, fmt.Errorf("%w: request body cannot be replayed", ErrRetriesExhausted)
		}

		wait := c.retry.delay(attempt, resp)
		logger.DebugContext(ctx, "retrying upstream call",
			slog.Int("attempt", attempt+1),
			slog.Duration("wait", wait),
		)
		c.metrics.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("peer.service", c.name)))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("replaying request body: %w", err)
			}

			req.Body = body
		}

		if c.auth != nil {
			c.auth(req)
		}
	}
}

// prepare propagates request and correlation IDs and the trace context, and
// applies credentials.
func (c *Client) prepare(ctx context.Context, req *http.Request) {
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderCorrelationID, id)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	if c.auth != nil {
		c.auth(req)
	}
}

func (c *Client) record(ctx context.Context, method, result string, status int, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("peer.service", c.name),
		attribute.String("result", result),
	}

	if status > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", status))
	}

	set := metric.WithAttributes(attrs...)
	c.metrics.duration.Record(ctx, elapsed.Seconds(), set)
	c.metrics.requests.Add(ctx, 1, set)
}

// BaseURL returns the base URL without its trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ServiceName returns the upstream name.
func (c *Client) ServiceName() string {
	return c.name
}

// CircuitState returns the breaker position.
func (c *Client) CircuitState() State {
	return c.breaker.State()
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

func newTransport(cfg config.TransportConfig) *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cmp.Or(cfg.MaxIdleConns, defaultMaxIdleConns),
		MaxIdleConnsPerHost: cmp.Or(cfg.MaxIdleConnsPerHost, defaultMaxIdleConnsPerHost),
		IdleConnTimeout:     cmp.Or(cfg.IdleConnTimeout, defaultIdleConnTimeout),
	}
}
