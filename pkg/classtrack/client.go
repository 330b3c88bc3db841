// Package classtrack is a typed HTTP client for the ClassTrack REST API.
// It owns request construction, bearer-token attachment, error mapping and
// upstream telemetry; response shapes are exposed as raw records for the
// normalize layer to interpret.
package classtrack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests to the ClassTrack API",
	}, []string{"method", "route", "status"})

	upstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "upstream",
		Name:      "request_failures_total",
		Help:      "Number of failed requests to the ClassTrack API",
	}, []string{"method", "route"})
)

// Config defines configuration options for the ClassTrack client.
type Config struct {
	// BaseURL is the root of the ClassTrack API, without a trailing slash.
	BaseURL string
	// Timeout bounds each request end to end. Defaults to 10s.
	Timeout time.Duration
	// OnUnauthorized runs whenever the upstream answers 401, before the
	// call returns ErrUnauthorized. The session layer hooks it to clear
	// the stored session for the rejected token.
	OnUnauthorized func(ctx context.Context, token string)
	Logger         zerolog.Logger
}

// Client issues authenticated requests against the ClassTrack API.
type Client struct {
	baseURL        string
	http           *http.Client
	onUnauthorized func(ctx context.Context, token string)
	logger         zerolog.Logger
	tracer         trace.Tracer
}

// New builds a ClassTrack client from the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("classtrack base url is required")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           &http.Client{Timeout: cfg.Timeout},
		onUnauthorized: cfg.OnUnauthorized,
		logger:         logger,
		tracer:         otel.Tracer("github.com/classtrack/portal-api/pkg/classtrack"),
	}, nil
}

// WithAuth returns a copy of the request carrying the bearer token. The
// input request is never mutated; an empty token yields a copy without an
// Authorization header.
func WithAuth(req *http.Request, token string) *http.Request {
	clone := req.Clone(req.Context())
	if token != "" {
		clone.Header.Set("Authorization", "Bearer "+token)
	}
	return clone
}

// request describes one upstream call. Route is the path template used as
// the metric label; path is the concrete URL path.
type request struct {
	method string
	route  string
	path   string
	body   any
}

func (c *Client) do(ctx context.Context, token string, req request, out any) error {
	ctx, span := c.tracer.Start(ctx, "classtrack.request", trace.WithAttributes(
		attribute.String("http.method", req.method),
		attribute.String("http.route", req.route),
	))
	defer span.End()

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("classtrack: encode %s body: %w", req.route, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("classtrack: build %s request: %w", req.route, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq = WithAuth(httpReq, token)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		upstreamDuration.WithLabelValues(req.method, req.route, "error").Observe(time.Since(start).Seconds())
		upstreamFailures.WithLabelValues(req.method, req.route).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream_unreachable")
		return fmt.Errorf("classtrack: %s %s: %w", req.method, req.route, err)
	}
	defer resp.Body.Close()

	upstreamDuration.WithLabelValues(req.method, req.route, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx, token)
		}
		span.SetStatus(codes.Error, "unauthorized")
		return &APIError{StatusCode: resp.StatusCode, Detail: readDetail(resp.Body), Endpoint: req.route}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		upstreamFailures.WithLabelValues(req.method, req.route).Inc()
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: readDetail(resp.Body), Endpoint: req.route}
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, "upstream_error")
		c.logger.Warn().
			Str("route", req.route).
			Int("status", resp.StatusCode).
			Str("detail", apiErr.Detail).
			Msg("classtrack request failed")
		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode_failed")
		return fmt.Errorf("classtrack: decode %s response: %w", req.route, err)
	}

	return nil
}

// readDetail extracts the FastAPI-style {"detail": "..."} message, falling
// back to the raw body when the shape does not match.
func readDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(raw))
}
