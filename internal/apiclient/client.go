// Package apiclient is the Bloggera REST API client layer.
//
// Every call attaches the current credential, is traced, rate limited and guarded by a
// circuit breaker, and fails with a *Error that unwraps to a domain sentinel.
// Authenticated calls without a session fail with domain.ErrNoSession before any I/O.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/metrics"
	"github.com/bloggera/bloggera/internal/resilience"
)

const (
	tracerName      = "github.com/bloggera/bloggera/internal/apiclient"
	requestIDHeader = "X-Request-Id"
)

// CredentialSource yields the session whose token authenticates calls.
type CredentialSource interface {
	Current() (*domain.Session, bool)
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables
	Burst     int
	Breaker   resilience.Config
	Logger    *slog.Logger
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client calls the Bloggera REST API.
type Client struct {
	http    *resty.Client
	creds   CredentialSource
	limiter *rate.Limiter
	breaker *resilience.Breaker
	tracer  trace.Tracer
	logger  *slog.Logger
}

// New creates a Client reading credentials from creds.
func New(opts Options, creds CredentialSource) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "apiclient")

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "bloggera-cli").
		SetLogger(restyLogger{logger: logger})
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}
	if opts.Transport != nil {
		httpClient.SetTransport(opts.Transport)
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	breaker := resilience.New(opts.Breaker)
	breaker.OnStateChange(func(from, to resilience.State) {
		metrics.SetBreakerState(int(to))
		logger.Warn("api circuit breaker state changed", "from", from.String(), "to", to.String())
	})

	return &Client{
		http:    httpClient,
		creds:   creds,
		limiter: limiter,
		breaker: breaker,
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
	}
}

// BreakerState exposes the breaker state for status output.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// call describes one POST to the backend.
type call struct {
	endpoint      string // metrics and span label, e.g. posts.cardDetails
	path          string
	body          any
	result        any
	authenticated bool
	// token overrides the session credential, e.g. for logout after local state is cleared.
	token string
	// prepare customizes the request, e.g. for multipart bodies.
	prepare func(*resty.Request)
}

// session returns the current session or domain.ErrNoSession.
func (c *Client) session() (*domain.Session, error) {
	if c.creds == nil {
		return nil, domain.ErrNoSession
	}
	sess, ok := c.creds.Current()
	if !ok || !sess.IsValid() {
		return nil, domain.ErrNoSession
	}
	return sess, nil
}

func (c *Client) execute(ctx context.Context, cl call) (*resty.Response, error) {
	req := c.http.R()

	switch {
	case cl.token != "":
		req.SetAuthToken(cl.token)
	case cl.authenticated:
		sess, err := c.session()
		if err != nil {
			return nil, err
		}
		if sess.Token != "" {
			req.SetAuthToken(sess.Token)
		}
	case c.creds != nil:
		if sess, ok := c.creds.Current(); ok && sess.Token != "" {
			req.SetAuthToken(sess.Token)
		}
	}

	requestID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "bloggera.api/"+cl.endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("bloggera.endpoint", cl.endpoint),
			attribute.String("bloggera.request_id", requestID),
		),
	)
	defer span.End()

	fail := func(err error, status string, start time.Time) error {
		metrics.RecordAPIRequest(cl.endpoint, status, time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		c.logger.WarnContext(ctx, "bloggera api request failed",
			"endpoint", cl.endpoint,
			"request_id", requestID,
			"error", err,
		)
		return err
	}

	start := time.Now()

	if !c.breaker.Allow() {
		return nil, fail(circuitOpenError(cl.endpoint, requestID, resilience.ErrOpen), "circuit_open", start)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fail(networkError(cl.endpoint, requestID, err), "rate_limited", start)
		}
	}

	req.SetContext(ctx).SetHeader(requestIDHeader, requestID)
	if cl.body != nil {
		req.SetBody(cl.body)
	}
	if cl.prepare != nil {
		cl.prepare(req)
	}

	resp, err := req.Post(cl.path)
	if err != nil {
		// A caller abandoning the request says nothing about backend health.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fail(networkError(cl.endpoint, requestID, ctxErr), "canceled", start)
		}
		c.breaker.Failure()
		return nil, fail(networkError(cl.endpoint, requestID, err), "transport_error", start)
	}

	status := resp.StatusCode()
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		c.breaker.Failure()
	} else {
		c.breaker.Success()
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	if resp.IsError() {
		return resp, fail(normalizeResponse(cl.endpoint, requestID, resp), strconv.Itoa(status), start)
	}

	// Decoded here rather than through SetResult: acknowledgements may be empty and the
	// backend does not always label JSON as such.
	if cl.result != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), cl.result); err != nil {
			return resp, fail(malformedError(cl.endpoint, requestID, err), "malformed", start)
		}
	}

	metrics.RecordAPIRequest(cl.endpoint, strconv.Itoa(status), time.Since(start).Seconds())
	c.logger.DebugContext(ctx, "bloggera api request",
		"endpoint", cl.endpoint,
		"status", status,
		"request_id", requestID,
		"duration", time.Since(start),
	)
	return resp, nil
}

// ack is the body of acknowledgement-only endpoints.
type ack struct {
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

// decodeBool accepts a bare JSON boolean or an object carrying one under key.
func decodeBool(raw json.RawMessage, key string) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false, err
	}
	v, ok := obj[key]
	if !ok {
		return false, errors.New("missing " + key)
	}
	if err := json.Unmarshal(v, &b); err != nil {
		return false, err
	}
	return b, nil
}

// restyLogger routes resty's internal warnings into slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error("resty", "detail", fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn("resty", "detail", fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug("resty", "detail", fmt.Sprintf(format, v...))
}
