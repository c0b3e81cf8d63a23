package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"patas/internal/api/metrics"
	"patas/internal/session"
	dErrors "patas/pkg/domain-errors"
)

// Client is the authenticated request pipeline: every outgoing call carries
// a usable access credential, and a single authorization rejection per call
// is recovered from by refreshing and re-issuing the request exactly once.
//
// A second 401 after a refreshed retry means the session itself is invalid,
// not transiently broken, so the pipeline forces a logout instead of
// retrying again. There is no backoff.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Manager
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// Option configures the Client.
type Option func(*Client)

// WithMetrics attaches pipeline metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient overrides the underlying HTTP client. The per-call timeout
// lives on that client, so overriding replaces the timeout too.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a pipeline client. The timeout applies uniformly to every
// call; a timed-out call fails as a normal network error.
func NewClient(baseURL string, timeout time.Duration, sess *session.Manager, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		session:    sess,
		logger:     logger,
		tracer:     otel.Tracer("patas/api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes one backend call. JSON, when non-nil, is marshaled as the
// body; Body+ContentType carry pre-encoded payloads (multipart uploads). The
// body is held as bytes so a 401 retry can replay it exactly.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	JSON        any
	Body        []byte
	ContentType string
}

// Response is a completed 2xx backend response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Do runs one call through the pipeline. Errors always come back in the
// shared domain error shape; callers never see raw transport errors.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "api.request", trace.WithAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", req.Path),
	))
	res, err := c.do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("http.response.status_code", res.Status))
	}
	span.End()
	return res, err
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	requestID := uuid.NewString()

	// Request phase: never send a request known to be unauthenticated when a
	// session was expected. An unusable credential aborts before dispatch.
	token, err := c.session.EnsureAccessToken(ctx)
	if err != nil {
		c.metrics.IncrementAbortedRequests()
		c.session.Logout()
		return nil, dErrors.Wrap(err, dErrors.CodeSessionExpired, "session expired")
	}

	payload, contentType, err := encodeBody(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode request body")
	}

	start := time.Now()
	resp, err := c.send(ctx, req, token, payload, contentType, requestID)
	if err != nil {
		c.metrics.IncrementRequests(req.Method, 0)
		return nil, normalizeTransport(err)
	}

	// Response phase: at most one retry, and only when a refresh token is
	// still available for this session.
	if resp.Status == http.StatusUnauthorized && c.session.RefreshToken() != "" {
		c.metrics.IncrementAuthRetries()
		c.logger.Debug("authorization rejected, refreshing and retrying once",
			"method", req.Method,
			"path", req.Path,
			"request_id", requestID,
		)

		fresh, refreshErr := c.session.ForceRefresh(ctx, token)
		if refreshErr != nil {
			c.session.Logout()
			return nil, normalizeStatus(resp.Status, resp.Body)
		}

		retry, retryErr := c.send(ctx, req, fresh, payload, contentType, requestID)
		if retryErr != nil {
			return nil, normalizeTransport(retryErr)
		}
		if retry.Status == http.StatusUnauthorized {
			c.session.Logout()
			return nil, normalizeStatus(resp.Status, resp.Body)
		}
		resp = retry
	}

	c.metrics.IncrementRequests(req.Method, resp.Status)
	c.metrics.ObserveRequestDuration(float64(time.Since(start).Milliseconds()))

	if resp.Status >= 400 {
		return nil, normalizeStatus(resp.Status, resp.Body)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, req Request, token string, payload []byte, contentType, requestID string) (*Response, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

func encodeBody(req Request) ([]byte, string, error) {
	if req.JSON != nil {
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	}
	if req.Body != nil {
		return req.Body, req.ContentType, nil
	}
	return nil, "", nil
}

// GetJSON issues a GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	return decodeInto(resp.Body, out)
}

// DoJSON issues a call with a JSON body and, when out is non-nil, decodes
// the response into it.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, Request{Method: method, Path: path, JSON: body})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeInto(resp.Body, out)
}

// GetPage issues a paginated GET and normalizes the response envelope.
// queryParam names the backend's free-text filter parameter; it is attached
// only when the request carries a non-empty query.
func (c *Client) GetPage(ctx context.Context, path string, req PageRequest, queryParam string) (Page[json.RawMessage], error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(req.Page))
	query.Set("size", strconv.Itoa(req.Size))
	if q := strings.TrimSpace(req.Query); q != "" && queryParam != "" {
		query.Set(queryParam, q)
	}

	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return Page[json.RawMessage]{}, err
	}
	return DecodePage(resp.Body, resp.Header, req), nil
}

func decodeInto(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeMalformedResponse, "decode response body")
	}
	return nil
}
