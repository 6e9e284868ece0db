// Package upstream talks to the e-commerce API the console fronts.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gojektech/heimdall/v6"
	"github.com/gojektech/heimdall/v6/httpclient"
	"go.uber.org/zap"

	"github.com/spec-kit/merchant-console/internal/config"
	"github.com/spec-kit/merchant-console/internal/observability"
)

// Envelope result codes.
const (
	CodeSuccess = 20000
	CodeFailure = -20000
)

const (
	maxJitter = 5 * time.Millisecond
	mimeJSON  = "application/json"
)

var (
	// ErrStatus is returned when the upstream answers with a status at or above the
	// configured error threshold.
	ErrStatus = errors.New("upstream error status")
	// ErrMalformed is returned when a response is not a JSON envelope.
	ErrMalformed = errors.New("malformed upstream response")
)

// Envelope is the response body shape of every upstream JSON endpoint.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// OK reports whether the envelope carries the success code.
func (e *Envelope) OK() bool {
	return e.Code == CodeSuccess
}

// Reason returns the human-readable failure message. A failure may carry it in
// data.message instead of message.
func (e *Envelope) Reason() string {
	var data struct {
		Message string `json:"message"`
	}
	if len(e.Data) > 0 && json.Unmarshal(e.Data, &data) == nil && data.Message != "" {
		return data.Message
	}
	return e.Message
}

// Request is a call forwarded on behalf of a browser session.
type Request struct {
	Method      string
	Path        string
	RawQuery    string
	Body        []byte
	ContentType string
	Token       string
}

// Response is the raw upstream answer to a forwarded call.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Client calls the upstream with heimdall's retrying HTTP client. Only idempotent methods
// are retried; everything else goes through once.
type Client struct {
	http           heimdall.Doer
	once           heimdall.Doer
	baseURL        string
	minErrorStatus int
	logger         *zap.Logger
}

// NewClient builds a client from configuration.
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	// Redirects are returned to the caller instead of followed with the bearer header attached.
	transport := &http.Client{
		Timeout: cfg.Timeout(),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	backoff := heimdall.NewConstantBackoff(cfg.Backoff(), maxJitter)
	retrying := httpclient.NewClient(
		httpclient.WithHTTPClient(transport),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
		httpclient.WithRetryCount(cfg.Retries),
	)
	once := httpclient.NewClient(httpclient.WithHTTPClient(transport))
	return newClient(retrying, once, cfg, logger)
}

func newClient(retrying, once heimdall.Doer, cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	minErrorStatus := cfg.MinErrorStatus
	if minErrorStatus <= 0 {
		minErrorStatus = http.StatusInternalServerError
	}
	return &Client{
		http:           retrying,
		once:           once,
		baseURL:        cfg.BaseURL,
		minErrorStatus: minErrorStatus,
		logger:         observability.OrNop(logger),
	}
}

// Login posts credentials to /auth/login.
func (c *Client) Login(ctx context.Context, credentials any) (*Envelope, error) {
	return c.postJSON(ctx, "/auth/login", credentials)
}

// Register posts a registration payload to /auth/register.
func (c *Client) Register(ctx context.Context, payload any) (*Envelope, error) {
	return c.postJSON(ctx, "/auth/register", payload)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", path, err)
	}
	resp, err := c.Forward(ctx, Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        body,
		ContentType: mimeJSON,
	})
	if err != nil {
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, fmt.Errorf("%w: %s answered %d: %v", ErrMalformed, path, resp.Status, err)
	}
	return &env, nil
}

// Forward performs req against the upstream and returns the response untouched. Statuses
// below the error threshold, 4xx included, are returned without error.
func (c *Client) Forward(ctx context.Context, req Request) (*Response, error) {
	url := c.baseURL + req.Path
	if req.RawQuery != "" {
		url += "?" + req.RawQuery
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	httpReq.Header.Set("Accept", mimeJSON)
	if req.ContentType != "" && body != nil {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	start := time.Now()
	// heimdall reports exhausted 5xx retries as an error next to the last response.
	httpResp, err := c.doerFor(req.Method).Do(httpReq)
	if httpResp == nil {
		if err == nil {
			err = ErrMalformed
		}
		c.logger.Warn("upstream call failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	c.logger.Debug("upstream call",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if httpResp.StatusCode >= c.minErrorStatus {
		err := fmt.Errorf("%w: %s %s answered %d", ErrStatus, req.Method, req.Path, httpResp.StatusCode)
		var env Envelope
		if json.Unmarshal(raw, &env) == nil && env.Reason() != "" {
			err = fmt.Errorf("%w: %s", err, env.Reason())
		}
		return nil, err
	}

	return &Response{
		Status:      httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        raw,
	}, nil
}

func (c *Client) doerFor(method string) heimdall.Doer {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return c.http
	}
	return c.once
}

// Ping checks that the upstream accepts connections. Any HTTP answer counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil && resp == nil {
		return err
	}
	return nil
}
