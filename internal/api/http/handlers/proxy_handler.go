package handlers

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/merchant-console/internal/auth"
	"github.com/spec-kit/merchant-console/internal/upstream"
	apperrors "github.com/spec-kit/merchant-console/pkg/util/errorutil"
)

// ForwardPrefix is stripped from forwarded paths.
const ForwardPrefix = "/api/v1"

// Forwarder performs upstream calls.
type Forwarder interface {
	Forward(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// ProxyHandler forwards guarded API calls to the upstream with the session's bearer token.
type ProxyHandler struct {
	upstream Forwarder
}

// NewProxyHandler constructs handler.
func NewProxyHandler(forwarder Forwarder) *ProxyHandler {
	return &ProxyHandler{upstream: forwarder}
}

// Forward relays the request and copies status, content type and body back.
func (h *ProxyHandler) Forward(c *fiber.Ctx) error {
	store, err := requireSession(c)
	if err != nil {
		return err
	}
	token, ok := store.Token(c.UserContext())
	if !ok {
		return apperrors.NewUnauthorized("login required", map[string]any{"redirect": auth.LoginRoute})
	}

	target, ok := forwardPath(c)
	if !ok {
		return apperrors.NewNotFound("route", map[string]any{"path": c.Path()})
	}

	req := upstream.Request{
		Method:      c.Method(),
		Path:        target,
		RawQuery:    string(c.Request().URI().QueryString()),
		Body:        append([]byte(nil), c.Body()...),
		ContentType: c.Get(fiber.HeaderContentType),
		Token:       token,
	}
	resp, err := h.upstream.Forward(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return apperrors.NewUpstreamError(err)
	}

	if resp.ContentType != "" {
		c.Set(fiber.HeaderContentType, resp.ContentType)
	}
	return c.Status(resp.Status).Send(resp.Body)
}

// forwardPath returns the upstream path for the request, or false when the path, once
// decoded, would resolve outside the route whose guard admitted it. Dot segments, encoded
// slashes and non-canonical paths are refused rather than normalized.
func forwardPath(c *fiber.Ctx) (string, bool) {
	raw := c.Path()
	decoded, err := url.PathUnescape(raw)
	if err != nil || strings.ContainsAny(decoded, "\\\x00") {
		return "", false
	}
	if strings.Count(decoded, "/") != strings.Count(raw, "/") {
		return "", false
	}
	for _, segment := range strings.Split(decoded, "/") {
		if segment == "." || segment == ".." {
			return "", false
		}
	}
	trimmed := strings.TrimSuffix(decoded, "/")
	if path.Clean(decoded) != trimmed {
		return "", false
	}

	route := c.Route().Path
	if prefix, wildcard := strings.CutSuffix(route, "*"); wildcard {
		if !hasPrefixFold(trimmed, prefix) {
			return "", false
		}
	} else if !strings.EqualFold(trimmed, route) {
		return "", false
	}
	if !hasPrefixFold(raw, ForwardPrefix) {
		return "", false
	}
	return raw[len(ForwardPrefix):], true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
