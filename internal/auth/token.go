package auth

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/merchant-console/internal/domain"
	"github.com/spec-kit/merchant-console/internal/observability"
)

var (
	errMissingPayload = errors.New("token has no payload segment")
	errBadBase64      = errors.New("payload is not base64")
	errBadUTF8        = errors.New("payload is not valid UTF-8")
	errNotObject      = errors.New("payload is not a JSON object")
)

var urlAlphabet = strings.NewReplacer("-", "+", "_", "/")

// Claims is the decoded token payload. Every field is optional.
type Claims struct {
	UserID            ClaimID          `json:"userId,omitempty"`
	Subject           ClaimID          `json:"sub,omitempty"`
	ID                ClaimID          `json:"id,omitempty"`
	Username          string           `json:"username,omitempty"`
	Name              string           `json:"name,omitempty"`
	PreferredUsername string           `json:"preferred_username,omitempty"`
	Role              string           `json:"role,omitempty"`
	Roles             RoleList         `json:"roles,omitempty"`
	ExpiresAt         *jwt.NumericDate `json:"exp,omitempty"`
	IssuedAt          *jwt.NumericDate `json:"iat,omitempty"`
}

// UserInfo maps claims to an identity. It never fails: missing fields fall back, and a
// missing role becomes domain.DefaultRole.
func (c Claims) UserInfo() domain.UserInfo {
	info := domain.UserInfo{
		UserID:   string(firstNonEmpty(c.UserID, c.Subject, c.ID)),
		Username: firstNonEmpty(c.Username, c.Name, c.PreferredUsername),
		Role:     domain.DefaultRole,
	}
	switch {
	case c.Role != "":
		info.Role = domain.Role(c.Role)
	case len(c.Roles) > 0 && c.Roles[0] != "":
		info.Role = domain.Role(c.Roles[0])
	}
	return info
}

// Expired reports whether the claims are unusable at now. Claims without exp are expired.
func (c Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil || c.ExpiresAt.IsZero() || c.ExpiresAt.Unix() == 0 {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

// ClaimID accepts identifiers encoded either as JSON strings or numbers.
type ClaimID string

func (id *ClaimID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ClaimID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if f, err := n.Float64(); err == nil && f == 0 {
		*id = ""
		return nil
	}
	*id = ClaimID(n.String())
	return nil
}

// RoleList accepts the roles claim as a list or as a single string. Non-string items are
// skipped.
type RoleList []string

func (r *RoleList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch typed := raw.(type) {
	case nil:
		*r = nil
	case string:
		*r = RoleList{typed}
	case []any:
		out := make(RoleList, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		*r = out
	default:
		*r = nil
	}
	return nil
}

// TokenCodec reads bearer token claims without verifying signatures; the upstream that
// issued the token owns verification.
type TokenCodec struct {
	now    func() time.Time
	logger *zap.Logger
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCodec builds a codec.
func NewTokenCodec(logger *zap.Logger, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{now: time.Now, logger: observability.OrNop(logger)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the codec's current time.
func (c *TokenCodec) Now() time.Time {
	return c.now()
}

// Decode returns the token's claims, or false when the token cannot be read.
func (c *TokenCodec) Decode(token string) (*Claims, bool) {
	claims, err := decodeClaims(token)
	if err != nil {
		c.logger.Debug("token decode failed", zap.Error(err))
		return nil, false
	}
	return claims, true
}

// IsExpired reports whether token is expired. Unreadable tokens and tokens without exp are
// expired.
func (c *TokenCodec) IsExpired(token string) bool {
	claims, ok := c.Decode(token)
	if !ok {
		return true
	}
	return claims.Expired(c.now())
}

// ExtractUserInfo maps the token's claims to a UserInfo.
func (c *TokenCodec) ExtractUserInfo(token string) (*domain.UserInfo, bool) {
	claims, ok := c.Decode(token)
	if !ok {
		return nil, false
	}
	info := claims.UserInfo()
	return &info, true
}

func decodeClaims(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil, errMissingPayload
	}

	payload, err := decodeForgivingBase64(urlAlphabet.Replace(parts[1]))
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(payload) {
		return nil, errBadUTF8
	}

	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return nil, errNotObject
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// decodeForgivingBase64 mirrors the browser's atob: whitespace is ignored, padding is
// optional, and a length of 1 mod 4 is rejected.
func decodeForgivingBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\f', '\r':
			return -1
		}
		return r
	}, s)
	if len(s)%4 == 0 {
		s = strings.TrimSuffix(s, "=")
		s = strings.TrimSuffix(s, "=")
	}
	if len(s)%4 == 1 {
		return nil, errBadBase64
	}
	out, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return nil, errBadBase64
	}
	return out, nil
}

func firstNonEmpty[T ~string](values ...T) T {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
