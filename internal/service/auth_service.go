package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/merchant-console/internal/auth"
	"github.com/spec-kit/merchant-console/internal/domain"
	"github.com/spec-kit/merchant-console/internal/events"
	"github.com/spec-kit/merchant-console/internal/observability"
	"github.com/spec-kit/merchant-console/internal/upstream"
	apperrors "github.com/spec-kit/merchant-console/pkg/util/errorutil"
)

// ErrInvalidToken is returned when the upstream accepts a login but hands back a token the
// console cannot use.
var ErrInvalidToken = errors.New("upstream issued an unusable token")

// Logout reasons recorded on session_cleared events.
const (
	ReasonLogout  = "logout"
	ReasonRelogin = "relogin"
)

// AuthClient is the part of the upstream API used for login and registration.
type AuthClient interface {
	Login(ctx context.Context, credentials any) (*upstream.Envelope, error)
	Register(ctx context.Context, payload any) (*upstream.Envelope, error)
}

// SessionWriter is the session lifecycle the auth flows drive.
type SessionWriter interface {
	Scope() string
	Token(ctx context.Context) (string, bool)
	SetSession(ctx context.Context, token string, info domain.UserInfo) error
	ClearSession(ctx context.Context) error
}

// Credentials are forwarded to the upstream login endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthService coordinates login, registration and logout against the upstream.
type AuthService struct {
	client     AuthClient
	codec      *auth.TokenCodec
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuthService builds the service. dispatcher may be nil.
func NewAuthService(client AuthClient, codec *auth.TokenCodec, dispatcher events.Dispatcher, logger *zap.Logger) *AuthService {
	return &AuthService{
		client:     client,
		codec:      codec,
		dispatcher: dispatcher,
		logger:     observability.OrNop(logger),
	}
}

// Login exchanges credentials for a token and persists it in next, the scope the browser
// is moved to once the login succeeds. Whatever previous held is cleared; next and previous
// may be the same scope. A rejected login leaves both untouched.
func (s *AuthService) Login(ctx context.Context, previous, next SessionWriter, creds Credentials) (*domain.UserInfo, error) {
	env, err := s.client.Login(ctx, creds)
	if err != nil {
		return nil, upstreamFailure(err)
	}
	if !env.OK() {
		reason := env.Reason()
		if reason == "" {
			reason = "login failed"
		}
		s.logger.Info("login rejected", zap.String("scope", previous.Scope()), zap.Int("code", env.Code))
		return nil, apperrors.NewAuthFailed(reason)
	}

	var data struct {
		Token string `json:"token"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, apperrors.NewUpstreamError(fmt.Errorf("%w: %v", ErrInvalidToken, err))
		}
	}
	claims, ok := s.codec.Decode(data.Token)
	if !ok {
		return nil, apperrors.NewUpstreamError(fmt.Errorf("%w: token is unreadable", ErrInvalidToken))
	}
	if claims.Expired(s.codec.Now()) {
		return nil, apperrors.NewUpstreamError(fmt.Errorf("%w: token is already expired", ErrInvalidToken))
	}

	if token, ok := previous.Token(ctx); ok {
		s.publishCleared(ctx, previous.Scope(), token, ReasonRelogin)
	}

	if previous.Scope() != next.Scope() {
		if err := previous.ClearSession(ctx); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}
	info := claims.UserInfo()
	if err := next.SetSession(ctx, data.Token, info); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.Event{
		Type:    events.EventSessionStarted,
		Scope:   next.Scope(),
		UserID:  info.UserID,
		Role:    info.Role,
		Payload: events.SessionStartedPayload{Username: info.Username, ExpiresAt: claims.ExpiresAt.Time},
	})
	return &info, nil
}

// Register forwards a registration and returns the upstream's message. Both 20000 and 200
// count as success.
func (s *AuthService) Register(ctx context.Context, payload any) (string, error) {
	env, err := s.client.Register(ctx, payload)
	if err != nil {
		return "", upstreamFailure(err)
	}
	message := env.Message
	if message == "" {
		message = env.Reason()
	}
	if env.Code != upstream.CodeSuccess && env.Code != http.StatusOK {
		if message == "" {
			message = "registration failed"
		}
		return "", apperrors.NewDomainError("REGISTRATION_FAILED", message, http.StatusBadRequest, map[string]any{"code": env.Code})
	}
	if message == "" {
		message = "registered"
	}
	return message, nil
}

// Logout clears sess. Logging out an empty session is not an error.
func (s *AuthService) Logout(ctx context.Context, sess SessionWriter) error {
	token, hadToken := sess.Token(ctx)
	if err := sess.ClearSession(ctx); err != nil {
		return apperrors.NewInternalError(err)
	}
	if hadToken {
		s.publishCleared(ctx, sess.Scope(), token, ReasonLogout)
	}
	return nil
}

func (s *AuthService) publishCleared(ctx context.Context, scope, token, reason string) {
	event := events.Event{
		Type:    events.EventSessionCleared,
		Scope:   scope,
		Payload: events.SessionClearedPayload{Reason: reason},
	}
	if info, ok := s.codec.ExtractUserInfo(token); ok {
		event.UserID = info.UserID
		event.Role = info.Role
	}
	s.publish(ctx, event)
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.codec.Now()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func upstreamFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.NewUpstreamError(err)
}
