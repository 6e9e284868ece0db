package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/merchant-console/internal/domain"
	"github.com/spec-kit/merchant-console/internal/events"
	"github.com/spec-kit/merchant-console/internal/observability"
)

// Session is the slice of the session store the oracle depends on.
type Session interface {
	Scope() string
	Token(ctx context.Context) (string, bool)
	ClearSession(ctx context.Context) error
}

// Oracle answers "who is logged in" for a browser session. It is the only path through
// which identity is derived; nothing else inspects the raw token for authorization.
type Oracle struct {
	codec      *TokenCodec
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewOracle constructs an oracle. dispatcher may be nil.
func NewOracle(codec *TokenCodec, dispatcher events.Dispatcher, logger *zap.Logger) *Oracle {
	return &Oracle{codec: codec, dispatcher: dispatcher, logger: observability.OrNop(logger)}
}

// CurrentUser returns the identity carried by the session's token. An expired or unreadable
// token clears the session and yields no user.
func (o *Oracle) CurrentUser(ctx context.Context, sess Session) (*domain.UserInfo, bool) {
	if sess == nil {
		return nil, false
	}
	token, ok := sess.Token(ctx)
	if !ok || token == "" {
		return nil, false
	}

	claims, decoded := o.codec.Decode(token)
	now := o.codec.Now()
	if !decoded || claims.Expired(now) {
		o.evict(ctx, sess, claims, decoded, now)
		return nil, false
	}

	info := claims.UserInfo()
	return &info, true
}

func (o *Oracle) evict(ctx context.Context, sess Session, claims *Claims, decoded bool, now time.Time) {
	if err := sess.ClearSession(ctx); err != nil {
		o.logger.Warn("failed to clear expired session", zap.String("scope", sess.Scope()), zap.Error(err))
	}

	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSessionExpired,
		Scope:     sess.Scope(),
		Timestamp: now,
		Payload:   events.SessionExpiredPayload{Readable: decoded},
	}
	if decoded {
		info := claims.UserInfo()
		event.UserID = info.UserID
		event.Role = info.Role
		if claims.ExpiresAt != nil {
			event.Payload = events.SessionExpiredPayload{Readable: true, ExpiredAt: claims.ExpiresAt.Time}
		}
	}
	if o.dispatcher == nil {
		return
	}
	if err := o.dispatcher.Publish(ctx, event); err != nil {
		o.logger.Warn("session_expired handlers failed", zap.Error(err))
	}
}
