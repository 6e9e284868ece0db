package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/merchant-console/internal/config"
	"github.com/spec-kit/merchant-console/internal/domain"
	"github.com/spec-kit/merchant-console/internal/observability"
	"github.com/spec-kit/merchant-console/internal/repository"
	"github.com/spec-kit/merchant-console/internal/session"
)

const (
	sessionKey = "console_session"
	userKey    = "console_user"
)

// SessionMiddleware binds every request to the browser scope named by the session cookie,
// issuing a fresh scope when the cookie is missing or malformed.
type SessionMiddleware struct {
	repo   repository.SessionRepository
	cfg    config.SessionConfig
	logger *zap.Logger
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(repo repository.SessionRepository, cfg config.SessionConfig, logger *zap.Logger) *SessionMiddleware {
	return &SessionMiddleware{repo: repo, cfg: cfg, logger: observability.OrNop(logger)}
}

// Handle attaches a *session.Store to the request.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	scope := c.Cookies(m.cfg.CookieName)
	if _, err := uuid.Parse(scope); err != nil {
		scope = uuid.NewString()
		m.setCookie(c, scope, true)
		m.logger.Debug("issued session scope", zap.String("scope", scope))
	}

	c.Locals(sessionKey, session.NewStore(m.repo, scope, m.logger))
	return c.Next()
}

// Issue returns a store on a freshly generated scope. Nothing is sent to the browser until
// the store is bound with Rotate.
func (m *SessionMiddleware) Issue() *session.Store {
	return session.NewStore(m.repo, uuid.NewString(), m.logger)
}

// Rotate points the request and the browser cookie at next. A cookie that is not persistent
// ends with the browser session.
func (m *SessionMiddleware) Rotate(c *fiber.Ctx, next *session.Store, persistent bool) {
	m.setCookie(c, next.Scope(), persistent)
	c.Locals(sessionKey, next)
	m.logger.Debug("rotated session scope", zap.String("scope", next.Scope()))
}

func (m *SessionMiddleware) setCookie(c *fiber.Ctx, scope string, persistent bool) {
	cookie := &fiber.Cookie{
		Name:        m.cfg.CookieName,
		Value:       scope,
		Path:        "/",
		HTTPOnly:    true,
		Secure:      m.cfg.CookieSecure,
		SameSite:    fiber.CookieSameSiteLaxMode,
		SessionOnly: !persistent,
	}
	if retention := m.cfg.Retention(); persistent && retention > 0 {
		cookie.Expires = time.Now().Add(retention)
	}
	c.Cookie(cookie)
}

// SessionFromContext retrieves the request's session store.
func SessionFromContext(c *fiber.Ctx) (*session.Store, bool) {
	store, ok := c.Locals(sessionKey).(*session.Store)
	return store, ok && store != nil
}

// UserFromContext retrieves the identity admitted by a guard on this request.
func UserFromContext(c *fiber.Ctx) (*domain.UserInfo, bool) {
	user, ok := c.Locals(userKey).(*domain.UserInfo)
	return user, ok && user != nil
}

// sessionOf returns the request's store as a Session, or nil when none is attached. A nil
// interface keeps Oracle.CurrentUser's nil check meaningful.
func sessionOf(c *fiber.Ctx) Session {
	store, ok := SessionFromContext(c)
	if !ok {
		return nil
	}
	return store
}
