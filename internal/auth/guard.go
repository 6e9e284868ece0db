package auth

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/merchant-console/internal/domain"
	"github.com/spec-kit/merchant-console/internal/observability"
	apperrors "github.com/spec-kit/merchant-console/pkg/util/errorutil"
)

// Navigation targets used by the guard.
const (
	LoginRoute = "/login"
	HomeRoute  = "/home"
)

// Outcome is the result of evaluating a guard rule.
type Outcome string

const (
	OutcomeAllowed         Outcome = "allowed"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeForbidden       Outcome = "forbidden"
)

// Rule describes who may reach a route. An empty RequiredRoles admits any logged-in user;
// RedirectTo defaults to HomeRoute.
type Rule struct {
	RequiredRoles []domain.Role
	RedirectTo    string
}

// RequireRoles is shorthand for a rule admitting roles with the default fallback.
func RequireRoles(roles ...domain.Role) Rule {
	return Rule{RequiredRoles: roles}
}

func (r Rule) fallback() string {
	if r.RedirectTo == "" {
		return HomeRoute
	}
	return r.RedirectTo
}

// Decision is what the guard concluded for one request.
type Decision struct {
	Outcome    Outcome
	RedirectTo string
	User       *domain.UserInfo
}

// Guard gates protected routes. It holds no per-session state, so every request is
// evaluated against the session as it is now.
type Guard struct {
	oracle  *Oracle
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewGuard constructs a guard. metrics may be nil.
func NewGuard(oracle *Oracle, metrics *observability.Metrics, logger *zap.Logger) *Guard {
	return &Guard{oracle: oracle, metrics: metrics, logger: observability.OrNop(logger)}
}

// Evaluate applies rule to the session's current identity.
func (g *Guard) Evaluate(ctx context.Context, sess Session, rule Rule) Decision {
	user, ok := g.oracle.CurrentUser(ctx, sess)
	if !ok {
		return Decision{Outcome: OutcomeUnauthenticated, RedirectTo: LoginRoute}
	}
	if len(rule.RequiredRoles) > 0 && !user.HasAnyRole(rule.RequiredRoles...) {
		return Decision{Outcome: OutcomeForbidden, RedirectTo: rule.fallback(), User: user}
	}
	return Decision{Outcome: OutcomeAllowed, User: user}
}

// Protect guards a page route: refused navigations are redirected and the handler never runs.
func (g *Guard) Protect(rule Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := g.decide(c, rule)
		if decision.Outcome != OutcomeAllowed {
			return c.Redirect(decision.RedirectTo, http.StatusFound)
		}
		return c.Next()
	}
}

// ProtectAPI guards a JSON route: refusals become 401/403 errors carrying the redirect target.
func (g *Guard) ProtectAPI(rule Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := g.decide(c, rule)
		details := map[string]any{"redirect": decision.RedirectTo}
		switch decision.Outcome {
		case OutcomeUnauthenticated:
			return apperrors.NewUnauthorized("login required", details)
		case OutcomeForbidden:
			return apperrors.NewForbidden("insufficient role", details)
		}
		return c.Next()
	}
}

func (g *Guard) decide(c *fiber.Ctx, rule Rule) Decision {
	decision := g.Evaluate(c.UserContext(), sessionOf(c), rule)
	g.metrics.RecordGuard(c.Route().Path, string(decision.Outcome))

	if decision.Outcome == OutcomeAllowed {
		c.Locals(userKey, decision.User)
		return decision
	}

	fields := []zap.Field{
		zap.String("request_id", observability.RequestID(c)),
		zap.String("path", c.Path()),
		zap.String("outcome", string(decision.Outcome)),
		zap.String("redirect", decision.RedirectTo),
	}
	if decision.User != nil {
		fields = append(fields, zap.String("role", string(decision.User.Role)))
	}
	g.logger.Debug("route guarded", fields...)
	return decision
}
