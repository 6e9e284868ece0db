package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/merchant-console/internal/auth"
	"github.com/spec-kit/merchant-console/internal/service"
	apperrors "github.com/spec-kit/merchant-console/pkg/util/errorutil"
)

// Public view names.
const (
	ViewLogin    = "login"
	ViewRegister = "register"
)

// ShellHandler serves the JSON page shells the dashboard mounts.
type ShellHandler struct {
	console *service.ConsoleService
	oracle  *auth.Oracle
}

// NewShellHandler constructs handler.
func NewShellHandler(console *service.ConsoleService, oracle *auth.Oracle) *ShellHandler {
	return &ShellHandler{console: console, oracle: oracle}
}

// Login handles GET /login. A browser that is already logged in goes home.
func (h *ShellHandler) Login(c *fiber.Ctx) error {
	if store, ok := auth.SessionFromContext(c); ok {
		if _, loggedIn := h.oracle.CurrentUser(c.UserContext(), store); loggedIn {
			return c.Redirect(auth.HomeRoute, http.StatusFound)
		}
	}
	return c.JSON(h.console.PublicShell(ViewLogin, c.Path()))
}

// Register handles GET /register.
func (h *ShellHandler) Register(c *fiber.Ctx) error {
	return c.JSON(h.console.PublicShell(ViewRegister, c.Path()))
}

// Page serves every guarded page route.
func (h *ShellHandler) Page(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("login required", nil)
	}
	return c.JSON(h.console.PageShell(*user, c.Route().Path))
}
