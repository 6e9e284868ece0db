package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/merchant-console/internal/api/dto"
	"github.com/spec-kit/merchant-console/internal/auth"
	"github.com/spec-kit/merchant-console/internal/service"
	"github.com/spec-kit/merchant-console/internal/session"
	apperrors "github.com/spec-kit/merchant-console/pkg/util/errorutil"
)

// AuthHandler exposes login, registration, logout and the session view.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *auth.SessionMiddleware
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, sessions *auth.SessionMiddleware) *AuthHandler {
	return &AuthHandler{auth: authService, sessions: sessions}
}

// Login handles POST /api/auth/login. A successful login always moves the browser to a new
// session scope; remember decides whether its cookie outlives the browser session.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	store, err := requireSession(c)
	if err != nil {
		return err
	}

	next := h.sessions.Issue()
	user, err := h.auth.Login(c.UserContext(), store, next, service.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		return err
	}
	h.sessions.Rotate(c, next, req.Remember)
	return c.JSON(fiber.Map{"data": fiber.Map{"user": user, "redirect": auth.HomeRoute}})
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	req.Normalize()
	if err := dto.Validate(req); err != nil {
		return err
	}

	message, err := h.auth.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{"message": message, "redirect": auth.LoginRoute},
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	store, err := requireSession(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), store); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"redirect": auth.LoginRoute}})
}

// Session handles GET /api/session. It runs behind a guard, so the user is known.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("login required", nil)
	}
	resp := dto.SessionResponse{User: *user}
	if store, ok := auth.SessionFromContext(c); ok {
		if cached, ok := store.ReadCachedUserInfo(c.UserContext()); ok {
			resp.Cached = cached
		}
	}
	return c.JSON(fiber.Map{"data": resp})
}

func requireSession(c *fiber.Ctx) (*session.Store, error) {
	store, ok := auth.SessionFromContext(c)
	if !ok {
		return nil, apperrors.NewInternalError(nil)
	}
	return store, nil
}
