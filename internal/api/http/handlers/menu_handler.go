package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/merchant-console/internal/auth"
	"github.com/spec-kit/merchant-console/internal/service"
	apperrors "github.com/spec-kit/merchant-console/pkg/util/errorutil"
)

// MenuHandler serves the role-filtered navigation.
type MenuHandler struct {
	console *service.ConsoleService
}

// NewMenuHandler constructs handler.
func NewMenuHandler(console *service.ConsoleService) *MenuHandler {
	return &MenuHandler{console: console}
}

// List handles GET /api/menu.
func (h *MenuHandler) List(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("login required", nil)
	}
	return c.JSON(fiber.Map{"data": h.console.Menu(user.Role)})
}

// Lookup handles GET /api/menu/lookup?path=.
func (h *MenuHandler) Lookup(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("login required", nil)
	}
	path := c.Query("path")
	if path == "" {
		return apperrors.NewValidationError("path is required", map[string]any{"path": "path is required"})
	}
	node, err := h.console.Lookup(user.Role, path)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": node})
}
