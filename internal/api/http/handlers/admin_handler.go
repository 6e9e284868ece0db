package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/merchant-console/internal/observability"
	"github.com/spec-kit/merchant-console/internal/service"
)

// AdminHandler exposes operational views to administrators.
type AdminHandler struct {
	metrics *observability.Metrics
	audit   *service.AuditService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(metrics *observability.Metrics, audit *service.AuditService) *AdminHandler {
	return &AdminHandler{metrics: metrics, audit: audit}
}

// Metrics handles GET /metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}

// SessionEvents handles GET /api/audit/sessions?limit=.
func (h *AdminHandler) SessionEvents(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.audit.Recent(c.QueryInt("limit", 50))})
}
