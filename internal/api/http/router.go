package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/merchant-console/internal/api/http/handlers"
	"github.com/spec-kit/merchant-console/internal/auth"
	"github.com/spec-kit/merchant-console/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Menu    *handlers.MenuHandler
	Shell   *handlers.ShellHandler
	Proxy   *handlers.ProxyHandler
	Admin   *handlers.AdminHandler
	Session *auth.SessionMiddleware
	Guard   *auth.Guard
}

// Pages reachable by any logged-in user.
var memberPages = []string{"/home", "/personal", "/merchandise", "/other/pageOne", "/other/pageTwo"}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Use(cfg.Session.Handle)

	member := auth.Rule{}
	admin := auth.RequireRoles(domain.RoleAdmin)

	app.Get("/metrics", cfg.Guard.ProtectAPI(admin), cfg.Admin.Metrics)

	api := app.Group("/api")
	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/logout", cfg.Auth.Logout)

	api.Get("/session", cfg.Guard.ProtectAPI(member), cfg.Auth.Session)
	api.Get("/menu", cfg.Guard.ProtectAPI(member), cfg.Menu.List)
	api.Get("/menu/lookup", cfg.Guard.ProtectAPI(member), cfg.Menu.Lookup)
	api.Get("/audit/sessions", cfg.Guard.ProtectAPI(admin), cfg.Admin.SessionEvents)

	v1 := app.Group(handlers.ForwardPrefix)
	v1.Get("/home/getHomeData", cfg.Guard.ProtectAPI(member), cfg.Proxy.Forward)
	v1.All("/merchant/*", cfg.Guard.ProtectAPI(member), cfg.Proxy.Forward)
	v1.All("/user/profile", cfg.Guard.ProtectAPI(member), cfg.Proxy.Forward)
	v1.All("/api/admin/*", cfg.Guard.ProtectAPI(admin), cfg.Proxy.Forward)

	app.Get(auth.LoginRoute, cfg.Shell.Login)
	app.Get("/register", cfg.Shell.Register)
	for _, page := range memberPages {
		app.Get(page, cfg.Guard.Protect(member), cfg.Shell.Page)
	}
	app.Get("/sales", cfg.Guard.Protect(admin), cfg.Shell.Page)
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(auth.HomeRoute, fiber.StatusFound)
	})
}
