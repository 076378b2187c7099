package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/broadcast-ops/fault-tracker/internal/api/http/handlers"
	"github.com/broadcast-ops/fault-tracker/internal/auth"
	"github.com/broadcast-ops/fault-tracker/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Users           *handlers.UsersHandler
	CASIssues       *handlers.IssuesHandler
	ChannelIssues   *handlers.IssuesHandler
	FrequencyIssues *handlers.IssuesHandler
	Notifications   *handlers.NotificationsHandler
	AuthMiddleware  *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	users := api.Group("/users")
	users.Post("/register", cfg.Users.Register)
	users.Post("/login", cfg.Users.Login)
	users.Get("/roles", cfg.Users.Roles)
	usersProtected := users.Group("", cfg.AuthMiddleware.Handle)
	usersProtected.Get("/", cfg.Users.List)
	usersProtected.Get("/role/:role", cfg.Users.ByRole)
	usersProtected.Get("/:id", cfg.Users.Get)
	usersProtected.Put("/:id", cfg.Users.Update)
	usersProtected.Patch("/:id/role", auth.RequireRole(), cfg.Users.UpdateRole)
	usersProtected.Delete("/:id", auth.RequireRole(), cfg.Users.Delete)

	registerIssueRoutes(api.Group("/cas-issues", cfg.AuthMiddleware.Handle), cfg.CASIssues, issueRouteRoles{
		create: []domain.Role{domain.RoleCustomerSupport},
		read:   []domain.Role{},
		update: []domain.Role{},
	})
	registerIssueRoutes(api.Group("/channel-issues", cfg.AuthMiddleware.Handle), cfg.ChannelIssues, issueRouteRoles{
		create: []domain.Role{domain.RoleCustomerSupport, domain.RoleTechnical},
		read:   []domain.Role{domain.RoleCustomerSupport, domain.RoleTechnical},
		update: []domain.Role{domain.RoleCustomerSupport, domain.RoleTechnical},
	})
	registerIssueRoutes(api.Group("/frequency-issues", cfg.AuthMiddleware.Handle), cfg.FrequencyIssues, issueRouteRoles{
		create: []domain.Role{domain.RoleCustomerSupport, domain.RoleTechnical},
		read:   []domain.Role{domain.RoleCustomerSupport, domain.RoleTechnical},
		update: []domain.Role{domain.RoleCustomerSupport, domain.RoleTechnical},
	})

	notifications := api.Group("/notifications", cfg.AuthMiddleware.Handle)
	notifications.Get("/", auth.RequireRole(), cfg.Notifications.List)
	notifications.Get("/user/:userId", cfg.Notifications.Unread)
	notifications.Get("/user/:userId/count", cfg.Notifications.UnreadCount)
	notifications.Patch("/:id/read", cfg.Notifications.MarkRead)
}

// issueRouteRoles lists the non-admin roles allowed per operation; admins
// always pass. An empty list makes the operation admin-only.
type issueRouteRoles struct {
	create []domain.Role
	read   []domain.Role
	update []domain.Role
}

func registerIssueRoutes(group fiber.Router, handler *handlers.IssuesHandler, roles issueRouteRoles) {
	group.Get("/metadata", handler.Metadata)
	group.Post("/", auth.RequireRole(roles.create...), handler.Create)
	group.Get("/", auth.RequireRole(roles.read...), handler.List)
	group.Get("/:id", auth.RequireRole(roles.read...), handler.Get)
	group.Put("/:id", auth.RequireRole(roles.update...), handler.Update)
	group.Delete("/:id", auth.RequireRole(roles.update...), handler.Delete)
}
