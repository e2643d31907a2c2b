package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Org            *handlers.OrgHandler
	Channels       *handlers.ChannelsHandler
	Providers      *handlers.ProviderHandler
	Webhooks       *handlers.WebhooksHandler
	Tickets        *handlers.TicketsHandler
	SLA            *handlers.SLAHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	// Webhook routes are unauthenticated; signature verification gates them.
	api.Get("/webhooks/:channelId", cfg.Webhooks.Verify)
	api.Post("/webhooks/:channelId", cfg.Webhooks.Receive)

	api.Get("/providers", cfg.AuthMiddleware.Handle, cfg.Providers.Catalog)

	users := api.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	users.Post("/", cfg.Users.Create)
	users.Get("/", cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Patch("/:id", cfg.Users.Update)

	companies := api.Group("/companies", cfg.AuthMiddleware.Handle)
	companies.Post("/", auth.RequireAdmin(), cfg.Org.CreateCompany)
	companies.Get("/", cfg.Org.ListCompanies)
	companies.Get("/:id", cfg.Org.GetCompany)
	companies.Patch("/:id", auth.RequireAdmin(), cfg.Org.UpdateCompany)
	companies.Post("/:id/departments", auth.RequireAdmin(), cfg.Org.CreateDepartment)
	companies.Get("/:id/departments", cfg.Org.ListDepartments)

	departments := api.Group("/departments", cfg.AuthMiddleware.Handle)
	departments.Patch("/:id", auth.RequireAdmin(), cfg.Org.UpdateDepartment)
	departments.Post("/:id/teams", auth.RequireAdmin(), cfg.Org.CreateTeam)
	departments.Get("/:id/teams", cfg.Org.ListTeams)

	api.Patch("/teams/:id", cfg.AuthMiddleware.Handle, auth.RequireAdmin(), cfg.Org.UpdateTeam)

	channels := api.Group("/channels", cfg.AuthMiddleware.Handle)
	channels.Post("/", auth.RequireAdmin(), cfg.Channels.Create)
	channels.Get("/", cfg.Channels.List)
	channels.Get("/:id", cfg.Channels.Get)
	channels.Patch("/:id", auth.RequireAdmin(), cfg.Channels.Update)
	channels.Patch("/:id/status", auth.RequireAdmin(), cfg.Channels.UpdateStatus)
	channels.Delete("/:id", auth.RequireAdmin(), cfg.Channels.Delete)
	channels.Post("/:id/test", cfg.Channels.Test)
	channels.Get("/:id/activity", cfg.Channels.Messages)

	// Provider operations ride under the owning channel.
	channels.Post("/:id/emails", agentOrAbove(), cfg.Providers.SendEmail)
	channels.Post("/:id/emails/reply", agentOrAbove(), cfg.Providers.ReplyEmail)
	channels.Get("/:id/emails", cfg.Providers.ListEmails)
	channels.Get("/:id/emails/profile", cfg.Providers.EmailProfile)
	channels.Get("/:id/emails/:messageId", cfg.Providers.GetEmail)
	channels.Post("/:id/emails/:messageId/read", agentOrAbove(), cfg.Providers.MarkEmailRead)
	channels.Delete("/:id/emails/:messageId", agentOrAbove(), cfg.Providers.DeleteEmail)

	channels.Post("/:id/messages", agentOrAbove(), cfg.Providers.SendMessage)
	channels.Get("/:id/contacts/:contactId", cfg.Providers.GetContact)
	channels.Post("/:id/connection/test", cfg.Providers.TestConnection)
	channels.Post("/:id/webhook", auth.RequireAdmin(), cfg.Providers.SetupWebhook)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", agentOrAbove(), cfg.Tickets.Create)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id/status", agentOrAbove(), cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/assign", agentOrAbove(), cfg.Tickets.Assign)
	tickets.Post("/:id/assign/self", agentOrAbove(), cfg.Tickets.SelfAssign)
	tickets.Post("/:id/comments", agentOrAbove(), cfg.Tickets.AddComment)

	sla := api.Group("/sla", cfg.AuthMiddleware.Handle)
	sla.Post("/policies", auth.RequireAdmin(), cfg.SLA.Create)
	sla.Get("/policies", cfg.SLA.List)
	sla.Get("/breaches", cfg.SLA.Breaches)
}

func agentOrAbove() fiber.Handler {
	return auth.RequireRole(domain.RoleSuperAdmin, domain.RoleCSAdmin, domain.RoleAgent)
}
