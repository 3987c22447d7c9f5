package http

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/http/handlers"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/pkg/util"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AgentTickets   *handlers.AgentTicketsHandler
	Webhooks       *handlers.WebhooksHandler
	AuthMiddleware *auth.AuthMiddleware
	IngressToken   string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/agent/login", cfg.Auth.LoginAgent)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", auth.RequireCustomer(), cfg.Tickets.CreateTicket)
	tickets.Get("", auth.RequireCustomer(), cfg.Tickets.ListTickets)
	tickets.Get("/:id", auth.RequireAnyRole(), cfg.Tickets.GetTicket)
	tickets.Post("/:id/comments", auth.RequireAnyRole(), cfg.Tickets.AddComment)

	agent := app.Group("/agent/tickets", cfg.AuthMiddleware.Handle, auth.RequireAgent())
	agent.Get("", cfg.AgentTickets.ListTickets)
	agent.Patch("/:id/status", cfg.AgentTickets.UpdateStatus)
	agent.Patch("/:id/priority", cfg.AgentTickets.UpdatePriority)
	agent.Post("/:id/assign", cfg.AgentTickets.AssignTicket)
	agent.Get("/:id/history", cfg.AgentTickets.ListHistory)

	webhooks := app.Group("/webhooks", IngressTokenMiddleware(cfg.IngressToken))
	webhooks.Post("/tickets", cfg.Webhooks.CreateTicket)
	webhooks.Post("/tickets/close", cfg.Webhooks.CloseTicket)
}

// IngressTokenMiddleware authenticates inbound integration calls with a
// static shared secret. An unset secret rejects all ingress traffic.
func IngressTokenMiddleware(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return util.NewForbidden("webhook ingress disabled")
		}
		provided := c.Get("X-Webhook-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			return util.NewUnauthorized("invalid webhook token")
		}
		return c.Next()
	}
}
