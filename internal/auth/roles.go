package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/pkg/util"
)

// RequireCustomer ensures a customer is authenticated.
func RequireCustomer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeCustomer || principal.Customer == nil {
			return util.NewForbidden("customer required")
		}
		return c.Next()
	}
}

// RequireAgent ensures an agent (any role) is authenticated.
func RequireAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeAgent || principal.Agent == nil {
			return util.NewForbidden("agent required")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the agent carries the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeAgent || principal.Agent == nil || principal.Agent.Role != domain.AgentRoleAdmin {
			return util.NewForbidden("admin role required")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures the caller is authenticated (customer or agent).
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return util.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
