package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/service"
	"github.com/spec-kit/triage-service/pkg/util"
)

// AgentTicketsHandler manages agent-facing ticket endpoints.
type AgentTicketsHandler struct {
	service *service.TicketService
}

// NewAgentTicketsHandler constructs handler.
func NewAgentTicketsHandler(ticketService *service.TicketService) *AgentTicketsHandler {
	return &AgentTicketsHandler{service: ticketService}
}

// ListTickets GET /agent/tickets.
func (h *AgentTicketsHandler) ListTickets(c *fiber.Ctx) error {
	if _, ok := agentPrincipal(c); !ok {
		return util.NewUnauthorized("agent required")
	}
	tickets, err := h.service.ListTickets(c.Context(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// UpdateStatus PATCH /agent/tickets/:id/status.
func (h *AgentTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := agentPrincipal(c)
	if !ok {
		return util.NewUnauthorized("agent required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateStatus(c.Context(), principal.Identity(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdatePriority PATCH /agent/tickets/:id/priority.
func (h *AgentTicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	principal, ok := agentPrincipal(c)
	if !ok {
		return util.NewUnauthorized("agent required")
	}
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdatePriority(c.Context(), principal.Identity(), c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AssignTicket POST /agent/tickets/:id/assign.
func (h *AgentTicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, ok := agentPrincipal(c)
	if !ok {
		return util.NewUnauthorized("agent required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AssignTicket(c.Context(), principal.Identity(), c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListHistory GET /agent/tickets/:id/history.
func (h *AgentTicketsHandler) ListHistory(c *fiber.Ctx) error {
	principal, ok := agentPrincipal(c)
	if !ok {
		return util.NewUnauthorized("agent required")
	}
	limit := parseInt(c.Query("limit"), 50)
	offset := (parseInt(c.Query("page"), 1) - 1) * limit
	entries, err := h.service.ListHistory(c.Context(), principal.Identity(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByRole: entry.ChangedByRole,
			ChangedByID:   entry.ChangedByID,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func agentPrincipal(c *fiber.Ctx) (*auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return nil, false
	}
	return principal, true
}
