package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/service"
	"github.com/spec-kit/triage-service/pkg/util"
)

// WebhooksHandler accepts inbound payloads from external systems.
type WebhooksHandler struct {
	service *service.WebhookService
}

// NewWebhooksHandler constructs handler.
func NewWebhooksHandler(webhookService *service.WebhookService) *WebhooksHandler {
	return &WebhooksHandler{service: webhookService}
}

// CreateTicket POST /webhooks/tickets. Priority is always medium here; the
// classifier only runs for tickets created through the API.
func (h *WebhooksHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.WebhookCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateFromWebhook(c.Context(), service.WebhookTicketInput{
		Title:       req.Title,
		Description: req.Description,
		CustomerID:  req.CustomerID,
		Category:    req.Category,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// CloseTicket POST /webhooks/tickets/close.
func (h *WebhooksHandler) CloseTicket(c *fiber.Ctx) error {
	var req dto.WebhookCloseRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CloseFromWebhook(c.Context(), service.WebhookCloseInput{
		TicketID:       req.TicketID,
		ResolutionNote: req.ResolutionNote,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}
