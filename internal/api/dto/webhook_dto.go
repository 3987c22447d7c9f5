package dto

import "github.com/spec-kit/triage-service/internal/domain"

// WebhookCreateRequest is the inbound third-party creation payload.
type WebhookCreateRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	CustomerID  string                `json:"customer_id"`
	Category    domain.TicketCategory `json:"category"`
}

// WebhookCloseRequest is the inbound third-party closure payload.
type WebhookCloseRequest struct {
	TicketID       string `json:"ticket_id"`
	ResolutionNote string `json:"resolution_note"`
}
