package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/pkg/util"
)

// DefaultWebhookResolutionNote is stored when a closure payload carries none.
const DefaultWebhookResolutionNote = "Closed via webhook"

// WebhookService maps inbound third-party payloads onto ticket operations.
// Its validation is independent of the state machine's own checks.
type WebhookService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	svc        *TicketService
}

// WebhookTicketInput is the inbound creation payload.
type WebhookTicketInput struct {
	Title       string
	Description string
	CustomerID  string
	Category    domain.TicketCategory
}

// WebhookCloseInput is the inbound closure payload.
type WebhookCloseInput struct {
	TicketID       string
	ResolutionNote string
}

// NewWebhookService constructs the ingress adapter.
func NewWebhookService(tickets repository.TicketRepository, dispatcher events.Dispatcher, svc *TicketService) *WebhookService {
	return &WebhookService{tickets: tickets, dispatcher: dispatcher, svc: svc}
}

// CreateFromWebhook creates a ticket from an external system. The classifier
// is deliberately not invoked: webhook-originated tickets get priority medium.
func (s *WebhookService) CreateFromWebhook(ctx context.Context, input WebhookTicketInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" || strings.TrimSpace(input.CustomerID) == "" {
		return nil, util.NewValidationError("title, description and customer_id are required", nil)
	}
	category := input.Category
	if category == "" {
		category = domain.TicketCategoryGeneral
	}
	if !domain.ValidCategory(category) {
		return nil, util.NewValidationError("unknown category", map[string]any{"category": string(category)})
	}

	ticket := &domain.Ticket{
		CustomerID:  input.CustomerID,
		Title:       title,
		Description: description,
		Category:    category,
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, util.NewStoreError(err)
	}

	s.svc.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    customerActor(ticket.CustomerID),
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
			Source:   "webhook",
		},
	})
	return ticket, nil
}

// CloseFromWebhook forces a ticket to closed, stamping resolved_at and the
// resolution note.
func (s *WebhookService) CloseFromWebhook(ctx context.Context, input WebhookCloseInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.TicketID) == "" {
		return nil, util.NewValidationError("ticket_id is required", nil)
	}
	note := strings.TrimSpace(input.ResolutionNote)
	if note == "" {
		note = DefaultWebhookResolutionNote
	}

	current, err := s.tickets.GetByID(ctx, input.TicketID)
	if err != nil {
		return nil, mapTicketErr(err)
	}

	now := time.Now()
	closed := domain.TicketStatusClosed
	ticket, err := s.tickets.Update(ctx, input.TicketID, repository.TicketPatch{
		Status:         &closed,
		ResolvedAt:     &now,
		ResolutionNote: &note,
	})
	if err != nil {
		return nil, mapTicketErr(err)
	}

	s.svc.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    events.Actor{Type: domain.SubjectTypeAgent},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: closed,
		},
	})
	return ticket, nil
}
