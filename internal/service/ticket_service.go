package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/pkg/util"
)

// Classifier estimates ticket urgency. Implementations never fail; degraded
// classification is expressed through the fallback result.
type Classifier interface {
	Classify(ctx context.Context, description string) domain.ClassificationResult
}

// TicketService owns the ticket lifecycle: creation with AI triage, status
// transitions and the timestamps they stamp, comments, and assignment.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	history    repository.TicketHistoryRepository
	classifier Classifier
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	HistoryRepo repository.TicketHistoryRepository
	Classifier  Classifier
	Dispatcher  events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	CustomerID  string
	Category    domain.TicketCategory
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		classifier: deps.Classifier,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket creates a ticket for a customer. The classifier supplies the
// initial priority and recommendation; it cannot fail the creation.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
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

	classification := s.classifier.Classify(ctx, description)
	recommendation := classification.Recommendation

	ticket := &domain.Ticket{
		CustomerID:       input.CustomerID,
		Title:            title,
		Description:      description,
		Category:         category,
		Status:           domain.TicketStatusOpen,
		Priority:         classification.Urgency,
		AIRecommendation: &recommendation,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, util.NewStoreError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    customerActor(ticket.CustomerID),
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
			Source:   "api",
		},
	})
	return ticket, nil
}

// UpdateStatus moves a ticket to any status within the fixed set. resolved_at
// is stamped exactly when the new status is resolved or closed; re-applying a
// terminal status refreshes the timestamp.
func (s *TicketService) UpdateStatus(ctx context.Context, actor domain.Identity, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(newStatus) {
		return nil, util.NewInvalidStatus(string(newStatus))
	}

	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err)
	}

	patch := repository.TicketPatch{Status: &newStatus}
	if newStatus.IsTerminal() {
		now := time.Now()
		patch.ResolvedAt = &now
	} else {
		patch.ClearResolvedAt = true
	}

	ticket, err := s.tickets.Update(ctx, ticketID, patch)
	if err != nil {
		return nil, mapTicketErr(err)
	}

	s.recordChange(ctx, actor, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": current.Status},
		map[string]any{"status": newStatus})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actorFromIdentity(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// UpdatePriority changes ticket priority by an agent.
func (s *TicketService) UpdatePriority(ctx context.Context, actor domain.Identity, ticketID string, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if !domain.ValidPriority(newPriority) {
		return nil, util.NewValidationError("unknown priority", map[string]any{"priority": string(newPriority)})
	}
	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err)
	}
	ticket, err := s.tickets.Update(ctx, ticketID, repository.TicketPatch{Priority: &newPriority})
	if err != nil {
		return nil, mapTicketErr(err)
	}
	s.recordChange(ctx, actor, ticket.ID, domain.ChangeTypePriority,
		map[string]any{"priority": current.Priority},
		map[string]any{"priority": newPriority})
	return ticket, nil
}

// AssignTicket sets the agent responsible for a ticket.
func (s *TicketService) AssignTicket(ctx context.Context, actor domain.Identity, ticketID, agentID string) (*domain.Ticket, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, util.NewValidationError("agent_id is required", nil)
	}
	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err)
	}
	ticket, err := s.tickets.Update(ctx, ticketID, repository.TicketPatch{AssigneeID: &agentID})
	if err != nil {
		return nil, mapTicketErr(err)
	}
	s.recordChange(ctx, actor, ticket.ID, domain.ChangeTypeAssignee,
		map[string]any{"assignee_agent_id": current.AssigneeID},
		map[string]any{"assignee_agent_id": agentID})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actorFromIdentity(actor),
		Payload:  events.TicketAssignedPayload{AssigneeAgentID: agentID},
	})
	return ticket, nil
}

// AddComment appends an immutable comment and refreshes the parent ticket's
// updated_at.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Identity, ticketID, content string) (*domain.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, util.NewValidationError("comment content is required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err)
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		AuthorRole: commentRole(actor),
		Content:    strings.TrimSpace(content),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, util.NewStoreError(err)
	}
	if err := s.tickets.Touch(ctx, ticket.ID); err != nil {
		return nil, mapTicketErr(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Actor:    actorFromIdentity(actor),
		Payload: events.TicketCommentAddedPayload{
			CommentID:  comment.ID,
			AuthorRole: comment.AuthorRole,
		},
	})
	return comment, nil
}

// GetTicket fetches a single ticket with its thread. Reads are permitted only
// for an admin, the assigned agent, or the owning customer.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Identity, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, mapTicketErr(err)
	}
	if !canReadTicket(actor, ticket) {
		return nil, nil, util.NewForbidden("access denied")
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, util.NewStoreError(err)
	}
	return ticket, comments, nil
}

// ListCustomerTickets returns paginated tickets owned by a customer.
func (s *TicketService) ListCustomerTickets(ctx context.Context, customerID string, filter TicketListFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		CustomerID: &customerID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, util.NewStoreError(err)
	}
	return tickets, nil
}

// ListTickets returns the agent-facing listing across all customers.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, util.NewStoreError(err)
	}
	return tickets, nil
}

// ListHistory returns audit entries, guarded by the same read rule as GetTicket.
func (s *TicketService) ListHistory(ctx context.Context, actor domain.Identity, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err)
	}
	if !canReadTicket(actor, ticket) {
		return nil, util.NewForbidden("access denied")
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, util.NewStoreError(err)
	}
	return entries, nil
}

func canReadTicket(actor domain.Identity, ticket *domain.Ticket) bool {
	if actor.IsAdmin() {
		return true
	}
	if actor.Type == domain.SubjectTypeAgent && ticket.AssigneeID != nil && *ticket.AssigneeID == actor.ID {
		return true
	}
	if actor.Type == domain.SubjectTypeCustomer && ticket.CustomerID == actor.ID {
		return true
	}
	return false
}

func commentRole(actor domain.Identity) domain.CommentAuthorRole {
	if actor.Type == domain.SubjectTypeAgent {
		return domain.CommentAuthorAgent
	}
	return domain.CommentAuthorCustomer
}

func (s *TicketService) recordChange(ctx context.Context, actor domain.Identity, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	actorID := actor.ID
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByRole: commentRole(actor),
		ChangedByID:   &actorID,
		ChangeType:    changeType,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
	_ = s.history.Create(ctx, entry)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func customerActor(customerID string) events.Actor {
	return events.Actor{
		Type:       domain.SubjectTypeCustomer,
		CustomerID: &customerID,
	}
}

func actorFromIdentity(actor domain.Identity) events.Actor {
	id := actor.ID
	if actor.Type == domain.SubjectTypeAgent {
		return events.Actor{Type: domain.SubjectTypeAgent, AgentID: &id}
	}
	return events.Actor{Type: domain.SubjectTypeCustomer, CustomerID: &id}
}

func mapTicketErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return util.NewNotFound("ticket", nil)
	}
	return util.NewStoreError(err)
}
