package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*domain.Ticket

	listErr     error
	failUpdates map[string]error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets:     make(map[string]*domain.Ticket),
		failUpdates: make(map[string]error),
	}
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *fakeTicketRepo) Update(ctx context.Context, id string, patch repository.TicketPatch) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failUpdates[id]; ok {
		return nil, err
	}
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	if patch.AssigneeID != nil {
		ticket.AssigneeID = patch.AssigneeID
	}
	if patch.ResolutionNote != nil {
		ticket.ResolutionNote = patch.ResolutionNote
	}
	if patch.StaleNotified != nil {
		ticket.StaleNotified = *patch.StaleNotified
	}
	if patch.ResolvedAt != nil {
		ticket.ResolvedAt = patch.ResolvedAt
	} else if patch.ClearResolvedAt {
		ticket.ResolvedAt = nil
	}
	ticket.UpdatedAt = time.Now()
	clone := *ticket
	return &clone, nil
}

func (r *fakeTicketRepo) Touch(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		if filter.UpdatedBefore != nil && !ticket.UpdatedAt.Before(*filter.UpdatedBefore) {
			continue
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *fakeTicketRepo) ListStale(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	return r.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:      []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
		UpdatedBefore: &cutoff,
		Limit:         1000,
	})
}

// seed inserts a ticket directly, bypassing Create side effects.
func (r *fakeTicketRepo) seed(ticket domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = &ticket
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	seq      int
	comments map[string][]domain.Comment
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[string][]domain.Comment)}
}

func (r *fakeCommentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	comment.ID = fmt.Sprintf("comment-%d", r.seq)
	comment.CreatedAt = time.Now()
	r.comments[comment.TicketID] = append(r.comments[comment.TicketID], *comment)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Comment{}, r.comments[ticketID]...), nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.TicketHistory
}

func (r *fakeHistoryRepo) Create(ctx context.Context, entry *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = fmt.Sprintf("history-%d", len(r.entries)+1)
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketHistory
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type stubClassifier struct {
	result domain.ClassificationResult
	called bool
}

func (c *stubClassifier) Classify(ctx context.Context, description string) domain.ClassificationResult {
	c.called = true
	return c.result
}

type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
	handlers  map[events.EventType][]events.EventHandler
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{handlers: make(map[events.EventType][]events.EventHandler)}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.published = append(d.published, event)
	handlers := append([]events.EventHandler{}, d.handlers[event.Type]...)
	d.mu.Unlock()
	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *recordingDispatcher) eventsOfType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.published {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

type recordingNotifier struct {
	mu         sync.Mutex
	dispatches []recordedDispatch
	deliver    bool
}

type recordedDispatch struct {
	event string
	data  any
}

func (n *recordingNotifier) Dispatch(ctx context.Context, event string, data any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dispatches = append(n.dispatches, recordedDispatch{event: event, data: data})
	return n.deliver
}
