package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/repository"
)

type sweepTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket

	listErr     error
	failUpdates map[string]error
}

func newSweepTicketRepo() *sweepTicketRepo {
	return &sweepTicketRepo{
		tickets:     make(map[string]*domain.Ticket),
		failUpdates: make(map[string]error),
	}
}

func (r *sweepTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *sweepTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *sweepTicketRepo) Update(ctx context.Context, id string, patch repository.TicketPatch) (*domain.Ticket, error) {
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
	if patch.StaleNotified != nil {
		ticket.StaleNotified = *patch.StaleNotified
	}
	ticket.UpdatedAt = time.Now()
	clone := *ticket
	return &clone, nil
}

func (r *sweepTicketRepo) Touch(ctx context.Context, id string) error {
	return nil
}

func (r *sweepTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if ticket.Status == status {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		if filter.UpdatedBefore != nil && !ticket.UpdatedAt.Before(*filter.UpdatedBefore) {
			continue
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *sweepTicketRepo) ListStale(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	return r.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:      []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
		UpdatedBefore: &cutoff,
	})
}

func (r *sweepTicketRepo) seed(id string, status domain.TicketStatus, age time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.tickets[id] = &domain.Ticket{
		ID:         id,
		CustomerID: "cust-1",
		Title:      fmt.Sprintf("ticket %s", id),
		Status:     status,
		Priority:   domain.TicketPriorityMedium,
		CreatedAt:  now.Add(-age),
		UpdatedAt:  now.Add(-age),
	}
}

type sweepNotifier struct {
	mu         sync.Mutex
	dispatches []map[string]any
}

func (n *sweepNotifier) Dispatch(ctx context.Context, event string, data any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	payload, _ := data.(map[string]any)
	n.dispatches = append(n.dispatches, payload)
	return true
}

func newTestSweeper(repo *sweepTicketRepo, notifier *sweepNotifier) *StaleSweeper {
	return NewStaleSweeper(repo, notifier, nil, zap.NewNop(), observability.NewMetrics(), config.SweepConfig{
		IntervalMinutes:     60,
		StaleThresholdHours: 72,
	})
}

func TestSweepNotifiesOncePerEpisode(t *testing.T) {
	repo := newSweepTicketRepo()
	repo.seed("stale-1", domain.TicketStatusOpen, 73*time.Hour)
	notifier := &sweepNotifier{}
	sweeper := newTestSweeper(repo, notifier)

	notified := sweeper.Sweep(context.Background())
	assert.Equal(t, 1, notified)
	require.Len(t, notifier.dispatches, 1)

	payload := notifier.dispatches[0]
	assert.Equal(t, "stale-1", payload["ticket_id"])
	assert.GreaterOrEqual(t, payload["hours_since_update"].(int), 72)

	after, err := repo.GetByID(context.Background(), "stale-1")
	require.NoError(t, err)
	assert.True(t, after.StaleNotified)

	// Refreshed updated_at keeps the ticket out of the next cycle.
	notified = sweeper.Sweep(context.Background())
	assert.Equal(t, 0, notified)
	assert.Len(t, notifier.dispatches, 1)
}

func TestSweepIgnoresRecentAndTerminalTickets(t *testing.T) {
	repo := newSweepTicketRepo()
	repo.seed("recent", domain.TicketStatusOpen, time.Hour)
	repo.seed("resolved", domain.TicketStatusResolved, 100*time.Hour)
	repo.seed("pending", domain.TicketStatusPending, 100*time.Hour)
	notifier := &sweepNotifier{}
	sweeper := newTestSweeper(repo, notifier)

	notified := sweeper.Sweep(context.Background())
	assert.Equal(t, 0, notified)
	assert.Empty(t, notifier.dispatches)
}

func TestSweepAbortsOnSelectionFailure(t *testing.T) {
	repo := newSweepTicketRepo()
	repo.seed("stale-1", domain.TicketStatusOpen, 73*time.Hour)
	repo.listErr = errors.New("connection reset")
	notifier := &sweepNotifier{}
	sweeper := newTestSweeper(repo, notifier)

	notified := sweeper.Sweep(context.Background())
	assert.Equal(t, 0, notified)
	assert.Empty(t, notifier.dispatches)
}

func TestSweepContinuesPastSingleTicketFailure(t *testing.T) {
	repo := newSweepTicketRepo()
	repo.seed("stale-1", domain.TicketStatusOpen, 73*time.Hour)
	repo.seed("stale-2", domain.TicketStatusInProgress, 80*time.Hour)
	repo.failUpdates["stale-1"] = errors.New("write failed")
	notifier := &sweepNotifier{}
	sweeper := newTestSweeper(repo, notifier)

	notified := sweeper.Sweep(context.Background())
	assert.Equal(t, 1, notified)
	assert.Len(t, notifier.dispatches, 2)

	after, err := repo.GetByID(context.Background(), "stale-2")
	require.NoError(t, err)
	assert.True(t, after.StaleNotified)
}

func TestSweeperStartStop(t *testing.T) {
	repo := newSweepTicketRepo()
	sweeper := newTestSweeper(repo, &sweepNotifier{})

	sweeper.Start()
	sweeper.Stop()
}
