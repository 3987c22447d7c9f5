package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CustomerID    *string
	AssigneeID    *string
	Statuses      []domain.TicketStatus
	Priorities    []domain.TicketPriority
	Categories    []domain.TicketCategory
	UpdatedBefore *time.Time
	Limit         int
	Offset        int
}

// TicketPatch describes a partial field update scoped to one ticket row.
// updated_at is always refreshed by Update; nil fields are left untouched.
type TicketPatch struct {
	Status          *domain.TicketStatus
	Priority        *domain.TicketPriority
	AssigneeID      *string
	ResolutionNote  *string
	StaleNotified   *bool
	ResolvedAt      *time.Time
	ClearResolvedAt bool
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error)
	// Touch refreshes updated_at only; used when a comment lands.
	Touch(ctx context.Context, id string) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, customer_id, assignee_agent_id, title, description, category,
               status, priority, ai_recommendation, resolution_note, stale_notified,
               created_at, updated_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (customer_id, assignee_agent_id, title, description, category, status, priority, ai_recommendation)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.CustomerID,
		ticket.AssigneeID,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Status,
		ticket.Priority,
		ticket.AIRecommendation,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(ticketFields(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Update applies a partial field set in one atomic statement scoped by id.
func (r *ticketRepository) Update(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	sets := []string{"updated_at=NOW()"}
	args := []any{}

	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status=$%d", len(args)))
	}
	if patch.Priority != nil {
		args = append(args, *patch.Priority)
		sets = append(sets, fmt.Sprintf("priority=$%d", len(args)))
	}
	if patch.AssigneeID != nil {
		args = append(args, *patch.AssigneeID)
		sets = append(sets, fmt.Sprintf("assignee_agent_id=$%d", len(args)))
	}
	if patch.ResolutionNote != nil {
		args = append(args, *patch.ResolutionNote)
		sets = append(sets, fmt.Sprintf("resolution_note=$%d", len(args)))
	}
	if patch.StaleNotified != nil {
		args = append(args, *patch.StaleNotified)
		sets = append(sets, fmt.Sprintf("stale_notified=$%d", len(args)))
	}
	if patch.ResolvedAt != nil {
		args = append(args, *patch.ResolvedAt)
		sets = append(sets, fmt.Sprintf("resolved_at=$%d", len(args)))
	} else if patch.ClearResolvedAt {
		sets = append(sets, "resolved_at=NULL")
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), ticketColumns)

	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(ticketFields(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Touch(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tickets SET updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_agent_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, cat := range filter.Categories {
			args = append(args, cat)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.UpdatedBefore != nil {
		args = append(args, *filter.UpdatedBefore)
		clauses = append(clauses, fmt.Sprintf("updated_at < $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListStale returns active tickets not updated since the cutoff. The limit is
// generous; refreshing updated_at during the sweep keeps the set bounded.
func (r *ticketRepository) ListStale(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	return r.ListWithFilter(ctx, TicketFilter{
		Statuses:      []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
		UpdatedBefore: &cutoff,
		Limit:         1000,
	})
}

func ticketFields(t *domain.Ticket) []any {
	return []any{
		&t.ID,
		&t.CustomerID,
		&t.AssigneeID,
		&t.Title,
		&t.Description,
		&t.Category,
		&t.Status,
		&t.Priority,
		&t.AIRecommendation,
		&t.ResolutionNote,
		&t.StaleNotified,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.ResolvedAt,
	}
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketFields(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
