package dto

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID               string                `json:"id"`
	CustomerID       string                `json:"customer_id"`
	AssigneeID       *string               `json:"assignee_agent_id"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Category         domain.TicketCategory `json:"category"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	AIRecommendation *string               `json:"ai_recommendation"`
	ResolutionNote   *string               `json:"resolution_note"`
	StaleNotified    bool                  `json:"stale_notified"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	ResolvedAt       *time.Time            `json:"resolved_at"`
}

// CommentResponse represents a thread comment.
type CommentResponse struct {
	ID         string                   `json:"id"`
	AuthorID   string                   `json:"author_id"`
	AuthorRole domain.CommentAuthorRole `json:"author_role"`
	Content    string                   `json:"content"`
	CreatedAt  time.Time                `json:"created_at"`
}

// TicketDetailResponse provides a ticket with its thread.
type TicketDetailResponse struct {
	TicketResponse
	Comments []CommentResponse `json:"comments"`
}

// TicketHistoryResponse represents an audit entry.
type TicketHistoryResponse struct {
	ID            string                   `json:"id"`
	ChangeType    domain.TicketChangeType  `json:"change_type"`
	ChangedByRole domain.CommentAuthorRole `json:"changed_by_role"`
	ChangedByID   *string                  `json:"changed_by_id"`
	OldValue      map[string]any           `json:"old_value"`
	NewValue      map[string]any           `json:"new_value"`
	CreatedAt     time.Time                `json:"created_at"`
}
