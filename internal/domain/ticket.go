package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// ValidStatus reports whether the value belongs to the fixed status set.
// Any member may move to any other member; there is no ordering graph.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether the status stamps resolved_at.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates urgency assigned at triage.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// ValidPriority reports whether the value is one of the three defined levels.
func ValidPriority(p TicketPriority) bool {
	return p == TicketPriorityLow || p == TicketPriorityMedium || p == TicketPriorityHigh
}

// TicketCategory enumerates routing categories.
type TicketCategory string

const (
	TicketCategoryTechnical      TicketCategory = "technical"
	TicketCategoryBilling        TicketCategory = "billing"
	TicketCategoryGeneral        TicketCategory = "general"
	TicketCategoryFeatureRequest TicketCategory = "feature_request"
)

// ValidCategory reports whether the value belongs to the category set.
func ValidCategory(c TicketCategory) bool {
	switch c {
	case TicketCategoryTechnical, TicketCategoryBilling, TicketCategoryGeneral, TicketCategoryFeatureRequest:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID               string
	CustomerID       string
	AssigneeID       *string
	Title            string
	Description      string
	Category         TicketCategory
	Status           TicketStatus
	Priority         TicketPriority
	AIRecommendation *string
	ResolutionNote   *string
	StaleNotified    bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ResolvedAt       *time.Time
}
