package domain

import "time"

// SubjectType differentiates customer vs agent tokens.
type SubjectType string

const (
	SubjectTypeCustomer SubjectType = "customer"
	SubjectTypeAgent    SubjectType = "agent"
)

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleAgent AgentRole = "agent"
	AgentRoleAdmin AgentRole = "admin"
)

// Identity is the authenticated caller as seen by the service layer.
type Identity struct {
	Type SubjectType
	ID   string
	Role AgentRole // set for agents only
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Type == SubjectTypeAgent && i.Role == AgentRoleAdmin
}

// Token represents issued authentication token metadata.
type Token struct {
	SubjectID string
	Subject   SubjectType
	Role      *AgentRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}
