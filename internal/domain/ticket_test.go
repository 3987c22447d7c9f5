package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidStatus(t *testing.T) {
	valid := []TicketStatus{
		TicketStatusOpen,
		TicketStatusInProgress,
		TicketStatusPending,
		TicketStatusResolved,
		TicketStatusClosed,
	}
	for _, s := range valid {
		assert.True(t, ValidStatus(s), "expected %q to be valid", s)
	}

	assert.False(t, ValidStatus("archived"))
	assert.False(t, ValidStatus("OPEN"))
	assert.False(t, ValidStatus(""))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, TicketStatusResolved.IsTerminal())
	assert.True(t, TicketStatusClosed.IsTerminal())
	assert.False(t, TicketStatusOpen.IsTerminal())
	assert.False(t, TicketStatusInProgress.IsTerminal())
	assert.False(t, TicketStatusPending.IsTerminal())
}

func TestValidPriority(t *testing.T) {
	assert.True(t, ValidPriority(TicketPriorityLow))
	assert.True(t, ValidPriority(TicketPriorityMedium))
	assert.True(t, ValidPriority(TicketPriorityHigh))
	assert.False(t, ValidPriority("urgent"))
	assert.False(t, ValidPriority(""))
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(TicketCategoryTechnical))
	assert.True(t, ValidCategory(TicketCategoryBilling))
	assert.True(t, ValidCategory(TicketCategoryGeneral))
	assert.True(t, ValidCategory(TicketCategoryFeatureRequest))
	assert.False(t, ValidCategory("complaint"))
}

func TestFallbackClassification(t *testing.T) {
	result := FallbackClassification()
	assert.Equal(t, TicketPriorityMedium, result.Urgency)
	assert.Equal(t, FallbackRecommendation, result.Recommendation)
}

func TestIdentityIsAdmin(t *testing.T) {
	assert.True(t, Identity{Type: SubjectTypeAgent, Role: AgentRoleAdmin}.IsAdmin())
	assert.False(t, Identity{Type: SubjectTypeAgent, Role: AgentRoleAgent}.IsAdmin())
	assert.False(t, Identity{Type: SubjectTypeCustomer, Role: AgentRoleAdmin}.IsAdmin())
}
