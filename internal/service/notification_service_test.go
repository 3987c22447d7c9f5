package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/notify"
)

func TestHighPriorityCreationTriggersNotification(t *testing.T) {
	f := newTicketServiceFixture(domain.ClassificationResult{
		Urgency:        domain.TicketPriorityHigh,
		Recommendation: "escalate",
	})
	notifier := &recordingNotifier{deliver: true}
	NewNotificationService(f.dispatcher, notifier, zap.NewNop()).RegisterHandlers()

	_, err := f.svc.CreateTicket(context.Background(), TicketCreateInput{
		Title: "t", Description: "d", CustomerID: "cust-1",
	})
	require.NoError(t, err)

	require.Len(t, notifier.dispatches, 1)
	assert.Equal(t, notify.EventNewHighPriorityTicket, notifier.dispatches[0].event)
}

func TestNonHighPriorityCreationIsSilent(t *testing.T) {
	f := newTicketServiceFixture(domain.FallbackClassification())
	notifier := &recordingNotifier{deliver: true}
	NewNotificationService(f.dispatcher, notifier, zap.NewNop()).RegisterHandlers()

	_, err := f.svc.CreateTicket(context.Background(), TicketCreateInput{
		Title: "t", Description: "d", CustomerID: "cust-1",
	})
	require.NoError(t, err)

	assert.Empty(t, notifier.dispatches)
}

func TestFailedDeliveryDoesNotFailCreation(t *testing.T) {
	f := newTicketServiceFixture(domain.ClassificationResult{
		Urgency:        domain.TicketPriorityHigh,
		Recommendation: "escalate",
	})
	notifier := &recordingNotifier{deliver: false}
	NewNotificationService(f.dispatcher, notifier, zap.NewNop()).RegisterHandlers()

	ticket, err := f.svc.CreateTicket(context.Background(), TicketCreateInput{
		Title: "t", Description: "d", CustomerID: "cust-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.ID)
	assert.Len(t, notifier.dispatches, 1)
}

func TestStatusChangeEventsDoNotNotify(t *testing.T) {
	f := newTicketServiceFixture(domain.ClassificationResult{
		Urgency:        domain.TicketPriorityHigh,
		Recommendation: "escalate",
	})
	notifier := &recordingNotifier{deliver: true}
	NewNotificationService(f.dispatcher, notifier, zap.NewNop()).RegisterHandlers()

	ticket, err := f.svc.CreateTicket(context.Background(), TicketCreateInput{
		Title: "t", Description: "d", CustomerID: "cust-1",
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), adminIdentity(), ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)

	// Only the creation itself produced an outbound event.
	require.Len(t, notifier.dispatches, 1)
	assert.Equal(t, events.EventTicketCreated, f.dispatcher.published[0].Type)
}
