package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/notify"
)

// NotificationService bridges internal domain events to the outbound webhook
// dispatcher. Delivery is best-effort: a failed dispatch never fails the
// operation that raised the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   notify.Notifier
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier notify.Notifier, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
}

// handleTicketCreated forwards creations to the external endpoint only when
// the triaged priority came out high.
func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	if payload.Priority != domain.TicketPriorityHigh {
		return nil
	}
	delivered := n.notifier.Dispatch(ctx, notify.EventNewHighPriorityTicket, map[string]any{
		"ticket_id": event.TicketID,
		"title":     payload.Title,
		"category":  payload.Category,
		"priority":  payload.Priority,
		"source":    payload.Source,
	})
	n.logger.Info("high priority ticket notification",
		zap.String("ticket_id", event.TicketID),
		zap.Bool("delivered", delivered))
	return nil
}
