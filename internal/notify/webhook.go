package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/observability"
)

// Outbound event names delivered to the configured endpoint.
const (
	EventNewHighPriorityTicket = "new_high_priority_ticket"
	EventTicketStale           = "ticket_stale"
)

// Notifier delivers best-effort event notifications. The boolean result is
// informational only; callers may log it but must never treat false as an
// operation failure.
type Notifier interface {
	Dispatch(ctx context.Context, event string, data any) bool
}

// WebhookNotifier POSTs envelopes to a single configured URL.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	logger  *zap.Logger
	metrics *observability.Metrics
}

type envelope struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// NewWebhookNotifier constructs the notifier. An empty URL is valid and
// makes every dispatch a logged skip.
func NewWebhookNotifier(cfg config.NotificationConfig, logger *zap.Logger, metrics *observability.Metrics) *WebhookNotifier {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if cfg.TimeoutSeconds <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:     cfg.WebhookURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: metrics,
	}
}

// Dispatch sends one event as a single POST. It returns true only when the
// endpoint acknowledged with a 2xx status. All failures are logged, counted,
// and reported as false.
func (n *WebhookNotifier) Dispatch(ctx context.Context, event string, data any) bool {
	if n.url == "" {
		n.logger.Warn("notification endpoint not configured; skipping dispatch", zap.String("event", event))
		return false
	}

	body, err := json.Marshal(envelope{
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		n.logger.Warn("failed to encode notification", zap.String("event", event), zap.Error(err))
		n.metrics.RecordNotifyFailure()
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("failed to build notification request", zap.String("event", event), zap.Error(err))
		n.metrics.RecordNotifyFailure()
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("notification delivery failed", zap.String("event", event), zap.Error(err))
		n.metrics.RecordNotifyFailure()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.logger.Warn("notification endpoint rejected event",
			zap.String("event", event),
			zap.Int("status", resp.StatusCode))
		n.metrics.RecordNotifyFailure()
		return false
	}

	n.logger.Debug("notification delivered", zap.String("event", event))
	return true
}
