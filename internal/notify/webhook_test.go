package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/observability"
)

func newNotifier(url string) *WebhookNotifier {
	return NewWebhookNotifier(config.NotificationConfig{
		WebhookURL:     url,
		TimeoutSeconds: 2,
	}, zap.NewNop(), observability.NewMetrics())
}

func TestDispatchDelivers(t *testing.T) {
	var received envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	delivered := newNotifier(srv.URL).Dispatch(context.Background(), EventNewHighPriorityTicket, map[string]any{
		"ticket_id": "t-1",
	})

	assert.True(t, delivered)
	assert.Equal(t, EventNewHighPriorityTicket, received.Event)
	assert.NotEmpty(t, received.Timestamp)
}

func TestDispatchReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	delivered := newNotifier(srv.URL).Dispatch(context.Background(), EventTicketStale, nil)
	assert.False(t, delivered)
}

func TestDispatchReportsConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	delivered := newNotifier(srv.URL).Dispatch(context.Background(), EventTicketStale, nil)
	assert.False(t, delivered)
}

func TestDispatchSkipsWhenUnconfigured(t *testing.T) {
	delivered := newNotifier("").Dispatch(context.Background(), EventTicketStale, nil)
	assert.False(t, delivered)
}
