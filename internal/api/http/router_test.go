package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/pkg/util"
)

func newIngressApp(token string) *fiber.App {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), time.Second)
	app.Post("/webhooks/tickets", IngressTokenMiddleware(token), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func TestIngressTokenMiddleware(t *testing.T) {
	app := newIngressApp("s3cret")

	req := httptest.NewRequest("POST", "/webhooks/tickets", nil)
	req.Header.Set("X-Webhook-Token", "s3cret")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("POST", "/webhooks/tickets", nil)
	req.Header.Set("X-Webhook-Token", "wrong")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("POST", "/webhooks/tickets", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestIngressDisabledWithoutConfiguredToken(t *testing.T) {
	app := newIngressApp("")

	req := httptest.NewRequest("POST", "/webhooks/tickets", nil)
	req.Header.Set("X-Webhook-Token", "anything")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestErrorMiddlewareRendersDomainErrors(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return util.NewValidationError("title is required", map[string]any{"field": "title"})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.Equal(t, util.CodeValidation, parsed.Error.Code)
	assert.Equal(t, "title is required", parsed.Error.Message)
	assert.Equal(t, "title", parsed.Error.Details["field"])
}

func TestErrorMiddlewareRecoversPanics(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
