package classifier

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
)

const systemPrompt = `You are a support ticket triage assistant. Given a ticket description,
respond with ONLY a JSON object of this exact shape:
{"urgency": "<low|medium|high>", "recommendation": "<one or two sentences of guidance for the handling agent>"}
No markdown, no explanations.`

// Gateway calls the external text-classification service to estimate ticket
// urgency. It never fails its caller: any problem degrades to the safe
// default so ticket creation is not blocked by a degraded AI service.
type Gateway struct {
	client  openai.Client
	cfg     config.ClassifierConfig
	logger  *zap.Logger
	enabled bool
}

// NewGateway builds the gateway. A missing API key disables outbound calls
// and makes Classify return the fallback immediately.
func NewGateway(cfg config.ClassifierConfig, logger *zap.Logger) *Gateway {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Gateway{
		client:  openai.NewClient(opts...),
		cfg:     cfg,
		logger:  logger,
		enabled: cfg.APIKey != "",
	}
}

// Classify obtains an urgency label and recommendation for a description.
// One outbound call, no retries.
func (g *Gateway) Classify(ctx context.Context, description string) domain.ClassificationResult {
	if !g.enabled {
		g.logger.Warn("classifier credentials missing; using fallback classification")
		return domain.FallbackClassification()
	}

	if g.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(g.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(description),
		},
	})
	if err != nil {
		g.logger.Warn("classifier call failed; using fallback classification", zap.Error(err))
		return domain.FallbackClassification()
	}
	if len(resp.Choices) == 0 {
		g.logger.Warn("classifier returned no choices; using fallback classification")
		return domain.FallbackClassification()
	}

	return parseClassification(resp.Choices[0].Message.Content, g.logger)
}

// parseClassification extracts {urgency, recommendation} from the model's
// free-form text. Invalid urgency values are coerced to medium while keeping
// any recommendation the model produced.
func parseClassification(text string, logger *zap.Logger) domain.ClassificationResult {
	jsonStr, ok := extractJSON(text)
	if !ok {
		logger.Warn("classifier response contained no JSON; using fallback classification")
		return domain.FallbackClassification()
	}

	result := domain.FallbackClassification()
	if rec := gjson.Get(jsonStr, "recommendation"); rec.Exists() && strings.TrimSpace(rec.String()) != "" {
		result.Recommendation = strings.TrimSpace(rec.String())
	}

	urgency := domain.TicketPriority(strings.ToLower(strings.TrimSpace(gjson.Get(jsonStr, "urgency").String())))
	if domain.ValidPriority(urgency) {
		result.Urgency = urgency
	} else {
		logger.Warn("classifier returned unknown urgency; coercing to medium", zap.String("urgency", string(urgency)))
		result.Urgency = domain.TicketPriorityMedium
	}
	return result
}

// extractJSON finds the first complete JSON object in a string.
func extractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
