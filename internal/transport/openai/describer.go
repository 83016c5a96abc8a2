package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearlot/internal/domain"
	"github.com/kailas-cloud/nearlot/internal/metrics"
)

const systemPrompt = `You describe batches of surplus produce offered by merchants to compost producers.
Identify the kinds of produce (fruit, vegetables, leaves, other), their condition,
and how suitable the batch is for composting. Be specific but plain. At most 120 words.`

const defaultMaxTokens = 300

// Describer writes lot descriptions using an OpenAI-compatible chat API.
// When the lot has an image URL, the image is attached to the prompt.
type Describer struct {
	client    *openai.Client
	model     string
	maxTokens int
	user      string
	logger    *zap.Logger
}

// Config holds the description provider settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	User      string
	Logger    *zap.Logger
}

// NewDescriber creates an OpenAI-compatible description provider.
func NewDescriber(cfg *Config) *Describer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Describer{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: maxTokens,
		user:      cfg.User,
		logger:    log,
	}
}

// Describe implements domain.Describer.
func (d *Describer) Describe(ctx context.Context, in domain.DescribeInput) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     d.model,
		MaxTokens: d.maxTokens,
		User:      d.user,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			userMessage(in),
		},
	}

	start := time.Now()
	resp, err := d.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.DescriberRequestsTotal.WithLabelValues(d.model, "error").Inc()
		d.logger.Warn("Description request failed",
			zap.String("model", d.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.DescriberRequestsTotal.WithLabelValues(d.model, "error").Inc()
		return "", fmt.Errorf("empty description response: %w", domain.ErrDescriberError)
	}

	metrics.DescriberRequestsTotal.WithLabelValues(d.model, "success").Inc()
	metrics.DescriberRequestDuration.WithLabelValues(d.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.DescriberTokensTotal.WithLabelValues(d.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.DescriberTokensTotal.WithLabelValues(d.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	d.logger.Debug("Description generated",
		zap.String("model", d.model),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (d *Describer) HealthCheck(ctx context.Context) error {
	if _, err := d.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func userMessage(in domain.DescribeInput) openai.ChatCompletionMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Declared weight: %.1f kg.", in.WeightKg)
	if in.MerchantName != "" {
		fmt.Fprintf(&b, " Merchant: %s.", in.MerchantName)
	}
	if !in.LimitDate.IsZero() {
		fmt.Fprintf(&b, " Pickup before %s.", in.LimitDate.UTC().Format("2006-01-02"))
	}

	if in.ImageURL == "" {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: b.String()}
	}
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: b.String()},
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: in.ImageURL, Detail: openai.ImageURLDetailLow},
			},
		},
	}
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrDescriberError for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrDescriberError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("describer API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("describer API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("describer API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("describer request failed: %w: %w", wrap, err)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
