package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/readdigest/internal/domain"
	"github.com/kailas-cloud/readdigest/internal/metrics"
)

const systemPrompt = "You label reading notes. Reply with a single word naming the topic " +
	"category of the given keyword, for example Philosophy, Science, History or Psychology. " +
	"No punctuation, no explanation."

// maxCategoryLen bounds the label stored in the record.
const maxCategoryLen = 40

// Categorizer names a category for a keyword using an OpenAI-compatible chat API.
type Categorizer struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// Config holds the categorizer provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// NewCategorizer creates an OpenAI-compatible categorizer.
func NewCategorizer(cfg *Config) *Categorizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Categorizer{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   logger,
	}
}

// Categorize returns a one-word category for keyword.
func (c *Categorizer) Categorize(ctx context.Context, keyword string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: keyword},
		},
		Temperature: 0,
		MaxTokens:   8,
	})
	if err != nil {
		metrics.CategorizerRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.CategorizerRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return "", fmt.Errorf("empty completion: %w", domain.ErrCategorizerError)
	}

	category := normalize(resp.Choices[0].Message.Content)
	if category == "" {
		metrics.CategorizerRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return "", fmt.Errorf("blank category: %w", domain.ErrCategorizerError)
	}

	metrics.CategorizerRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	c.logger.Debug("categorized keyword",
		zap.String("keyword", keyword),
		zap.String("category", category),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return category, nil
}

// HealthCheck verifies API availability via ListModels.
func (c *Categorizer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// normalize keeps the first word, strips punctuation and title-cases it.
func normalize(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	word := strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if word == "" {
		return ""
	}
	runes := []rune(strings.ToLower(word))
	if len(runes) > maxCategoryLen {
		runes = runes[:maxCategoryLen]
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	wrap := domain.ErrCategorizerError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("categorizer API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("categorizer API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("categorizer API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("categorizer request failed: %w", wrap)
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
