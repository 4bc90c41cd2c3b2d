package aigateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/sony/gobreaker"
)

// DefaultAnthropicModel is used when AnthropicConfig.Model is empty.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicConfig configures the Anthropic Messages API backend.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string // optional; SDK default when empty
	Model   string
	// MaxTokens bounds the reply. Zero means 4096.
	MaxTokens       int64
	Timeout         time.Duration
	HTTPClient      *http.Client
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Anthropic calls the Messages API behind a circuit breaker. The system
// prompt already demands a JSON object, so replies go through ParseContent.
type Anthropic struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	breaker   *gobreaker.CircuitBreaker
}

// NewAnthropic builds the client. An API key is required.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("anthropic api key is not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.Model(DefaultAnthropicModel)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
		breaker:   newBreaker("ai-gateway-anthropic", cfg.BreakerFailures, cfg.BreakerCooldown),
	}, nil
}

// Name returns "anthropic".
func (a *Anthropic) Name() string { return "anthropic" }

// Run sends one message and decodes the text reply.
func (a *Anthropic) Run(ctx context.Context, action Action, products []models.Product) (Result, error) {
	prompt := SystemPrompt(action)
	if prompt == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	user, err := UserMessage(products)
	if err != nil {
		return nil, err
	}
	return execute(a.breaker, func() (string, error) {
		return a.complete(ctx, prompt, user)
	})
}

func (a *Anthropic) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			slog.Warn("ai gateway error", "provider", "anthropic", "status", apiErr.StatusCode, "err", err)
			return "", classifyStatus(apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return stripFence(sb.String()), nil
}

// stripFence removes a surrounding ```json fence if the model added one.
func stripFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return s
	}
	t = strings.TrimSuffix(strings.TrimPrefix(t, "```"), "```")
	t = strings.TrimPrefix(t, "json")
	return strings.TrimSpace(t)
}
