package aigateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL = "https://ai.gateway.lovable.dev/v1/"
	DefaultModel   = "google/gemini-3-flash-preview"
)

// OpenAIConfig configures an OpenAI-compatible chat completions backend.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds one request. Zero means 60s.
	Timeout time.Duration
	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client
	// BreakerFailures consecutive failures open the breaker. Zero means 5.
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open. Zero means 30s.
	BreakerCooldown time.Duration
}

// OpenAI calls a chat completions endpoint in JSON mode behind a circuit breaker.
type OpenAI struct {
	client  openai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
}

// NewOpenAI builds the client. An API key is required.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("ai api key is not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &OpenAI{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		breaker: newBreaker("ai-gateway", cfg.BreakerFailures, cfg.BreakerCooldown),
	}, nil
}

// Name returns "openai".
func (o *OpenAI) Name() string { return "openai" }

// Run sends one chat completion and decodes the reply.
func (o *OpenAI) Run(ctx context.Context, action Action, products []models.Product) (Result, error) {
	prompt := SystemPrompt(action)
	if prompt == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	user, err := UserMessage(products)
	if err != nil {
		return nil, err
	}
	return execute(o.breaker, func() (string, error) {
		return o.complete(ctx, prompt, user)
	})
}

func (o *OpenAI) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		slog.Warn("ai gateway error", "status", apiErr.StatusCode, "err", err)
		return classifyStatus(apiErr.StatusCode, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
