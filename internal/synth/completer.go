package synth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rendis/drawsynth/pkg/schema"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 8192
	DefaultTimeout   = 5 * time.Minute
)

// Message is one conversation turn.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
	Image   []byte
}

// Completion is a model response.
type Completion struct {
	Content      string
	Model        string
	StopReason   string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// Truncated reports whether the response hit the token limit.
func (c *Completion) Truncated() bool {
	return c.StopReason == "max_tokens"
}

// Completer sends a conversation to a language model.
type Completer interface {
	Complete(ctx context.Context, system string, messages []Message) (*Completion, error)
}

// AnthropicConfig configures an AnthropicCompleter.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// AnthropicCompleter calls the Anthropic Messages API through the official SDK.
// SDK retries are disabled; the orchestrator's retry policy owns them.
type AnthropicCompleter struct {
	cfg    AnthropicConfig
	client anthropic.Client
}

// NewAnthropicCompleter creates a completer. Zero config fields take defaults.
func NewAnthropicCompleter(cfg AnthropicConfig) *AnthropicCompleter {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")+"/"),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	)
	return &AnthropicCompleter{cfg: cfg, client: client}
}

// Complete sends the conversation and concatenates the text blocks of the reply.
func (c *AnthropicCompleter) Complete(ctx context.Context, system string, messages []Message) (*Completion, error) {
	start := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		Messages:  toMessageParams(messages),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Completion{
		Content:      text.String(),
		Model:        string(msg.Model),
		StopReason:   string(msg.StopReason),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		Duration:     time.Since(start),
	}, nil
}

func toMessageParams(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, len(messages))
	for i, m := range messages {
		var blocks []anthropic.ContentBlockParamUnion
		if len(m.Image) > 0 {
			blocks = append(blocks, anthropic.NewImageBlockBase64(
				http.DetectContentType(m.Image),
				base64.StdEncoding.EncodeToString(m.Image)))
		}
		blocks = append(blocks, anthropic.NewTextBlock(m.Content))
		if m.Role == "assistant" {
			out[i] = anthropic.NewAssistantMessage(blocks...)
		} else {
			out[i] = anthropic.NewUserMessage(blocks...)
		}
	}
	return out
}

// classify maps SDK failures onto error codes. Rate limits, timeouts and
// server errors are retryable; other client errors are rejections.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return schema.NewError(schema.ErrCodeSynthesisFailed, "model request failed").WithCause(err)
	}

	status := apiErr.StatusCode
	code := schema.ErrCodeSynthesisFailed
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests && status != http.StatusRequestTimeout {
		code = schema.ErrCodeProviderRejected
	}
	return schema.NewErrorf(code, "model API error (%d)", status).
		WithCause(err).
		WithDetails(map[string]any{"status": status})
}

var _ Completer = (*AnthropicCompleter)(nil)
