// File path: internal/llm/llm.go
package llm

import (
	"context"
	"errors"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/common/telemetry"
	"github.com/plainlyai/enablr/internal/config"
	"github.com/plainlyai/enablr/internal/llm/providers"
)

type Message = providers.Message

type Provider = providers.Provider

type ChatOption = providers.ChatOption

var (
	WithTemperature = providers.WithTemperature
	WithMaxTokens   = providers.WithMaxTokens
)

const (
	RoleSystem    = providers.RoleSystem
	RoleUser      = providers.RoleUser
	RoleAssistant = providers.RoleAssistant
)

// NewOpenAIProvider builds the OpenAI-backed provider, or an unconfigured
// stand-in when no API key is set.
func NewOpenAIProvider(cfg config.OpenAIConfig) Provider {
	logger := common.Logger()
	if cfg.APIKey == "" {
		logger.Warn("llm: OPENAI_API_KEY not set; chat and content analysis disabled")
		return providers.NewUnconfiguredProvider("openai", "OPENAI_API_KEY")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.Endpoint != "" {
		logger.Info("llm: configuring OpenAI client with custom endpoint", "endpoint", cfg.Endpoint)
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	return providers.NewOpenAIProvider(openai.NewClient(opts...), cfg.Model)
}

// NewGeminiProvider builds the Gemini-backed provider, or an unconfigured
// stand-in when no API key is set or the client cannot be created.
func NewGeminiProvider(ctx context.Context, cfg config.GeminiConfig) Provider {
	logger := common.Logger()
	if cfg.APIKey == "" {
		logger.Warn("llm: GEMINI_API_KEY not set; lead discovery disabled")
		return providers.NewUnconfiguredProvider("gemini", "GEMINI_API_KEY")
	}
	provider, err := providers.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		logger.Error("llm: gemini client init failed", "error", err)
		return providers.NewUnconfiguredProvider("gemini", "GEMINI_API_KEY")
	}
	return provider
}

// Instrument wraps provider so every call is counted under feature and
// provider failures surface as UpstreamError. ConfigurationError passes
// through unchanged.
func Instrument(provider Provider, feature string) Provider {
	return &instrumented{next: provider, feature: feature}
}

type instrumented struct {
	next    Provider
	feature string
}

func (i *instrumented) Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error) {
	start := time.Now()
	out, err := i.next.Chat(ctx, messages, opts...)
	telemetry.RecordLLMCall(i.feature, time.Since(start), err)
	if err == nil {
		return out, nil
	}
	var cfgErr *common.ConfigurationError
	if errors.As(err, &cfgErr) {
		return "", err
	}
	var upstream *common.UpstreamError
	if errors.As(err, &upstream) {
		return "", err
	}
	return "", &common.UpstreamError{Service: i.next.Name(), Op: i.feature, Err: err}
}

func (i *instrumented) Name() string {
	return i.next.Name()
}
