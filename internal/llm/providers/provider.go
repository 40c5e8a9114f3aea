// File path: internal/llm/providers/provider.go
package providers

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// ChatOptions are per-call generation settings. Zero values leave the
// provider default in place.
type ChatOptions struct {
	Temperature *float64
	MaxTokens   int
}

type ChatOption func(*ChatOptions)

func WithTemperature(t float64) ChatOption {
	return func(o *ChatOptions) { o.Temperature = &t }
}

func WithMaxTokens(n int) ChatOption {
	return func(o *ChatOptions) { o.MaxTokens = n }
}

func ApplyChatOptions(opts []ChatOption) ChatOptions {
	var out ChatOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}

type Provider interface {
	Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error)
	Name() string
}
