// File path: internal/data/orchestrator/options.go
package orchestrator

import (
	"github.com/plainlyai/enablr/internal/llm"
	"github.com/plainlyai/enablr/internal/search"
)

type Option func(*options)

type options struct {
	chatProvider      llm.Provider
	discoveryProvider llm.Provider
	searcher          search.Searcher
}

// WithChatProvider replaces the OpenAI provider used by chat and content
// analysis. Primarily used in tests.
func WithChatProvider(provider llm.Provider) Option {
	return func(o *options) {
		o.chatProvider = provider
	}
}

// WithDiscoveryProvider replaces the Gemini provider used to qualify
// discovered businesses.
func WithDiscoveryProvider(provider llm.Provider) Option {
	return func(o *options) {
		o.discoveryProvider = provider
	}
}

// WithSearcher injects a web search implementation.
func WithSearcher(searcher search.Searcher) Option {
	return func(o *options) {
		o.searcher = searcher
	}
}
