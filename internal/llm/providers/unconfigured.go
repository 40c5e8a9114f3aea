// File path: internal/llm/providers/unconfigured.go
package providers

import (
	"context"

	"github.com/plainlyai/enablr/internal/common"
)

// UnconfiguredProvider stands in for a provider whose credentials are
// missing. Every call fails with a ConfigurationError.
type UnconfiguredProvider struct {
	service string
	missing []string
}

func NewUnconfiguredProvider(service string, missing ...string) *UnconfiguredProvider {
	return &UnconfiguredProvider{service: service, missing: missing}
}

func (u *UnconfiguredProvider) Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error) {
	return "", &common.ConfigurationError{Service: u.service, Missing: append([]string(nil), u.missing...)}
}

func (u *UnconfiguredProvider) Name() string {
	return u.service + " (unconfigured)"
}
