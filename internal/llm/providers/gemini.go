// File path: internal/llm/providers/gemini.go
package providers

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/plainlyai/enablr/internal/common"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider talks to Google's Gemini models through langchaingo.
type GeminiProvider struct {
	model     llms.Model
	modelName string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	common.Logger().Info("llm: Gemini provider configured", "model", model)
	return &GeminiProvider{model: client, modelName: model}, nil
}

func (g *GeminiProvider) Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, msg.Content))
	}
	callOpts := ApplyChatOptions(opts)
	var llmOpts []llms.CallOption
	if callOpts.Temperature != nil {
		llmOpts = append(llmOpts, llms.WithTemperature(*callOpts.Temperature))
	}
	if callOpts.MaxTokens > 0 {
		llmOpts = append(llmOpts, llms.WithMaxTokens(callOpts.MaxTokens))
	}
	common.Logger().Debug("llm: sending gemini request", "model", g.modelName, "messages", len(messages))
	resp, err := g.model.GenerateContent(ctx, content, llmOpts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("gemini generate content: no choices returned")
	}
	return resp.Choices[0].Content, nil
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}
