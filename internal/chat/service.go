// File path: internal/chat/service.go
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/config"
	"github.com/plainlyai/enablr/internal/llm"
	"github.com/plainlyai/enablr/internal/sqlite"
)

const (
	recentWindow    = 7 * 24 * time.Hour
	previewCount    = 10
	previewRunes    = 100
	persistDeadline = 10 * time.Second
)

// MessageStore persists conversation turns and reports on them.
type MessageStore interface {
	InsertChatbotMessages(ctx context.Context, messages ...sqlite.ChatbotMessage) error
	ChatbotStats(ctx context.Context, since time.Time, previews int) (sqlite.ChatbotStats, error)
}

// Turn is one prior message supplied by the widget.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one visitor message with the conversation so far.
type Request struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	History        []Turn `json:"history"`
}

// Reply is the assistant's answer.
type Reply struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Service answers website chat messages and records the conversation.
type Service struct {
	store    MessageStore
	provider llm.Provider
	cfg      config.ChatConfig
	clock    func() time.Time

	pending sync.WaitGroup
}

// NewService builds a Service. Zero limits in cfg fall back to defaults.
func NewService(store MessageStore, provider llm.Provider, cfg config.ChatConfig) *Service {
	defaults := config.Default().Chat
	if cfg.MaxMessageRunes <= 0 {
		cfg.MaxMessageRunes = defaults.MaxMessageRunes
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaults.MaxTurns
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaults.HistoryWindow
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	return &Service{
		store:    store,
		provider: provider,
		cfg:      cfg,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Reply answers req. Conversations at the turn limit get the hand-off message
// without a model call. Both turns are stored in the background.
func (s *Service) Reply(ctx context.Context, req Request) (Reply, error) {
	if s == nil || s.provider == nil {
		return Reply{}, errors.New("chat service not initialised")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Reply{}, common.NewValidationError("message", "Message is required")
	}
	if utf8.RuneCountInString(message) > s.cfg.MaxMessageRunes {
		return Reply{}, common.NewValidationError("message", "Message too long")
	}
	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	if len(req.History) >= s.cfg.MaxTurns {
		common.Logger().Info("chat: turn limit reached", "conversation_id", conversationID, "turns", len(req.History))
		return Reply{Message: HandoffMessage, ConversationID: conversationID}, nil
	}

	messages := s.buildMessages(req.History, message)
	answer, err := s.provider.Chat(ctx, messages,
		llm.WithTemperature(s.cfg.Temperature), llm.WithMaxTokens(s.cfg.MaxTokens))
	if err != nil {
		return Reply{}, fmt.Errorf("chat completion: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = FallbackMessage
	}
	s.persist(ctx, conversationID, message, answer)
	return Reply{Message: answer, ConversationID: conversationID}, nil
}

func (s *Service) buildMessages(history []Turn, message string) []llm.Message {
	if len(history) > s.cfg.HistoryWindow {
		history = history[len(history)-s.cfg.HistoryWindow:]
	}
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, turn := range history {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		if role != llm.RoleUser && role != llm.RoleAssistant {
			continue
		}
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: message})
}

// persist stores both turns without blocking the reply. Failures are logged.
func (s *Service) persist(ctx context.Context, conversationID, userMessage, answer string) {
	if s.store == nil {
		return
	}
	turns := []sqlite.ChatbotMessage{
		{ConversationID: conversationID, Role: llm.RoleUser, Content: userMessage},
		{ConversationID: conversationID, Role: llm.RoleAssistant, Content: answer},
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistDeadline)
		defer cancel()
		if err := s.store.InsertChatbotMessages(writeCtx, turns...); err != nil {
			common.Logger().Error("chat: store conversation failed", "conversation_id", conversationID, "error", err)
		}
	}()
}

// Wait blocks until background conversation writes have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// Analytics summarises chatbot usage over all time and the last seven days,
// with previews of the most recent conversations.
func (s *Service) Analytics(ctx context.Context) (sqlite.ChatbotStats, error) {
	if s == nil || s.store == nil {
		return sqlite.ChatbotStats{}, errors.New("chat service not initialised")
	}
	stats, err := s.store.ChatbotStats(ctx, s.clock().Add(-recentWindow), previewCount)
	if err != nil {
		return sqlite.ChatbotStats{}, err
	}
	for i := range stats.Conversations {
		stats.Conversations[i].FirstMessage = truncate(stats.Conversations[i].FirstMessage, previewRunes)
	}
	return stats, nil
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
