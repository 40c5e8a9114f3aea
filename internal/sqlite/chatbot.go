// File path: internal/sqlite/chatbot.go
package sqlite

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// InsertChatbotMessages stores conversation turns in one statement.
func (s *Store) InsertChatbotMessages(ctx context.Context, messages ...ChatbotMessage) error {
	if s == nil || s.db == nil {
		return errNotInitialised
	}
	if len(messages) == 0 {
		return nil
	}
	ts := now()
	builder := sq.Insert("chatbot_messages").Columns("id", "conversation_id", "role", "content", "created_at")
	for i, msg := range messages {
		if msg.ID == "" {
			msg.ID = newID()
		}
		if msg.CreatedAt.IsZero() {
			// Keep turn order stable for messages written together.
			msg.CreatedAt = ts.Add(time.Duration(i) * time.Microsecond)
		}
		builder = builder.Values(msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build chatbot insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert chatbot messages: %w", err)
	}
	return nil
}

// ConversationMessages returns a conversation's stored turns in order.
func (s *Store) ConversationMessages(ctx context.Context, conversationID string) ([]ChatbotMessage, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	out := []ChatbotMessage{}
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM chatbot_messages WHERE conversation_id = ? ORDER BY created_at, rowid`, conversationID); err != nil {
		return nil, fmt.Errorf("select conversation messages: %w", err)
	}
	return out, nil
}

// ConversationPreview summarises one conversation for the admin dashboard.
type ConversationPreview struct {
	ConversationID string    `db:"conversation_id" json:"id"`
	MessageCount   int       `db:"message_count" json:"messageCount"`
	StartedAt      time.Time `db:"started_at" json:"startedAt"`
	FirstMessage   string    `db:"first_message" json:"preview"`
}

// ChatbotStats are the chatbot usage figures.
type ChatbotStats struct {
	TotalConversations  int                   `json:"totalConversations"`
	TotalMessages       int                   `json:"totalMessages"`
	UserMessages        int                   `json:"userMessages"`
	RecentConversations int                   `json:"recentConversations"`
	RecentMessages      int                   `json:"recentMessages"`
	Conversations       []ConversationPreview `json:"conversationPreviews"`
}

// ChatbotStats aggregates messages; "recent" figures count rows created at or
// after since. At most previews conversations are returned, newest first.
func (s *Store) ChatbotStats(ctx context.Context, since time.Time, previews int) (ChatbotStats, error) {
	if s == nil || s.db == nil {
		return ChatbotStats{}, errNotInitialised
	}
	var stats ChatbotStats
	const totals = `SELECT
                        COUNT(DISTINCT conversation_id) AS conversations,
                        COUNT(*) AS messages,
                        COALESCE(SUM(CASE WHEN role = 'user' THEN 1 ELSE 0 END), 0) AS user_messages
                FROM chatbot_messages`
	row := struct {
		Conversations int `db:"conversations"`
		Messages      int `db:"messages"`
		UserMessages  int `db:"user_messages"`
	}{}
	if err := s.db.GetContext(ctx, &row, totals); err != nil {
		return ChatbotStats{}, fmt.Errorf("count chatbot messages: %w", err)
	}
	stats.TotalConversations = row.Conversations
	stats.TotalMessages = row.Messages
	stats.UserMessages = row.UserMessages

	const recent = `SELECT COUNT(DISTINCT conversation_id) AS conversations, COUNT(*) AS messages, 0 AS user_messages
                FROM chatbot_messages WHERE created_at >= ?`
	if err := s.db.GetContext(ctx, &row, recent, since); err != nil {
		return ChatbotStats{}, fmt.Errorf("count recent chatbot messages: %w", err)
	}
	stats.RecentConversations = row.Conversations
	stats.RecentMessages = row.Messages

	if previews <= 0 {
		previews = 10
	}
	// The first user turn of each conversation is its preview.
	const convo = `SELECT
                        m.conversation_id AS conversation_id,
                        COUNT(*) AS message_count,
                        MIN(m.created_at) AS started_at,
                        COALESCE((
                                SELECT f.content FROM chatbot_messages f
                                WHERE f.conversation_id = m.conversation_id AND f.role = 'user'
                                ORDER BY f.created_at, f.rowid LIMIT 1
                        ), '') AS first_message
                FROM chatbot_messages m
                GROUP BY m.conversation_id
                ORDER BY MAX(m.created_at) DESC
                LIMIT ?`
	rows, err := s.db.QueryxContext(ctx, convo, previews)
	if err != nil {
		return ChatbotStats{}, fmt.Errorf("select conversation previews: %w", err)
	}
	defer rows.Close()
	stats.Conversations = []ConversationPreview{}
	for rows.Next() {
		var (
			preview ConversationPreview
			started interface{}
		)
		if err := rows.Scan(&preview.ConversationID, &preview.MessageCount, &started, &preview.FirstMessage); err != nil {
			return ChatbotStats{}, fmt.Errorf("scan conversation preview: %w", err)
		}
		preview.StartedAt = parseAggregateTime(started)
		stats.Conversations = append(stats.Conversations, preview)
	}
	if err := rows.Err(); err != nil {
		return ChatbotStats{}, fmt.Errorf("iterate conversation previews: %w", err)
	}
	return stats, nil
}

// Aggregates such as MIN() lose the column's declared type, so the driver
// hands back the stored text rather than a time.Time.
var aggregateTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	// Driver default for rows written without _time_format.
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

func parseAggregateTime(v interface{}) time.Time {
	var raw string
	switch val := v.(type) {
	case time.Time:
		return val.UTC()
	case string:
		raw = val
	case []byte:
		raw = string(val)
	default:
		return time.Time{}
	}
	for _, layout := range aggregateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
