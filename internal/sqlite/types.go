// File path: internal/sqlite/types.go
package sqlite

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Lead is a prospective customer identified by email.
type Lead struct {
	ID                    string         `db:"id" json:"id"`
	Email                 string         `db:"email" json:"email"`
	FirstName             string         `db:"first_name" json:"firstName"`
	LastName              string         `db:"last_name" json:"lastName"`
	CompanyName           string         `db:"company_name" json:"companyName"`
	Phone                 string         `db:"phone" json:"phone"`
	TeamSize              string         `db:"team_size" json:"teamSize"`
	ServiceInterest       string         `db:"service_interest" json:"serviceInterest"`
	MainChallenge         string         `db:"main_challenge" json:"mainChallenge"`
	Source                string         `db:"source" json:"source"`
	LeadScore             int            `db:"lead_score" json:"leadScore"`
	Status                string         `db:"status" json:"status"`
	ReadinessScore        *int           `db:"readiness_score" json:"readinessScore"`
	ReadinessAnswers      types.JSONText `db:"readiness_answers" json:"readinessAnswers,omitempty"`
	ChatbotConversationID string         `db:"chatbot_conversation_id" json:"chatbotConversationId"`
	ChatbotSummary        string         `db:"chatbot_summary" json:"chatbotSummary"`
	CreatedAt             time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updatedAt"`
}

// LeadEvent is an append-only audit record attached to a lead.
type LeadEvent struct {
	ID        string         `db:"id" json:"id"`
	LeadID    string         `db:"lead_id" json:"leadId"`
	EventType string         `db:"event_type" json:"eventType"`
	EventData types.JSONText `db:"event_data" json:"eventData"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// LeadNote is a free-text admin note on a lead.
type LeadNote struct {
	ID        string    `db:"id" json:"id"`
	LeadID    string    `db:"lead_id" json:"leadId"`
	Note      string    `db:"note" json:"note"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// LeadCandidate is a prospect found by the discovery agent, not yet a lead.
type LeadCandidate struct {
	ID             string    `db:"id" json:"id"`
	BusinessName   string    `db:"business_name" json:"businessName"`
	Website        string    `db:"website" json:"website"`
	Location       string    `db:"location" json:"location"`
	Industry       string    `db:"industry" json:"industry"`
	ContactEmail   string    `db:"contact_email" json:"contactEmail"`
	EmailIsGuessed bool      `db:"email_is_guessed" json:"emailIsGuessed"`
	FitScore       int       `db:"fit_score" json:"fitScore"`
	FitNotes       string    `db:"fit_notes" json:"fitNotes"`
	Source         string    `db:"source" json:"source"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// ContentPage is a tracked site page with SEO and engagement metadata.
type ContentPage struct {
	ID                     string         `db:"id" json:"id"`
	Title                  string         `db:"title" json:"title"`
	URL                    string         `db:"url" json:"url"`
	PrimaryTopic           string         `db:"primary_topic" json:"primaryTopic"`
	LocationFocus          string         `db:"location_focus" json:"locationFocus"`
	Status                 string         `db:"status" json:"status"`
	Notes                  string         `db:"notes" json:"notes"`
	ReviewNotes            string         `db:"review_notes" json:"reviewNotes"`
	LastReviewed           *time.Time     `db:"last_reviewed" json:"lastReviewed"`
	NextReviewDate         *time.Time     `db:"next_review_date" json:"nextReviewDate"`
	PageViews              int            `db:"page_views" json:"pageViews"`
	CTAClicks              int            `db:"cta_clicks" json:"ctaClicks"`
	AISummary              string         `db:"ai_summary" json:"aiSummary"`
	AIGeneratedAt          *time.Time     `db:"ai_generated_at" json:"aiGeneratedAt"`
	SuggestedKeywords      StringList     `db:"suggested_keywords" json:"suggestedKeywords"`
	SuggestedLocalPhrases  StringList     `db:"suggested_local_phrases" json:"suggestedLocalPhrases"`
	HasBirminghamMention   bool           `db:"has_birmingham_mention" json:"hasBirminghamMention"`
	HasWestMidlandsMention bool           `db:"has_west_midlands_mention" json:"hasWestMidlandsMention"`
	SuggestedReviewDate    *time.Time     `db:"suggested_review_date" json:"suggestedReviewDate"`
	AIAnalysis             types.JSONText `db:"ai_analysis" json:"aiAnalysis,omitempty"`
	CreatedAt              time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time      `db:"updated_at" json:"updatedAt"`
}

// ChatbotMessage is one stored turn of a chatbot conversation.
type ChatbotMessage struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	Role           string    `db:"role" json:"role"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// StringList is a string slice persisted as a JSON array.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan string list: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan string list: %w", err)
	}
	*l = out
	return nil
}

// MarshalJSON renders a nil list as [] rather than null.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}
