// File path: internal/leads/service.go
package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx/types"

	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/common/telemetry"
	"github.com/plainlyai/enablr/internal/scoring"
	"github.com/plainlyai/enablr/internal/sqlite"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Statuses an admin may assign to a lead.
var Statuses = []string{"new", "contacted", "qualified", "won", "archived"}

const notePreviewRunes = 50

// Store is the persistence the lead service needs.
type Store interface {
	UpsertLead(ctx context.Context, lead sqlite.Lead, createdEvent interface{}) (sqlite.UpsertResult, error)
	GetLead(ctx context.Context, id string) (*sqlite.Lead, error)
	ListLeads(ctx context.Context, filter sqlite.LeadFilter) ([]sqlite.Lead, error)
	LeadByEmail(ctx context.Context, email string) (*sqlite.Lead, error)
	LeadEvents(ctx context.Context, leadID string) ([]sqlite.LeadEvent, error)
	LeadNotes(ctx context.Context, leadID string) ([]sqlite.LeadNote, error)
	UpdateLeadStatus(ctx context.Context, leadID, status string) (string, error)
	AddLeadNote(ctx context.Context, leadID, note, preview string) (sqlite.LeadNote, error)
	PromoteCandidate(ctx context.Context, candidateID string, build sqlite.PromotionBuilder) (*sqlite.Lead, error)
}

// Submission is an inbound lead from the website form, chatbot or readiness
// check.
type Submission struct {
	Email                 string          `json:"email"`
	FirstName             string          `json:"first_name"`
	LastName              string          `json:"last_name"`
	CompanyName           string          `json:"company_name"`
	Phone                 string          `json:"phone"`
	TeamSize              string          `json:"team_size"`
	ServiceInterest       string          `json:"service_interest"`
	MainChallenge         string          `json:"main_challenge"`
	Source                string          `json:"source"`
	ReadinessScore        *int            `json:"readiness_score"`
	ReadinessAnswers      json.RawMessage `json:"readiness_answers"`
	ChatbotConversationID string          `json:"chatbot_conversation_id"`
	ChatbotSummary        string          `json:"chatbot_summary"`
}

// SubmitResult reports whether Submit created a new lead or refreshed an
// existing one.
type SubmitResult struct {
	LeadID  string `json:"leadId"`
	Created bool   `json:"-"`
	Score   int    `json:"-"`
}

// Detail is a lead together with its notes and audit trail.
type Detail struct {
	Lead   sqlite.Lead        `json:"lead"`
	Notes  []sqlite.LeadNote  `json:"notes"`
	Events []sqlite.LeadEvent `json:"events"`
}

// Service handles lead intake and admin lead management.
type Service struct {
	store Store
}

// NewService builds a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Submit validates sub, scores it and upserts the lead keyed on email.
func (s *Service) Submit(ctx context.Context, sub Submission) (SubmitResult, error) {
	if s == nil || s.store == nil {
		return SubmitResult{}, errors.New("lead service not initialised")
	}
	email := strings.TrimSpace(sub.Email)
	if email == "" {
		return SubmitResult{}, common.NewValidationError("email", "Email is required")
	}
	if !emailPattern.MatchString(email) {
		return SubmitResult{}, common.NewValidationError("email", "Invalid email format")
	}
	// An absent source scores nothing but is stored as a form submission.
	scoredSource := strings.TrimSpace(sub.Source)
	source := scoredSource
	if source == "" {
		source = scoring.SourceForm
	}

	readinessScore := sub.ReadinessScore
	var answers types.JSONText
	if raw := strings.TrimSpace(string(sub.ReadinessAnswers)); raw != "" && raw != "null" {
		answers = types.JSONText(raw)
	}

	score := scoring.Score(scoring.Submission{
		Source:          scoredSource,
		TeamSize:        strings.TrimSpace(sub.TeamSize),
		ServiceInterest: strings.TrimSpace(sub.ServiceInterest),
		ReadinessScore:  readinessScore,
	})
	lead := sqlite.Lead{
		Email:                 email,
		FirstName:             strings.TrimSpace(sub.FirstName),
		LastName:              strings.TrimSpace(sub.LastName),
		CompanyName:           strings.TrimSpace(sub.CompanyName),
		Phone:                 strings.TrimSpace(sub.Phone),
		TeamSize:              strings.TrimSpace(sub.TeamSize),
		ServiceInterest:       strings.TrimSpace(sub.ServiceInterest),
		MainChallenge:         strings.TrimSpace(sub.MainChallenge),
		Source:                source,
		LeadScore:             score,
		ReadinessScore:        readinessScore,
		ReadinessAnswers:      answers,
		ChatbotConversationID: strings.TrimSpace(sub.ChatbotConversationID),
		ChatbotSummary:        strings.TrimSpace(sub.ChatbotSummary),
	}
	res, err := s.store.UpsertLead(ctx, lead, map[string]interface{}{"source": source, "score": score})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("save lead: %w", err)
	}
	telemetry.RecordLeadSubmission(res.Created)
	common.Logger().Info("leads: submission stored",
		"lead_id", res.LeadID, "created", res.Created, "source", source, "score", score, "band", scoring.Band(score))
	return SubmitResult{LeadID: res.LeadID, Created: res.Created, Score: score}, nil
}

// ListFilter narrows List.
type ListFilter struct {
	Status string
	Source string
	Email  string
	Limit  int
}

// List returns up to 100 leads, newest first. An email filter is an exact,
// case-sensitive lookup and yields at most one lead.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]sqlite.Lead, error) {
	if email := strings.TrimSpace(filter.Email); email != "" {
		lead, err := s.store.LeadByEmail(ctx, email)
		if common.IsNotFound(err) {
			return []sqlite.Lead{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []sqlite.Lead{*lead}, nil
	}
	return s.store.ListLeads(ctx, sqlite.LeadFilter{Status: filter.Status, Source: filter.Source, Limit: filter.Limit})
}

// Get loads one lead with its notes and events.
func (s *Service) Get(ctx context.Context, id string) (Detail, error) {
	lead, err := s.store.GetLead(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	notes, err := s.store.LeadNotes(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	events, err := s.store.LeadEvents(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Lead: *lead, Notes: notes, Events: events}, nil
}

// UpdateStatus moves a lead to status and returns the refreshed lead.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*sqlite.Lead, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !validStatus(status) {
		return nil, common.NewValidationError("status", fmt.Sprintf("must be one of %s", strings.Join(Statuses, ", ")))
	}
	previous, err := s.store.UpdateLeadStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	common.Logger().Info("leads: status updated", "lead_id", id, "from", previous, "to", status)
	return s.store.GetLead(ctx, id)
}

func validStatus(status string) bool {
	for _, candidate := range Statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

// AddNote attaches a free-text note to a lead.
func (s *Service) AddNote(ctx context.Context, id, note string) (sqlite.LeadNote, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return sqlite.LeadNote{}, common.NewValidationError("note", "Note is required")
	}
	return s.store.AddLeadNote(ctx, id, note, preview(note, notePreviewRunes))
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// PromoteCandidate copies a discovered candidate into the lead pipeline.
func (s *Service) PromoteCandidate(ctx context.Context, candidateID string) (*sqlite.Lead, error) {
	lead, err := s.store.PromoteCandidate(ctx, candidateID, promotion)
	if err != nil {
		return nil, err
	}
	telemetry.RecordLeadSubmission(true)
	common.Logger().Info("leads: candidate promoted", "candidate_id", candidateID, "lead_id", lead.ID)
	return lead, nil
}

func promotion(c sqlite.LeadCandidate) (sqlite.Lead, interface{}) {
	email := strings.TrimSpace(c.ContactEmail)
	if email == "" {
		email = fmt.Sprintf("pending-%s@placeholder.local", c.ID)
	}
	lead := sqlite.Lead{
		Email:         email,
		CompanyName:   c.BusinessName,
		Source:        scoring.SourceDiscoveryAgent,
		LeadScore:     c.FitScore * 20,
		Status:        "new",
		MainChallenge: c.FitNotes,
	}
	event := map[string]interface{}{
		"candidateId":      c.ID,
		"originalFitScore": c.FitScore,
		"website":          c.Website,
		"industry":         c.Industry,
		"location":         c.Location,
	}
	return lead, event
}
