// File path: internal/content/analysis.go
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/llm"
	"github.com/plainlyai/enablr/internal/sqlite"
)

const analysisPrompt = `You are an SEO and content analyst for Plainly AI, a UK AI consultancy based in Birmingham, West Midlands.
Audit the page described below and reply with JSON only, using exactly this structure:
{
  "overall_score": number (0-100),
  "local_score": number (0-100, how well the page targets Birmingham and the West Midlands),
  "content_score": number (0-100, clarity and usefulness for non-technical SME owners),
  "summary": "3-5 sentences: what the page is about, who it is for, what action it encourages",
  "keywords": ["5-10 relevant SEO keywords and topics"],
  "strengths": ["string"],
  "issues": ["string"],
  "recommendations": [{"priority": "high|medium|low", "action": "string"}],
  "keyword_gaps": ["keywords the page should target but does not"],
  "local_mentions": {"birmingham": number, "west_midlands": number},
  "suggested_local_phrases": ["3 natural ways to reference Birmingham or the West Midlands; empty if already well covered"],
  "suggested_review_date": "YYYY-MM-DD, based on the content type"
}
Order recommendations by priority, highest first.`

const (
	analysisTemperature = 0.3
	analysisMaxTokens   = 1000
)

// Recommendation is one prioritised improvement.
type Recommendation struct {
	Priority string `json:"priority"`
	Action   string `json:"action"`
}

// MentionCount accepts a number or a boolean from the model.
type MentionCount int

func (m *MentionCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true":
		*m = 1
		return nil
	case "false", "null":
		*m = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("mention count: %w", err)
	}
	if f < 0 {
		f = 0
	}
	*m = MentionCount(f)
	return nil
}

// Score is a 0-100 rating. Fractional values from the model are rounded.
type Score int

func (s *Score) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*s = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("score: %w", err)
	}
	*s = Score(math.Round(f))
	return nil
}

// LocalMentions counts references to the target region.
type LocalMentions struct {
	Birmingham   MentionCount `json:"birmingham"`
	WestMidlands MentionCount `json:"west_midlands"`
}

// Analysis is the structured audit returned by the model.
type Analysis struct {
	OverallScore          Score            `json:"overall_score"`
	LocalScore            Score            `json:"local_score"`
	ContentScore          Score            `json:"content_score"`
	Summary               string           `json:"summary"`
	Keywords              []string         `json:"keywords"`
	Strengths             []string         `json:"strengths"`
	Issues                []string         `json:"issues"`
	Recommendations       []Recommendation `json:"recommendations"`
	KeywordGaps           []string         `json:"keyword_gaps"`
	LocalMentions         LocalMentions    `json:"local_mentions"`
	SuggestedLocalPhrases []string         `json:"suggested_local_phrases"`
	SuggestedReviewDate   string           `json:"suggested_review_date"`
}

// Outcome is the result of Analyse.
type Outcome struct {
	Analysis Analysis            `json:"analysis"`
	Page     *sqlite.ContentPage `json:"page"`
}

// Digest renders the fixed description of a page sent for analysis.
func Digest(page sqlite.ContentPage) string {
	topic := page.PrimaryTopic
	if strings.TrimSpace(topic) == "" {
		topic = "Not specified"
	}
	notes := page.Notes
	if strings.TrimSpace(notes) == "" {
		notes = "None"
	}
	return fmt.Sprintf("Page Title: %s\nURL: %s\nPrimary Topic: %s\nNotes: %s", page.Title, page.URL, topic, notes)
}

// Analyse audits the page with the model and stores the result. The page is
// left untouched when it is unknown or the model output cannot be parsed.
func (s *Service) Analyse(ctx context.Context, id string) (Outcome, error) {
	if s.provider == nil {
		return Outcome{}, errNoProvider
	}
	page, err := s.store.GetContentPage(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	logger := common.Logger()
	reply, err := s.provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: analysisPrompt},
		{Role: llm.RoleUser, Content: "Analyse this page:\n\n" + Digest(*page)},
	}, llm.WithTemperature(analysisTemperature), llm.WithMaxTokens(analysisMaxTokens))
	if err != nil {
		return Outcome{}, fmt.Errorf("analyse page %s: %w", id, err)
	}

	var analysis Analysis
	if err := llm.DecodeJSON(reply, &analysis); err != nil {
		logger.Error("content: analysis output not parseable", "page_id", id, "error", err)
		return Outcome{}, &common.AnalysisParseError{Err: err}
	}
	analysis.normalise()
	if analysis.Summary == "" {
		logger.Error("content: analysis output missing summary", "page_id", id)
		return Outcome{}, &common.AnalysisParseError{Err: errMissingSummary}
	}

	raw, err := json.Marshal(analysis)
	if err != nil {
		return Outcome{}, fmt.Errorf("encode analysis: %w", err)
	}
	record := sqlite.AnalysisRecord{
		Summary:                analysis.Summary,
		Keywords:               analysis.Keywords,
		LocalPhrases:           analysis.SuggestedLocalPhrases,
		HasBirminghamMention:   analysis.LocalMentions.Birmingham > 0,
		HasWestMidlandsMention: analysis.LocalMentions.WestMidlands > 0,
		SuggestedReviewDate:    reviewDate(analysis.SuggestedReviewDate),
		Raw:                    types.JSONText(raw),
		GeneratedAt:            s.clock(),
	}
	updated, err := s.store.SaveContentAnalysis(ctx, id, record)
	if err != nil {
		return Outcome{}, err
	}
	logger.Info("content: page analysed", "page_id", id, "overall_score", analysis.OverallScore)
	return Outcome{Analysis: analysis, Page: updated}, nil
}

var errMissingSummary = errors.New("analysis has no summary")

func (a *Analysis) normalise() {
	a.OverallScore = clampScore(a.OverallScore)
	a.LocalScore = clampScore(a.LocalScore)
	a.ContentScore = clampScore(a.ContentScore)
	a.Summary = strings.TrimSpace(a.Summary)
	for _, list := range []*[]string{&a.Keywords, &a.Strengths, &a.Issues, &a.KeywordGaps, &a.SuggestedLocalPhrases} {
		if *list == nil {
			*list = []string{}
		}
	}
	if a.Recommendations == nil {
		a.Recommendations = []Recommendation{}
	}
}

func clampScore(v Score) Score {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func reviewDate(text string) *time.Time {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	t, err := parseDate(text)
	if err != nil {
		return nil
	}
	return &t
}
