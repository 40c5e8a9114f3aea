// File path: internal/content/service.go
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/common/telemetry"
	"github.com/plainlyai/enablr/internal/llm"
	"github.com/plainlyai/enablr/internal/sqlite"
)

// Store is the persistence the content service needs.
type Store interface {
	CreateContentPage(ctx context.Context, page sqlite.ContentPage) (*sqlite.ContentPage, error)
	ListContentPages(ctx context.Context) ([]sqlite.ContentPage, error)
	GetContentPage(ctx context.Context, id string) (*sqlite.ContentPage, error)
	UpdateContentPage(ctx context.Context, id string, changes map[string]interface{}) (*sqlite.ContentPage, error)
	DeleteContentPage(ctx context.Context, id string) error
	SaveContentAnalysis(ctx context.Context, id string, rec sqlite.AnalysisRecord) (*sqlite.ContentPage, error)
	TrackPageEvent(ctx context.Context, url string, counter sqlite.TrackCounter) (bool, error)
}

// Service manages tracked pages and their SEO analyses.
type Service struct {
	store    Store
	provider llm.Provider
	clock    func() time.Time
}

// NewService builds a Service. provider runs page analyses.
func NewService(store Store, provider llm.Provider) *Service {
	return &Service{store: store, provider: provider, clock: func() time.Time { return time.Now().UTC() }}
}

// NewPage is the payload for Create.
type NewPage struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PrimaryTopic  string `json:"primary_topic"`
	LocationFocus string `json:"location_focus"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
}

// Create adds a page. Title and URL are required and the URL must be new.
func (s *Service) Create(ctx context.Context, in NewPage) (*sqlite.ContentPage, error) {
	title := strings.TrimSpace(in.Title)
	link := strings.TrimSpace(in.URL)
	if title == "" || link == "" {
		return nil, common.NewValidationError("", "Title and URL are required")
	}
	page, err := s.store.CreateContentPage(ctx, sqlite.ContentPage{
		Title:         title,
		URL:           link,
		PrimaryTopic:  strings.TrimSpace(in.PrimaryTopic),
		LocationFocus: strings.TrimSpace(in.LocationFocus),
		Status:        strings.TrimSpace(in.Status),
		Notes:         in.Notes,
	})
	if err != nil {
		return nil, err
	}
	common.Logger().Info("content: page created", "page_id", page.ID, "url", page.URL)
	return page, nil
}

// List returns every page, least recently reviewed first.
func (s *Service) List(ctx context.Context) ([]sqlite.ContentPage, error) {
	return s.store.ListContentPages(ctx)
}

// Get loads one page.
func (s *Service) Get(ctx context.Context, id string) (*sqlite.ContentPage, error) {
	return s.store.GetContentPage(ctx, id)
}

// Delete removes a page.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteContentPage(ctx, id); err != nil {
		return err
	}
	common.Logger().Info("content: page deleted", "page_id", id)
	return nil
}

// Patch is a partial page update decoded from a JSON object. Only keys
// present in the object are applied.
type Patch map[string]json.RawMessage

type fieldKind int

const (
	kindText fieldKind = iota
	kindCount
	kindDate
)

var patchFields = map[string]fieldKind{
	"title":            kindText,
	"url":              kindText,
	"primary_topic":    kindText,
	"location_focus":   kindText,
	"status":           kindText,
	"notes":            kindText,
	"review_notes":     kindText,
	"last_reviewed":    kindDate,
	"next_review_date": kindDate,
	"page_views":       kindCount,
	"cta_clicks":       kindCount,
}

// Update applies patch to the page and returns the stored result.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*sqlite.ContentPage, error) {
	changes := make(map[string]interface{}, len(patch))
	for key, raw := range patch {
		kind, ok := patchFields[key]
		if !ok {
			return nil, common.NewValidationError(key, "field cannot be updated")
		}
		value, err := decodeField(key, kind, raw)
		if err != nil {
			return nil, err
		}
		changes[key] = value
	}
	page, err := s.store.UpdateContentPage(ctx, id, changes)
	if err != nil {
		return nil, err
	}
	common.Logger().Info("content: page updated", "page_id", id, "fields", len(changes))
	return page, nil
}

func decodeField(key string, kind fieldKind, raw json.RawMessage) (interface{}, error) {
	isNull := bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
	switch kind {
	case kindCount:
		var n int
		if isNull {
			return 0, nil
		}
		if err := json.Unmarshal(raw, &n); err != nil || n < 0 {
			return nil, common.NewValidationError(key, "must be a non-negative integer")
		}
		return n, nil
	case kindDate:
		if isNull {
			return nil, nil
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, common.NewValidationError(key, "must be a date string")
		}
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		t, err := parseDate(text)
		if err != nil {
			return nil, common.NewValidationError(key, err.Error())
		}
		return t, nil
	default:
		var text string
		if isNull {
			return "", nil
		}
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, common.NewValidationError(key, "must be a string")
		}
		text = strings.TrimSpace(text)
		if (key == "title" || key == "url") && text == "" {
			return nil, common.NewValidationError(key, "must not be empty")
		}
		return text, nil
	}
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

func parseDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", text)
}

// TrackEvent names a page interaction recorded by Track.
type TrackEvent string

const (
	EventPageView TrackEvent = "page_view"
	EventCTAClick TrackEvent = "cta_click"
)

// NormalizeURL strips the query string, fragment and trailing slash. An
// empty path becomes "/".
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		raw = u.Path
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimRight(raw, "/")
	if raw == "" {
		return "/"
	}
	return raw
}

// Track counts an interaction with the page at rawURL, creating a published
// page when none matches. Callers treat failures as non-fatal.
func (s *Service) Track(ctx context.Context, rawURL string, event TrackEvent) error {
	if strings.TrimSpace(rawURL) == "" {
		return common.NewValidationError("url", "URL required")
	}
	counter := sqlite.CounterPageViews
	if event == EventCTAClick {
		counter = sqlite.CounterCTAClicks
	}
	normalized := NormalizeURL(rawURL)
	created, err := s.store.TrackPageEvent(ctx, normalized, counter)
	if err != nil {
		telemetry.RecordTrackingFailure()
		common.Logger().Warn("content: tracking failed", "url", normalized, "event", event, "error", err)
		return fmt.Errorf("track %s: %w", normalized, err)
	}
	if created {
		common.Logger().Info("content: auto-tracked page created", "url", normalized)
	}
	return nil
}

var errNoProvider = errors.New("content analysis provider not configured")
