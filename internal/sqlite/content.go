// File path: internal/sqlite/content.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/plainlyai/enablr/internal/common"
)

// Columns an admin may set through UpdateContentPage.
var contentUpdatableColumns = map[string]struct{}{
	"title":            {},
	"url":              {},
	"primary_topic":    {},
	"location_focus":   {},
	"status":           {},
	"notes":            {},
	"review_notes":     {},
	"last_reviewed":    {},
	"next_review_date": {},
	"page_views":       {},
	"cta_clicks":       {},
}

// CreateContentPage inserts page. A URL that is already tracked is a
// ValidationError.
func (s *Store) CreateContentPage(ctx context.Context, page ContentPage) (*ContentPage, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	ts := now()
	page.ID = newID()
	if page.LocationFocus == "" {
		page.LocationFocus = "none"
	}
	if page.Status == "" {
		page.Status = "draft"
	}
	page.CreatedAt, page.UpdatedAt = ts, ts
	const query = `INSERT INTO content_pages(
                        id, title, url, primary_topic, location_focus, status, notes,
                        review_notes, last_reviewed, next_review_date, page_views, cta_clicks,
                        suggested_keywords, suggested_local_phrases, created_at, updated_at)
                VALUES(
                        :id, :title, :url, :primary_topic, :location_focus, :status, :notes,
                        :review_notes, :last_reviewed, :next_review_date, :page_views, :cta_clicks,
                        :suggested_keywords, :suggested_local_phrases, :created_at, :updated_at)
                ON CONFLICT(url) DO NOTHING`
	res, err := s.db.NamedExecContext(ctx, query, page)
	if err != nil {
		return nil, fmt.Errorf("insert content page: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("insert content page rows: %w", err)
	} else if n == 0 {
		return nil, common.NewValidationError("url", "a page with this URL already exists")
	}
	return s.GetContentPage(ctx, page.ID)
}

// ListContentPages returns pages least recently reviewed first; never
// reviewed pages lead.
func (s *Store) ListContentPages(ctx context.Context) ([]ContentPage, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	pages := []ContentPage{}
	if err := s.db.SelectContext(ctx, &pages, `SELECT * FROM content_pages ORDER BY last_reviewed ASC, created_at ASC`); err != nil {
		return nil, fmt.Errorf("select content pages: %w", err)
	}
	return pages, nil
}

// GetContentPage loads one page.
func (s *Store) GetContentPage(ctx context.Context, id string) (*ContentPage, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	var page ContentPage
	if err := s.db.GetContext(ctx, &page, `SELECT * FROM content_pages WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &common.NotFoundError{Resource: "content page", ID: id}
		}
		return nil, fmt.Errorf("select content page: %w", err)
	}
	return &page, nil
}

// UpdateContentPage applies a partial update keyed by column name. Unknown
// columns are rejected; an empty change set only touches updated_at.
func (s *Store) UpdateContentPage(ctx context.Context, id string, changes map[string]interface{}) (*ContentPage, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	set := make(map[string]interface{}, len(changes)+1)
	columns := make([]string, 0, len(changes))
	for column := range changes {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		if _, ok := contentUpdatableColumns[column]; !ok {
			return nil, common.NewValidationError(column, "field cannot be updated")
		}
		set[column] = changes[column]
	}
	set["updated_at"] = now()

	query, args, err := sq.Update("content_pages").SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build content update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewValidationError("url", "a page with this URL already exists")
		}
		return nil, fmt.Errorf("update content page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &common.NotFoundError{Resource: "content page", ID: id}
	}
	return s.GetContentPage(ctx, id)
}

// DeleteContentPage removes a page.
func (s *Store) DeleteContentPage(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errNotInitialised
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM content_pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete content page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &common.NotFoundError{Resource: "content page", ID: id}
	}
	return nil
}

// AnalysisRecord holds the model-derived fields written by SaveContentAnalysis.
type AnalysisRecord struct {
	Summary                string
	Keywords               []string
	LocalPhrases           []string
	HasBirminghamMention   bool
	HasWestMidlandsMention bool
	SuggestedReviewDate    *time.Time
	Raw                    types.JSONText
	GeneratedAt            time.Time
}

// SaveContentAnalysis overwrites the AI fields of a page.
func (s *Store) SaveContentAnalysis(ctx context.Context, id string, rec AnalysisRecord) (*ContentPage, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	if rec.GeneratedAt.IsZero() {
		rec.GeneratedAt = now()
	}
	const query = `UPDATE content_pages SET
                        ai_summary = ?,
                        ai_generated_at = ?,
                        suggested_keywords = ?,
                        suggested_local_phrases = ?,
                        has_birmingham_mention = ?,
                        has_west_midlands_mention = ?,
                        suggested_review_date = ?,
                        ai_analysis = ?,
                        updated_at = ?
                WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query,
		rec.Summary, rec.GeneratedAt, StringList(rec.Keywords), StringList(rec.LocalPhrases),
		rec.HasBirminghamMention, rec.HasWestMidlandsMention, rec.SuggestedReviewDate,
		rec.Raw, now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("save content analysis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &common.NotFoundError{Resource: "content page", ID: id}
	}
	return s.GetContentPage(ctx, id)
}

// TrackCounter names the engagement counter incremented by TrackPageEvent.
type TrackCounter string

const (
	CounterPageViews TrackCounter = "page_views"
	CounterCTAClicks TrackCounter = "cta_clicks"
)

// AutoTrackedTitle is the title given to pages created by tracking.
const AutoTrackedTitle = "Auto-tracked page"

// TrackPageEvent increments counter on the page best matching url: an exact
// match, then the url with a trailing slash, then any url containing it.
// When nothing matches a published page is created with the counter at 1.
// It reports whether a page was created.
func (s *Store) TrackPageEvent(ctx context.Context, url string, counter TrackCounter) (bool, error) {
	if s == nil || s.db == nil {
		return false, errNotInitialised
	}
	if counter != CounterPageViews && counter != CounterCTAClicks {
		return false, fmt.Errorf("unknown counter %q", counter)
	}
	created := false
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var id string
		const match = `SELECT id FROM content_pages
                WHERE url = ? OR url = ? OR instr(url, ?) > 0
                ORDER BY CASE WHEN url = ? THEN 0 WHEN url = ? THEN 1 ELSE 2 END, length(url)
                LIMIT 1`
		withSlash := url + "/"
		err := tx.GetContext(ctx, &id, match, url, withSlash, url, url, withSlash)
		switch {
		case err == nil:
			query := fmt.Sprintf(`UPDATE content_pages SET %[1]s = %[1]s + 1 WHERE id = ?`, counter)
			if _, err := tx.ExecContext(ctx, query, id); err != nil {
				return fmt.Errorf("increment %s: %w", counter, err)
			}
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("match tracked page: %w", err)
		}

		ts := now()
		page := ContentPage{
			ID:            newID(),
			Title:         AutoTrackedTitle,
			URL:           url,
			LocationFocus: "none",
			Status:        "published",
			CreatedAt:     ts,
			UpdatedAt:     ts,
		}
		if counter == CounterPageViews {
			page.PageViews = 1
		} else {
			page.CTAClicks = 1
		}
		query := fmt.Sprintf(`INSERT INTO content_pages(id, title, url, location_focus, status, page_views, cta_clicks, created_at, updated_at)
                VALUES(:id, :title, :url, :location_focus, :status, :page_views, :cta_clicks, :created_at, :updated_at)
                ON CONFLICT(url) DO UPDATE SET %[1]s = content_pages.%[1]s + 1`, counter)
		if _, err := tx.NamedExecContext(ctx, query, page); err != nil {
			return fmt.Errorf("insert tracked page: %w", err)
		}
		created = true
		return nil
	})
	return created, err
}
