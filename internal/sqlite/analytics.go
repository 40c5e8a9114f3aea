// File path: internal/sqlite/analytics.go
package sqlite

import (
	"context"
	"fmt"
)

// TopPage is one entry of the most-viewed pages list.
type TopPage struct {
	ID        string `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	URL       string `db:"url" json:"url"`
	PageViews int    `db:"page_views" json:"pageViews"`
	CTAClicks int    `db:"cta_clicks" json:"ctaClicks"`
}

// Dashboard holds the site analytics overview.
type Dashboard struct {
	TotalPages      int               `json:"totalPages"`
	TotalViews      int               `json:"totalViews"`
	TotalCTAClicks  int               `json:"totalCtaClicks"`
	AvgViewsPerPage int               `json:"avgViewsPerPage"`
	TopPages        []TopPage         `json:"topPages"`
	LeadSources     []LeadSourceCount `json:"leadSources"`
	TotalLeads      int               `json:"totalLeads"`
}

// Dashboard computes the analytics overview.
func (s *Store) Dashboard(ctx context.Context, topN int) (Dashboard, error) {
	if s == nil || s.db == nil {
		return Dashboard{}, errNotInitialised
	}
	if topN <= 0 {
		topN = 10
	}
	var out Dashboard
	totals := struct {
		Pages  int `db:"pages"`
		Views  int `db:"views"`
		Clicks int `db:"clicks"`
	}{}
	const pageTotals = `SELECT COUNT(*) AS pages,
                        COALESCE(SUM(page_views), 0) AS views,
                        COALESCE(SUM(cta_clicks), 0) AS clicks
                FROM content_pages`
	if err := s.db.GetContext(ctx, &totals, pageTotals); err != nil {
		return Dashboard{}, fmt.Errorf("sum content pages: %w", err)
	}
	out.TotalPages = totals.Pages
	out.TotalViews = totals.Views
	out.TotalCTAClicks = totals.Clicks
	if totals.Pages > 0 {
		out.AvgViewsPerPage = (totals.Views + totals.Pages/2) / totals.Pages
	}

	out.TopPages = []TopPage{}
	if err := s.db.SelectContext(ctx, &out.TopPages,
		`SELECT id, title, url, page_views, cta_clicks FROM content_pages ORDER BY page_views DESC, title LIMIT ?`, topN); err != nil {
		return Dashboard{}, fmt.Errorf("select top pages: %w", err)
	}

	out.LeadSources = []LeadSourceCount{}
	if err := s.db.SelectContext(ctx, &out.LeadSources,
		`SELECT source, COUNT(*) AS count FROM leads GROUP BY source ORDER BY count DESC, source`); err != nil {
		return Dashboard{}, fmt.Errorf("group lead sources: %w", err)
	}
	for _, row := range out.LeadSources {
		out.TotalLeads += row.Count
	}
	return out, nil
}
