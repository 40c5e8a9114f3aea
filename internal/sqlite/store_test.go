// File path: internal/sqlite/store_test.go
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/plainlyai/enablr/internal/common"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenWithConfig(Config{Path: filepath.Join(t.TempDir(), "enablr.db")})
	if err != nil {
		t.Fatalf("OpenWithConfig: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func countRows(t *testing.T, store *Store, table string) int {
	t.Helper()
	var n int
	if err := store.DB().Get(&n, "SELECT COUNT(*) FROM "+table); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestUpsertLeadCreatesThenUpdates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.UpsertLead(ctx, Lead{
		Email:       "ann@example.com",
		FirstName:   "Ann",
		CompanyName: "Acme",
		Source:      "form",
		LeadScore:   20,
	}, map[string]interface{}{"source": "form", "score": 20})
	if err != nil {
		t.Fatalf("UpsertLead create: %v", err)
	}
	if !first.Created || first.LeadID == "" {
		t.Fatalf("expected created lead, got %+v", first)
	}

	second, err := store.UpsertLead(ctx, Lead{
		Email:     "ann@example.com",
		LastName:  "Smith",
		Source:    "chatbot",
		LeadScore: 30,
	}, nil)
	if err != nil {
		t.Fatalf("UpsertLead update: %v", err)
	}
	if second.Created || second.LeadID != first.LeadID {
		t.Fatalf("expected update of %s, got %+v", first.LeadID, second)
	}

	lead, err := store.GetLead(ctx, first.LeadID)
	if err != nil {
		t.Fatalf("GetLead: %v", err)
	}
	if lead.FirstName != "Ann" || lead.LastName != "Smith" || lead.CompanyName != "Acme" {
		t.Fatalf("unexpected merged fields: %+v", lead)
	}
	if lead.LeadScore != 30 {
		t.Fatalf("lead score = %d, want 30", lead.LeadScore)
	}
	if lead.Source != "form" {
		t.Fatalf("source should be kept on update, got %q", lead.Source)
	}
	if got := countRows(t, store, "leads"); got != 1 {
		t.Fatalf("leads = %d, want 1", got)
	}
	events, err := store.LeadEvents(ctx, first.LeadID)
	if err != nil {
		t.Fatalf("LeadEvents: %v", err)
	}
	if len(events) != 1 || events[0].EventType != EventLeadCreated {
		t.Fatalf("expected a single lead_created event, got %+v", events)
	}
}

func TestUpsertLeadConcurrentSameEmail(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.UpsertLead(ctx, Lead{
				Email:     "race@example.com",
				FirstName: fmt.Sprintf("worker-%d", i),
				Source:    "form",
				LeadScore: 20,
			}, nil)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("UpsertLead: %v", err)
		}
	}
	if got := countRows(t, store, "leads"); got != 1 {
		t.Fatalf("leads = %d, want 1", got)
	}
	if got := countRows(t, store, "lead_events"); got != 1 {
		t.Fatalf("lead_events = %d, want 1", got)
	}
}

func TestUpdateLeadStatusAndNotes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	res, err := store.UpsertLead(ctx, Lead{Email: "bo@example.com", Source: "form"}, nil)
	if err != nil {
		t.Fatalf("UpsertLead: %v", err)
	}

	prev, err := store.UpdateLeadStatus(ctx, res.LeadID, "contacted")
	if err != nil {
		t.Fatalf("UpdateLeadStatus: %v", err)
	}
	if prev != "new" {
		t.Fatalf("previous status = %q", prev)
	}
	if _, err := store.AddLeadNote(ctx, res.LeadID, "Called, keen on training", "Called, keen on training"); err != nil {
		t.Fatalf("AddLeadNote: %v", err)
	}
	if _, err := store.UpdateLeadStatus(ctx, "missing", "won"); !common.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if _, err := store.AddLeadNote(ctx, "missing", "x", "x"); !common.IsNotFound(err) {
		t.Fatalf("expected NotFoundError for note, got %v", err)
	}

	events, err := store.LeadEvents(ctx, res.LeadID)
	if err != nil {
		t.Fatalf("LeadEvents: %v", err)
	}
	var types []string
	for _, e := range events {
		types = append(types, e.EventType)
	}
	want := []string{EventLeadCreated, EventStatusChange, EventNoteAdded}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	var change map[string]string
	if err := events[1].EventData.Unmarshal(&change); err != nil {
		t.Fatalf("decode status change: %v", err)
	}
	if change["from"] != "new" || change["to"] != "contacted" {
		t.Fatalf("unexpected status change payload: %v", change)
	}
}

func TestPromoteCandidateOnce(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	candidates := []LeadCandidate{
		{BusinessName: "Brum Bakes", Website: "https://brumbakes.co.uk", FitScore: 4, Source: "Google Search"},
		{BusinessName: "Solihull Plumbing", FitScore: 2, Source: "Google Search"},
	}
	if err := store.InsertCandidates(ctx, candidates); err != nil {
		t.Fatalf("InsertCandidates: %v", err)
	}
	if got := countRows(t, store, "lead_candidates"); got != 2 {
		t.Fatalf("candidates = %d, want 2", got)
	}

	build := func(c LeadCandidate) (Lead, interface{}) {
		return Lead{
			Email:       "pending-" + c.ID + "@placeholder.local",
			CompanyName: c.BusinessName,
			Source:      "discovery_agent",
			LeadScore:   c.FitScore * 20,
		}, map[string]interface{}{"candidateId": c.ID}
	}
	lead, err := store.PromoteCandidate(ctx, candidates[0].ID, build)
	if err != nil {
		t.Fatalf("PromoteCandidate: %v", err)
	}
	if lead.CompanyName != "Brum Bakes" || lead.LeadScore != 80 {
		t.Fatalf("unexpected lead: %+v", lead)
	}
	c, err := store.GetCandidate(ctx, candidates[0].ID)
	if err != nil {
		t.Fatalf("GetCandidate: %v", err)
	}
	if c.Status != CandidateStatusPromoted {
		t.Fatalf("candidate status = %q", c.Status)
	}

	_, err = store.PromoteCandidate(ctx, candidates[0].ID, build)
	var conflict *common.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError on second promotion, got %v", err)
	}
	if got := countRows(t, store, "leads"); got != 1 {
		t.Fatalf("leads = %d, want 1", got)
	}
	if _, err := store.PromoteCandidate(ctx, "missing", build); !common.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestContentPageLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	page, err := store.CreateContentPage(ctx, ContentPage{Title: "AI training", URL: "/services/training"})
	if err != nil {
		t.Fatalf("CreateContentPage: %v", err)
	}
	if page.Status != "draft" || page.LocationFocus != "none" {
		t.Fatalf("defaults not applied: %+v", page)
	}
	if _, err := store.CreateContentPage(ctx, ContentPage{Title: "Dup", URL: "/services/training"}); !common.IsValidation(err) {
		t.Fatalf("expected ValidationError for duplicate url, got %v", err)
	}

	reviewed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	updated, err := store.UpdateContentPage(ctx, page.ID, map[string]interface{}{
		"status":        "published",
		"last_reviewed": &reviewed,
	})
	if err != nil {
		t.Fatalf("UpdateContentPage: %v", err)
	}
	if updated.Status != "published" || updated.Title != "AI training" {
		t.Fatalf("partial update wrong: %+v", updated)
	}
	if updated.LastReviewed == nil || !updated.LastReviewed.Equal(reviewed) {
		t.Fatalf("last reviewed = %v", updated.LastReviewed)
	}
	if _, err := store.UpdateContentPage(ctx, page.ID, map[string]interface{}{"ai_summary": "x"}); !common.IsValidation(err) {
		t.Fatalf("expected ValidationError for protected column, got %v", err)
	}

	if err := store.DeleteContentPage(ctx, page.ID); err != nil {
		t.Fatalf("DeleteContentPage: %v", err)
	}
	if _, err := store.GetContentPage(ctx, page.ID); !common.IsNotFound(err) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}
}

func TestTrackPageEventMatchesAndCreates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	page, err := store.CreateContentPage(ctx, ContentPage{Title: "About", URL: "/about/"})
	if err != nil {
		t.Fatalf("CreateContentPage: %v", err)
	}

	created, err := store.TrackPageEvent(ctx, "/about", CounterPageViews)
	if err != nil || created {
		t.Fatalf("TrackPageEvent existing: created=%v err=%v", created, err)
	}
	if _, err := store.TrackPageEvent(ctx, "/about", CounterCTAClicks); err != nil {
		t.Fatalf("TrackPageEvent cta: %v", err)
	}
	got, err := store.GetContentPage(ctx, page.ID)
	if err != nil {
		t.Fatalf("GetContentPage: %v", err)
	}
	if got.PageViews != 1 || got.CTAClicks != 1 {
		t.Fatalf("counters = %d/%d, want 1/1", got.PageViews, got.CTAClicks)
	}

	created, err = store.TrackPageEvent(ctx, "/pricing", CounterPageViews)
	if err != nil || !created {
		t.Fatalf("TrackPageEvent new: created=%v err=%v", created, err)
	}
	if _, err := store.TrackPageEvent(ctx, "/pricing", CounterPageViews); err != nil {
		t.Fatalf("TrackPageEvent repeat: %v", err)
	}
	pages, err := store.ListContentPages(ctx)
	if err != nil {
		t.Fatalf("ListContentPages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	for _, p := range pages {
		if p.URL == "/pricing" && (p.Title != AutoTrackedTitle || p.Status != "published" || p.PageViews != 2) {
			t.Fatalf("unexpected auto page: %+v", p)
		}
	}
}

func TestChatbotStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	before := time.Now().UTC().Add(-time.Second)
	if err := store.InsertChatbotMessages(ctx,
		ChatbotMessage{ConversationID: "c1", Role: "user", Content: "Hello there"},
		ChatbotMessage{ConversationID: "c1", Role: "assistant", Content: "Hi!"},
		ChatbotMessage{ConversationID: "c2", Role: "user", Content: "Pricing?"},
	); err != nil {
		t.Fatalf("InsertChatbotMessages: %v", err)
	}
	stats, err := store.ChatbotStats(ctx, time.Now().UTC().Add(-7*24*time.Hour), 10)
	if err != nil {
		t.Fatalf("ChatbotStats: %v", err)
	}
	if stats.TotalConversations != 2 || stats.TotalMessages != 3 || stats.UserMessages != 2 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.RecentMessages != 3 || stats.RecentConversations != 2 {
		t.Fatalf("unexpected recent figures: %+v", stats)
	}
	if len(stats.Conversations) != 2 {
		t.Fatalf("previews = %d", len(stats.Conversations))
	}
	for _, p := range stats.Conversations {
		if p.StartedAt.Before(before) || p.StartedAt.After(time.Now().UTC().Add(time.Minute)) {
			t.Fatalf("preview %s started at %s, want the insert time", p.ConversationID, p.StartedAt)
		}
		if p.ConversationID == "c1" && (p.MessageCount != 2 || p.FirstMessage != "Hello there") {
			t.Fatalf("unexpected preview: %+v", p)
		}
	}
}

func TestParseAggregateTimeLayouts(t *testing.T) {
	want := time.Date(2026, 3, 4, 5, 6, 7, 890000000, time.UTC)
	for _, raw := range []string{
		"2026-03-04 05:06:07.89+00:00",
		"2026-03-04 05:06:07.89 +0000 UTC",
		"2026-03-04T05:06:07.89Z",
	} {
		if got := parseAggregateTime(raw); !got.Equal(want) {
			t.Errorf("parseAggregateTime(%q) = %s", raw, got)
		}
	}
	if got := parseAggregateTime([]byte("2026-03-04 05:06:07.89+00:00")); !got.Equal(want) {
		t.Errorf("bytes = %s", got)
	}
}

func TestDashboard(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, url := range []string{"/a", "/a", "/a", "/b"} {
		if _, err := store.TrackPageEvent(ctx, url, CounterPageViews); err != nil {
			t.Fatalf("TrackPageEvent: %v", err)
		}
	}
	for _, lead := range []Lead{{Email: "a@x.io", Source: "form"}, {Email: "b@x.io", Source: "form"}, {Email: "c@x.io", Source: "chatbot"}} {
		if _, err := store.UpsertLead(ctx, lead, nil); err != nil {
			t.Fatalf("UpsertLead: %v", err)
		}
	}
	dash, err := store.Dashboard(ctx, 10)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if dash.TotalPages != 2 || dash.TotalViews != 4 || dash.AvgViewsPerPage != 2 {
		t.Fatalf("unexpected page totals: %+v", dash)
	}
	if len(dash.TopPages) != 2 || dash.TopPages[0].URL != "/a" {
		t.Fatalf("unexpected top pages: %+v", dash.TopPages)
	}
	if dash.TotalLeads != 3 || dash.LeadSources[0].Source != "form" || dash.LeadSources[0].Count != 2 {
		t.Fatalf("unexpected lead sources: %+v", dash.LeadSources)
	}
}
