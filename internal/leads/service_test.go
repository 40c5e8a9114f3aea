// File path: internal/leads/service_test.go
package leads

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/sqlite"
)

func newTestService(t *testing.T) (*Service, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "enablr.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store), store
}

func intPtr(v int) *int { return &v }

func TestSubmitValidatesEmail(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	for _, email := range []string{"", "   ", "not-an-email", "a@b", "a b@c.com"} {
		_, err := svc.Submit(ctx, Submission{Email: email})
		if !common.IsValidation(err) {
			t.Fatalf("email %q: expected validation error, got %v", email, err)
		}
	}
	leads, err := store.ListLeads(ctx, sqlite.LeadFilter{})
	if err != nil {
		t.Fatalf("ListLeads: %v", err)
	}
	if len(leads) != 0 {
		t.Fatalf("invalid submissions must not persist, found %d", len(leads))
	}
}

func TestSubmitCreatesThenUpdates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, Submission{
		Email:           " owner@example.co.uk ",
		FirstName:       "Sam",
		CompanyName:     "Example Ltd",
		TeamSize:        "26-50",
		ServiceInterest: "both",
		Source:          "readiness_check",
		ReadinessScore:  intPtr(100),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !first.Created || first.Score != 95 {
		t.Fatalf("first submit = %+v, want created with score 95", first)
	}

	second, err := svc.Submit(ctx, Submission{Email: "owner@example.co.uk", Phone: "0121 000 0000"})
	if err != nil {
		t.Fatalf("Submit update: %v", err)
	}
	if second.Created || second.LeadID != first.LeadID || second.Score != 0 {
		t.Fatalf("second submit = %+v", second)
	}

	detail, err := svc.Get(ctx, first.LeadID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	lead := detail.Lead
	if lead.Email != "owner@example.co.uk" || lead.FirstName != "Sam" || lead.Phone != "0121 000 0000" {
		t.Fatalf("merged lead = %+v", lead)
	}
	if lead.LeadScore != 0 || lead.Source != "readiness_check" {
		t.Fatalf("update should replace the score only: %+v", lead)
	}
	if len(detail.Events) != 1 || detail.Events[0].EventType != sqlite.EventLeadCreated {
		t.Fatalf("expected a single lead_created event, got %+v", detail.Events)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(detail.Events[0].EventData, &payload); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if payload["source"] != "readiness_check" || payload["score"] != float64(95) {
		t.Fatalf("event payload = %v", payload)
	}
}

func TestSubmitMatchesEmailExactly(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, Submission{Email: "Owner@Example.com"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	second, err := svc.Submit(ctx, Submission{Email: "owner@example.com"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !first.Created || !second.Created || first.LeadID == second.LeadID {
		t.Fatalf("emails differing in case must be distinct leads: %+v %+v", first, second)
	}
	detail, err := svc.Get(ctx, first.LeadID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.Lead.Email != "Owner@Example.com" {
		t.Fatalf("stored email = %q", detail.Lead.Email)
	}
	found, err := svc.List(ctx, ListFilter{Email: "Owner@Example.com"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(found) != 1 || found[0].ID != first.LeadID {
		t.Fatalf("email lookup = %+v", found)
	}
	all, err := store.ListLeads(ctx, sqlite.LeadFilter{})
	if err != nil {
		t.Fatalf("ListLeads: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("leads = %d, want 2", len(all))
	}
}

func TestSubmitScoresOnlyKnownFactors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		sub  Submission
		want int
	}{
		{"absent source", Submission{Email: "none@example.com"}, 0},
		{"unknown source", Submission{Email: "booking@example.com", Source: "booking", TeamSize: "26-50"}, 20},
		{"chatbot", Submission{Email: "chat@example.com", Source: "chatbot", TeamSize: "50+"}, 40},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.Submit(ctx, tc.sub)
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if res.Score != tc.want {
				t.Fatalf("score = %d, want %d", res.Score, tc.want)
			}
		})
	}

	res, err := svc.Submit(ctx, Submission{Email: "stored@example.com"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	detail, err := svc.Get(ctx, res.LeadID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.Lead.Source != "form" {
		t.Fatalf("stored source = %q, want form", detail.Lead.Source)
	}
}

func TestSubmitKeepsReadinessAnswersUnscored(t *testing.T) {
	svc, _ := newTestService(t)
	raw := json.RawMessage(`{"current_use":"daily","team_size":"11-25"}`)

	res, err := svc.Submit(context.Background(), Submission{Email: "quiz@example.com", Source: "readiness_check", ReadinessAnswers: raw})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Score != 40 {
		t.Fatalf("score = %d, want 40 from the source alone", res.Score)
	}
	detail, err := svc.Get(context.Background(), res.LeadID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.Lead.ReadinessScore != nil {
		t.Fatalf("readiness score = %d, want nil", *detail.Lead.ReadinessScore)
	}
	var stored map[string]string
	if err := json.Unmarshal(detail.Lead.ReadinessAnswers, &stored); err != nil || stored["current_use"] != "daily" {
		t.Fatalf("stored answers = %s (%v)", detail.Lead.ReadinessAnswers, err)
	}
}

func TestUpdateStatusAndNotes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	res, err := svc.Submit(ctx, Submission{Email: "status@example.com"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, res.LeadID, "bogus"); !common.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "missing", "contacted"); !common.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	lead, err := svc.UpdateStatus(ctx, res.LeadID, "Contacted")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if lead.Status != "contacted" {
		t.Fatalf("status = %q", lead.Status)
	}

	if _, err := svc.AddNote(ctx, res.LeadID, "  "); !common.IsValidation(err) {
		t.Fatalf("expected validation error for empty note, got %v", err)
	}
	long := strings.Repeat("é", 80)
	if _, err := svc.AddNote(ctx, res.LeadID, long); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	detail, err := svc.Get(ctx, res.LeadID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(detail.Notes) != 1 || len(detail.Events) != 3 {
		t.Fatalf("notes %d events %d, want 1 and 3", len(detail.Notes), len(detail.Events))
	}
	var payload map[string]string
	if err := json.Unmarshal(detail.Events[2].EventData, &payload); err != nil {
		t.Fatalf("decode note event: %v", err)
	}
	if got := []rune(payload["preview"]); len(got) != notePreviewRunes {
		t.Fatalf("preview has %d runes, want %d", len(got), notePreviewRunes)
	}
}

func TestPromoteCandidate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	candidates := []sqlite.LeadCandidate{
		{BusinessName: "Alpha Law", Website: "https://alpha.co.uk", Location: "Birmingham", Industry: "Legal", ContactEmail: " Hello@Alpha.co.uk", FitScore: 4, FitNotes: "Local firm", Source: "Google Search"},
		{BusinessName: "No Email Co", FitScore: 2, Source: "Google Search"},
	}
	if err := store.InsertCandidates(ctx, candidates); err != nil {
		t.Fatalf("InsertCandidates: %v", err)
	}

	lead, err := svc.PromoteCandidate(ctx, candidates[0].ID)
	if err != nil {
		t.Fatalf("PromoteCandidate: %v", err)
	}
	if lead.Email != "Hello@Alpha.co.uk" || lead.LeadScore != 80 || lead.Source != "discovery_agent" || lead.MainChallenge != "Local firm" {
		t.Fatalf("promoted lead = %+v", lead)
	}
	var conflict *common.ConflictError
	if _, err := svc.PromoteCandidate(ctx, candidates[0].ID); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict on re-promotion, got %v", err)
	}
	if _, err := svc.PromoteCandidate(ctx, "missing"); !common.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	placeholder, err := svc.PromoteCandidate(ctx, candidates[1].ID)
	if err != nil {
		t.Fatalf("PromoteCandidate placeholder: %v", err)
	}
	if placeholder.Email != "pending-"+candidates[1].ID+"@placeholder.local" {
		t.Fatalf("placeholder email = %q", placeholder.Email)
	}
	detail, err := svc.Get(ctx, lead.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(detail.Events) != 1 || detail.Events[0].EventType != sqlite.EventPromotedFromDiscovery {
		t.Fatalf("events = %+v", detail.Events)
	}
}
