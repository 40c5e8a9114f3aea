// File path: internal/discovery/agent_test.go
package discovery

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/plainlyai/enablr/internal/config"
	"github.com/plainlyai/enablr/internal/llm"
	"github.com/plainlyai/enablr/internal/search"
	"github.com/plainlyai/enablr/internal/sqlite"
)

type fakeSearcher struct {
	results []search.Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, q search.Query) ([]search.Result, error) {
	f.queries = append(f.queries, q.Text)
	return f.results, f.err
}

// scriptedProvider answers with the reply registered for the first title
// found in the prompt.
type scriptedProvider struct {
	mu      sync.Mutex
	replies map[string]string
	calls   int
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.ChatOption) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	prompt := messages[len(messages)-1].Content
	for title, reply := range p.replies {
		if strings.Contains(prompt, "Title: "+title+"\n") {
			if reply == "ERROR" {
				return "", errors.New("model unavailable")
			}
			return reply, nil
		}
	}
	return "no idea", nil
}

func (p *scriptedProvider) Name() string { return "scripted" }

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "enablr.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{ItemTimeout: 5 * time.Second}
}

func TestBuildQueryDefaults(t *testing.T) {
	if got := BuildQuery(Request{}); got != `"General" small business near Birmingham UK` {
		t.Fatalf("default query = %q", got)
	}
	if got := BuildQuery(Request{Industry: "Law", Location: "Coventry"}); got != `"Law" small business near Coventry UK` {
		t.Fatalf("query = %q", got)
	}
}

func TestDiscoverDropsUnparseableItems(t *testing.T) {
	store := openStore(t)
	searcher := &fakeSearcher{results: []search.Result{
		{Title: "Alpha Law", Link: "https://alphalaw.co.uk", Snippet: "Solicitors in Digbeth. Email hello@alphalaw.co.uk"},
		{Title: "Beta Tech", Link: "https://betatech.io", Snippet: "AI powered everything"},
		{Title: "Gamma Trades", Link: "https://gamma.co.uk", Snippet: "Plumbers"},
		{Title: "Delta Freight", Link: "https://delta.co.uk", Snippet: "Logistics"},
		{Title: "Epsilon Accounts", Link: "https://epsilon.co.uk", Snippet: "Bookkeeping"},
		{Title: "Zeta Extra", Link: "https://zeta.co.uk", Snippet: "never qualified"},
	}}
	provider := &scriptedProvider{replies: map[string]string{
		"Alpha Law":        "```json\n{\"business_name\":\"Alpha Law\",\"industry\":\"Legal\",\"fit_score\":5,\"fit_note\":\"Local firm\",\"location_guess\":\"Birmingham\",\"contact_email\":\"hello@alphalaw.co.uk\",\"email_is_guessed\":true}\n```",
		"Beta Tech":        "I cannot help with that.",
		"Gamma Trades":     `{"business_name":"Gamma Trades","industry":"Trades","fit_score":9,"fit_note":"Busy","location_guess":"","contact_email":"info@gamma.co.uk","email_is_guessed":false}`,
		"Delta Freight":    "ERROR",
		"Epsilon Accounts": `{"business_name":"","industry":"Finance","fit_score":3.4,"fit_note":"Generic","location_guess":"Solihull","contact_email":null,"email_is_guessed":false}`,
	}}
	agent := NewAgent(searcher, provider, store, testConfig())

	result, err := agent.Discover(context.Background(), Request{Industry: "Law"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if provider.calls != 5 {
		t.Fatalf("expected only the first 5 results qualified, got %d calls", provider.calls)
	}
	if len(result.Candidates) != 3 || result.Dropped != 2 {
		t.Fatalf("kept %d dropped %d, want 3 and 2", len(result.Candidates), result.Dropped)
	}
	alpha, gamma, epsilon := result.Candidates[0], result.Candidates[1], result.Candidates[2]
	if alpha.BusinessName != "Alpha Law" || alpha.EmailIsGuessed {
		t.Fatalf("alpha email seen in snippet must not be guessed: %+v", alpha)
	}
	if gamma.FitScore != 5 || !gamma.EmailIsGuessed || gamma.Location != "Unknown" {
		t.Fatalf("gamma should be clamped and flagged guessed: %+v", gamma)
	}
	if epsilon.BusinessName != "Epsilon Accounts" || epsilon.FitScore != 3 || epsilon.ContactEmail != "" {
		t.Fatalf("epsilon should fall back to the title: %+v", epsilon)
	}
	for _, c := range result.Candidates {
		if c.Source != CandidateSource || c.Status != sqlite.CandidateStatusNew || c.ID == "" {
			t.Fatalf("unexpected candidate metadata: %+v", c)
		}
	}

	stored, err := agent.ListCandidates(context.Background(), "")
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("stored %d candidates, want 3", len(stored))
	}
}

// gateProvider holds every call until want calls are in flight at once.
type gateProvider struct {
	mu      sync.Mutex
	want    int
	active  int
	peak    int
	calls   int
	release chan struct{}
}

func (p *gateProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.ChatOption) (string, error) {
	p.mu.Lock()
	p.calls++
	p.active++
	if p.active > p.peak {
		p.peak = p.active
	}
	if p.active == p.want {
		close(p.release)
	}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()
	select {
	case <-p.release:
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
	}
	return `{"business_name":"Acme","fit_score":3}`, nil
}

func (p *gateProvider) Name() string { return "gate" }

func TestDiscoverQualifiesFirstFiveConcurrently(t *testing.T) {
	store := openStore(t)
	var results []search.Result
	for i := 0; i < 10; i++ {
		results = append(results, search.Result{Title: fmt.Sprintf("Biz %d", i), Link: fmt.Sprintf("https://biz%d.co.uk", i)})
	}
	provider := &gateProvider{want: 5, release: make(chan struct{})}
	agent := NewAgent(&fakeSearcher{results: results}, provider, store, config.DiscoveryConfig{})

	result, err := agent.Discover(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if provider.calls != 5 {
		t.Fatalf("model calls = %d, want 5", provider.calls)
	}
	if provider.peak != 5 {
		t.Fatalf("peak concurrent calls = %d, want 5", provider.peak)
	}
	if len(result.Candidates) != 5 {
		t.Fatalf("candidates = %d, want 5", len(result.Candidates))
	}
}

func TestDiscoverEmptySearchWritesNothing(t *testing.T) {
	store := openStore(t)
	provider := &scriptedProvider{}
	agent := NewAgent(&fakeSearcher{}, provider, store, testConfig())

	result, err := agent.Discover(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !result.Empty || len(result.Candidates) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if provider.calls != 0 {
		t.Fatalf("provider should not be called, got %d", provider.calls)
	}
	stored, err := store.ListCandidates(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected no rows, got %d", len(stored))
	}
}

func TestDiscoverSearchFailure(t *testing.T) {
	store := openStore(t)
	agent := NewAgent(&fakeSearcher{err: errors.New("quota")}, &scriptedProvider{}, store, testConfig())
	if _, err := agent.Discover(context.Background(), Request{}); err == nil {
		t.Fatal("expected search failure to surface")
	}
}

func TestReconcileEmail(t *testing.T) {
	claimed := "Info@Example.co.uk"
	if email, guessed := reconcileEmail(&claimed, "call info@example.co.uk today"); email != "info@example.co.uk" || guessed {
		t.Fatalf("visible email: got %q guessed=%v", email, guessed)
	}
	if email, guessed := reconcileEmail(&claimed, "no address here"); email != "info@example.co.uk" || !guessed {
		t.Fatalf("invisible email: got %q guessed=%v", email, guessed)
	}
	bad := "not-an-email"
	if email, guessed := reconcileEmail(&bad, "write to sales@shop.co.uk"); email != "sales@shop.co.uk" || guessed {
		t.Fatalf("fallback to visible: got %q guessed=%v", email, guessed)
	}
	if email, _ := reconcileEmail(nil, "nothing"); email != "" {
		t.Fatalf("expected no email, got %q", email)
	}
}
