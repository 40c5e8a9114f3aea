// File path: internal/discovery/agent.go
package discovery

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/common/telemetry"
	"github.com/plainlyai/enablr/internal/config"
	"github.com/plainlyai/enablr/internal/llm"
	"github.com/plainlyai/enablr/internal/search"
	"github.com/plainlyai/enablr/internal/sqlite"
)

const (
	DefaultIndustry = "General"
	DefaultLocation = "Birmingham"
	// CandidateSource labels candidates found through web search.
	CandidateSource = "Google Search"
	// maxCandidates is how many search results one run qualifies.
	maxCandidates = 5
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// CandidateStore persists and lists discovered candidates.
type CandidateStore interface {
	InsertCandidates(ctx context.Context, candidates []sqlite.LeadCandidate) error
	ListCandidates(ctx context.Context, status string, limit int) ([]sqlite.LeadCandidate, error)
}

// Request describes one discovery run.
type Request struct {
	Industry string `json:"industry"`
	Location string `json:"location"`
}

// Result is the outcome of a discovery run. Empty is set when the search
// returned nothing, in which case nothing was qualified or stored.
type Result struct {
	Query      string                 `json:"query"`
	Candidates []sqlite.LeadCandidate `json:"leads"`
	Dropped    int                    `json:"dropped"`
	Empty      bool                   `json:"-"`
}

// Agent searches for local businesses and qualifies each hit with an LLM.
type Agent struct {
	searcher search.Searcher
	provider llm.Provider
	store    CandidateStore
	cfg      config.DiscoveryConfig
}

// NewAgent wires an Agent. A zero item timeout falls back to the default.
func NewAgent(searcher search.Searcher, provider llm.Provider, store CandidateStore, cfg config.DiscoveryConfig) *Agent {
	defaults := config.Default().Discovery
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = defaults.ItemTimeout
	}
	return &Agent{searcher: searcher, provider: provider, store: store, cfg: cfg}
}

// BuildQuery renders the search query for req after defaults are applied.
func BuildQuery(req Request) string {
	industry := strings.TrimSpace(req.Industry)
	if industry == "" {
		industry = DefaultIndustry
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = DefaultLocation
	}
	return fmt.Sprintf("%q small business near %s UK", industry, location)
}

// Discover runs one search, qualifies the first results concurrently and
// stores the survivors in a single batch. Items whose qualification fails
// are dropped without failing the run.
func (a *Agent) Discover(ctx context.Context, req Request) (Result, error) {
	if a == nil || a.searcher == nil || a.provider == nil || a.store == nil {
		return Result{}, errors.New("discovery agent not initialised")
	}
	logger := common.Logger()
	query := BuildQuery(req)
	ctx, finish := telemetry.StartSpan(ctx, "discovery.run")

	hits, err := a.searcher.Search(ctx, search.Query{Text: query, Num: 10})
	if err != nil {
		finish("error", err)
		return Result{}, fmt.Errorf("search %q: %w", query, err)
	}
	logger.Info("discovery: search complete", "query", query, "results", len(hits))
	if len(hits) == 0 {
		finish("results", 0)
		return Result{Query: query, Candidates: []sqlite.LeadCandidate{}, Empty: true}, nil
	}
	if len(hits) > maxCandidates {
		hits = hits[:maxCandidates]
	}

	qualified := make([]*sqlite.LeadCandidate, len(hits))
	var g errgroup.Group
	g.SetLimit(len(hits))
	for i, hit := range hits {
		i, hit := i, hit
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, a.cfg.ItemTimeout)
			defer cancel()
			candidate, err := a.qualify(itemCtx, hit)
			if err != nil {
				logger.Warn("discovery: qualification failed", "link", hit.Link, "error", err)
				return nil
			}
			qualified[i] = candidate
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]sqlite.LeadCandidate, 0, len(qualified))
	for _, c := range qualified {
		if c != nil {
			kept = append(kept, *c)
		}
	}
	dropped := len(hits) - len(kept)
	telemetry.RecordDiscoveryRun(len(kept), dropped)

	if err := a.store.InsertCandidates(ctx, kept); err != nil {
		finish("error", err)
		return Result{}, fmt.Errorf("store candidates: %w", err)
	}
	finish("kept", len(kept), "dropped", dropped)
	logger.Info("discovery: run complete", "query", query, "kept", len(kept), "dropped", dropped)
	return Result{Query: query, Candidates: kept, Dropped: dropped}, nil
}

// ListCandidates returns stored candidates, newest first.
func (a *Agent) ListCandidates(ctx context.Context, status string) ([]sqlite.LeadCandidate, error) {
	if a == nil || a.store == nil {
		return nil, errors.New("discovery agent not initialised")
	}
	return a.store.ListCandidates(ctx, status, 0)
}

type qualification struct {
	BusinessName   string  `json:"business_name"`
	Industry       string  `json:"industry"`
	FitScore       float64 `json:"fit_score"`
	FitNote        string  `json:"fit_note"`
	LocationGuess  string  `json:"location_guess"`
	ContactEmail   *string `json:"contact_email"`
	EmailIsGuessed bool    `json:"email_is_guessed"`
}

func (a *Agent) qualify(ctx context.Context, hit search.Result) (*sqlite.LeadCandidate, error) {
	prompt := buildPrompt(hit.Snippet, hit.Title, hit.Link)
	reply, err := a.provider.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return nil, err
	}
	var q qualification
	if err := llm.DecodeJSON(reply, &q); err != nil {
		return nil, err
	}
	if q.FitScore == 0 && strings.TrimSpace(q.BusinessName) == "" {
		return nil, errors.New("qualification missing business name and fit score")
	}

	name := strings.TrimSpace(q.BusinessName)
	if name == "" {
		name = strings.TrimSpace(hit.Title)
	}
	location := strings.TrimSpace(q.LocationGuess)
	if location == "" {
		location = "Unknown"
	}
	email, guessed := reconcileEmail(q.ContactEmail, hit.Snippet)
	return &sqlite.LeadCandidate{
		BusinessName:   name,
		Website:        hit.Link,
		Location:       location,
		Industry:       strings.TrimSpace(q.Industry),
		ContactEmail:   email,
		EmailIsGuessed: guessed,
		FitScore:       clampFit(q.FitScore),
		FitNotes:       strings.TrimSpace(q.FitNote),
		Source:         CandidateSource,
		Status:         sqlite.CandidateStatusNew,
	}, nil
}

func clampFit(score float64) int {
	rounded := int(math.Round(score))
	if rounded < 1 {
		return 1
	}
	if rounded > 5 {
		return 5
	}
	return rounded
}

// reconcileEmail checks the model's email against the addresses visible in
// the snippet. The model's own guessed flag is not trusted: an address seen in
// the snippet is never guessed and any other address always is.
func reconcileEmail(claimed *string, snippet string) (string, bool) {
	visible := emailPattern.FindAllString(snippet, -1)
	email := ""
	if claimed != nil {
		email = strings.ToLower(strings.TrimSpace(*claimed))
	}
	if email != "" && !emailPattern.MatchString(email) {
		email = ""
	}
	if email == "" {
		if len(visible) > 0 {
			return strings.ToLower(visible[0]), false
		}
		return "", false
	}
	for _, v := range visible {
		if strings.EqualFold(v, email) {
			return email, false
		}
	}
	return email, true
}
