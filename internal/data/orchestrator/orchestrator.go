// File path: internal/data/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/plainlyai/enablr/internal/chat"
	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/config"
	"github.com/plainlyai/enablr/internal/content"
	"github.com/plainlyai/enablr/internal/discovery"
	"github.com/plainlyai/enablr/internal/leads"
	"github.com/plainlyai/enablr/internal/llm"
	"github.com/plainlyai/enablr/internal/readiness"
	"github.com/plainlyai/enablr/internal/search"
	"github.com/plainlyai/enablr/internal/sqlite"
)

type closer interface {
	Close() error
}

// Orchestrator builds the store, external clients and domain services once at
// start-up and exposes them to the API layer.
type Orchestrator struct {
	cfg config.Config

	store    *sqlite.Store
	searcher search.Searcher
	quiz     *readiness.Quiz

	leads     *leads.Service
	content   *content.Service
	chat      *chat.Service
	discovery *discovery.Agent

	closers []closer
}

// New constructs an orchestrator from cfg and optional overrides.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	settings := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	logger := common.Logger()

	quiz, err := readiness.Default()
	if err != nil {
		return nil, fmt.Errorf("load readiness quiz: %w", err)
	}
	store, err := sqlite.OpenWithConfig(cfg.SQLite)
	if err != nil {
		return nil, fmt.Errorf("init sqlite store: %w", err)
	}

	chatProvider := settings.chatProvider
	if chatProvider == nil {
		chatProvider = llm.NewOpenAIProvider(cfg.OpenAI)
	}
	discoveryProvider := settings.discoveryProvider
	if discoveryProvider == nil {
		discoveryProvider = llm.NewGeminiProvider(ctx, cfg.Gemini)
	}
	searcher := settings.searcher
	if searcher == nil {
		searcher = search.NewGoogleClient(cfg.Search)
	}

	orch := &Orchestrator{
		cfg:       cfg,
		store:     store,
		searcher:  searcher,
		quiz:      quiz,
		leads:     leads.NewService(store),
		content:   content.NewService(store, llm.Instrument(chatProvider, "content_analysis")),
		chat:      chat.NewService(store, llm.Instrument(chatProvider, "chat"), cfg.Chat),
		discovery: discovery.NewAgent(searcher, llm.Instrument(discoveryProvider, "discovery"), store, cfg.Discovery),
	}
	orch.closers = append(orch.closers, store)
	logger.Info(
		"orchestrator: services ready",
		"sqlite_path", cfg.SQLite.Path,
		"chat_provider", chatProvider.Name(),
		"discovery_provider", discoveryProvider.Name(),
	)
	return orch, nil
}

// Store exposes the SQLite store for reporting queries.
func (o *Orchestrator) Store() *sqlite.Store {
	if o == nil {
		return nil
	}
	return o.store
}

// Quiz exposes the readiness quiz.
func (o *Orchestrator) Quiz() *readiness.Quiz {
	if o == nil {
		return nil
	}
	return o.quiz
}

// Leads exposes the lead intake and admin service.
func (o *Orchestrator) Leads() *leads.Service {
	if o == nil {
		return nil
	}
	return o.leads
}

// Content exposes the content page service.
func (o *Orchestrator) Content() *content.Service {
	if o == nil {
		return nil
	}
	return o.content
}

// Chat exposes the website chatbot.
func (o *Orchestrator) Chat() *chat.Service {
	if o == nil {
		return nil
	}
	return o.chat
}

// Discovery exposes the lead discovery agent.
func (o *Orchestrator) Discovery() *discovery.Agent {
	if o == nil {
		return nil
	}
	return o.discovery
}

// Close drains pending chat writes and releases the store.
func (o *Orchestrator) Close() error {
	if o == nil {
		return nil
	}
	if o.chat != nil {
		o.chat.Wait()
	}
	var err error
	for i := len(o.closers) - 1; i >= 0; i-- {
		closer := o.closers[i]
		if closer == nil {
			continue
		}
		if cerr := closer.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	o.closers = nil
	return err
}
