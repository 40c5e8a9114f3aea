// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"io"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/plainlyai/enablr/internal/chat"
	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/config"
	"github.com/plainlyai/enablr/internal/content"
	"github.com/plainlyai/enablr/internal/data/orchestrator"
	"github.com/plainlyai/enablr/internal/discovery"
	"github.com/plainlyai/enablr/internal/leads"
	"github.com/plainlyai/enablr/internal/readiness"
	"github.com/plainlyai/enablr/internal/sqlite"
)

const maxBodyBytes = 1 << 20

type Server struct {
	router chi.Router
	cfg    config.ServerConfig

	store     *sqlite.Store
	quiz      *readiness.Quiz
	leads     *leads.Service
	content   *content.Service
	chat      *chat.Service
	discovery *discovery.Agent
}

func NewServer(orch *orchestrator.Orchestrator, cfg config.ServerConfig) (*Server, error) {
	logger := common.Logger()
	if orch == nil {
		return nil, fmt.Errorf("orchestrator required")
	}
	if orch.Store() == nil {
		return nil, fmt.Errorf("sqlite store unavailable")
	}
	srv := &Server{
		router:    chi.NewRouter(),
		cfg:       cfg,
		store:     orch.Store(),
		quiz:      orch.Quiz(),
		leads:     orch.Leads(),
		content:   orch.Content(),
		chat:      orch.Chat(),
		discovery: orch.Discovery(),
	}
	srv.routes()
	logger.Info("api: server ready", "admin_auth", cfg.AdminToken != "", "cors_origins", len(cfg.AllowedOrigins))
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(accessLog)
	s.router.Use(recoverer)
	if len(s.cfg.AllowedOrigins) > 0 {
		s.router.Use(cors(s.cfg.AllowedOrigins))
	}

	s.router.Get("/healthz", s.handleHealth)

	s.router.Post("/leads", s.handleSubmitLead)
	s.router.Post("/chat", s.handleChat)
	s.router.Post("/analytics/track", s.handleTrack)
	s.router.Get("/readiness/questions", s.handleReadinessQuestions)
	s.router.Post("/readiness/evaluate", s.handleReadinessEvaluate)

	s.router.Group(func(r chi.Router) {
		r.Use(requireAdmin(s.cfg.AdminToken))

		r.Get("/admin/leads", s.handleListLeads)
		r.Get("/admin/leads/{id}", s.handleGetLead)
		r.Patch("/admin/leads/{id}", s.handleUpdateLeadStatus)
		r.Post("/admin/leads/{id}/notes", s.handleAddLeadNote)

		r.Post("/admin/lead-discovery", s.handleDiscover)
		r.Get("/admin/lead-candidates", s.handleListCandidates)
		r.Post("/admin/lead-candidates/{id}/promote", s.handlePromoteCandidate)

		r.Get("/content", s.handleListContent)
		r.Post("/content", s.handleCreateContent)
		r.Get("/content/{id}", s.handleGetContent)
		r.Put("/content/{id}", s.handleUpdateContent)
		r.Delete("/content/{id}", s.handleDeleteContent)
		r.Post("/content/{id}/analyse", s.handleAnalyseContent)

		r.Get("/admin/analytics", s.handleDashboard)
		r.Get("/admin/chatbot-analytics", s.handleChatbotAnalytics)
		r.Get("/admin/logs", s.handleLogs)
		r.Method(http.MethodGet, "/debug/vars", expvar.Handler())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, err, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a JSON object body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return common.NewValidationError("", "Invalid JSON body")
	}
	return nil
}

func pathID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}
