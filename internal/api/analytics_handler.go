// File path: internal/api/analytics_handler.go
package api

import (
	"net/http"
	"strconv"

	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/readiness"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.store.Dashboard(r.Context(), 10)
	if err != nil {
		respondError(w, r, err, "Failed to fetch analytics")
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (s *Server) handleReadinessQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"questions": s.quiz.Questions,
		"levels":    s.quiz.Levels,
		"maxScore":  s.quiz.MaxScore(),
	})
}

type evaluateRequest struct {
	Answers map[string]string `json:"answers"`
}

func (s *Server) handleReadinessEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, "Failed to evaluate answers")
		return
	}
	result, err := s.quiz.Evaluate(req.Answers)
	if err != nil {
		respondError(w, r, err, "Failed to evaluate answers")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		readiness.Result
	}{Success: true, Result: result})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	entries := common.RecentLogEntries(limit, query.Get("level"))
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
