// File path: internal/api/discovery_handler.go
package api

import (
	"net/http"

	"github.com/plainlyai/enablr/internal/discovery"
)

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req discovery.Request
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, "Failed to discover leads")
		return
	}
	result, err := s.discovery.Discover(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "Failed to discover leads")
		return
	}
	if result.Empty {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   "No results found or search API not configured.",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(result.Candidates),
		"leads":   result.Candidates,
		"query":   result.Query,
		"dropped": result.Dropped,
	})
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.discovery.ListCandidates(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, r, err, "Failed to fetch candidates")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"candidates": candidates})
}

func (s *Server) handlePromoteCandidate(w http.ResponseWriter, r *http.Request) {
	lead, err := s.leads.PromoteCandidate(r.Context(), pathID(r))
	if err != nil {
		respondError(w, r, err, "Failed to promote candidate")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"lead":    lead,
		"message": "Candidate promoted to pipeline",
	})
}
