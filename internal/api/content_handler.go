// File path: internal/api/content_handler.go
package api

import (
	"net/http"

	"github.com/plainlyai/enablr/internal/common"
	"github.com/plainlyai/enablr/internal/content"
)

func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	pages, err := s.content.List(r.Context())
	if err != nil {
		respondError(w, r, err, "Failed to fetch content pages")
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handleCreateContent(w http.ResponseWriter, r *http.Request) {
	var req content.NewPage
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, "Failed to create content page")
		return
	}
	page, err := s.content.Create(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "Failed to create content page")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "id": page.ID, "page": page})
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	page, err := s.content.Get(r.Context(), pathID(r))
	if err != nil {
		respondError(w, r, err, "Failed to fetch content page")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	patch := content.Patch{}
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, r, err, "Failed to update content page")
		return
	}
	page, err := s.content.Update(r.Context(), pathID(r), patch)
	if err != nil {
		respondError(w, r, err, "Failed to update content page")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "page": page})
}

func (s *Server) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	if err := s.content.Delete(r.Context(), pathID(r)); err != nil {
		respondError(w, r, err, "Failed to delete content page")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleAnalyseContent(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.content.Analyse(r.Context(), pathID(r))
	if err != nil {
		respondError(w, r, err, "Failed to analyse content")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"analysis": outcome.Analysis,
		"page":     outcome.Page,
	})
}

type trackRequest struct {
	URL   string `json:"url"`
	Event string `json:"event"`
}

// handleTrack never reports failure to the page that sent the beacon.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.Logger().Warn("api: tracking payload rejected", "error", err)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	event := content.EventPageView
	if content.TrackEvent(req.Event) == content.EventCTAClick {
		event = content.EventCTAClick
	}
	if err := s.content.Track(r.Context(), req.URL, event); err != nil {
		common.Logger().Debug("api: tracking skipped", "url", req.URL, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
