// File path: internal/api/leads_handler.go
package api

import (
	"net/http"
	"strconv"

	"github.com/plainlyai/enablr/internal/leads"
)

type submitLeadResponse struct {
	Success bool   `json:"success"`
	LeadID  string `json:"leadId"`
	Updated bool   `json:"updated,omitempty"`
}

func (s *Server) handleSubmitLead(w http.ResponseWriter, r *http.Request) {
	var req leads.Submission
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, "Failed to save lead")
		return
	}
	res, err := s.leads.Submit(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "Failed to save lead")
		return
	}
	writeJSON(w, http.StatusOK, submitLeadResponse{Success: true, LeadID: res.LeadID, Updated: !res.Created})
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	list, err := s.leads.List(r.Context(), leads.ListFilter{
		Status: query.Get("status"),
		Source: query.Get("source"),
		Email:  query.Get("email"),
		Limit:  limit,
	})
	if err != nil {
		respondError(w, r, err, "Failed to fetch leads")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leads": list})
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	detail, err := s.leads.Get(r.Context(), pathID(r))
	if err != nil {
		respondError(w, r, err, "Failed to fetch lead")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, "Failed to update lead")
		return
	}
	lead, err := s.leads.UpdateStatus(r.Context(), pathID(r), req.Status)
	if err != nil {
		respondError(w, r, err, "Failed to update lead")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "lead": lead})
}

type noteRequest struct {
	Note string `json:"note"`
}

func (s *Server) handleAddLeadNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, "Failed to add note")
		return
	}
	note, err := s.leads.AddNote(r.Context(), pathID(r), req.Note)
	if err != nil {
		respondError(w, r, err, "Failed to add note")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "note": note})
}
