// File path: internal/api/chat_handler.go
package api

import (
	"net/http"

	"github.com/plainlyai/enablr/internal/chat"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, "Failed to process message")
		return
	}
	reply, err := s.chat.Reply(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "Failed to process message")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleChatbotAnalytics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.chat.Analytics(r.Context())
	if err != nil {
		respondError(w, r, err, "Failed to fetch chatbot analytics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
