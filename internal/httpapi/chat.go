package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/takumamiraidai/Lifetip-API/internal/chat"
	"github.com/takumamiraidai/Lifetip-API/internal/store"
)

type chatRequest struct {
	UserMessage string `json:"user_message"`
	UserID      string `json:"user_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if trimmed(req.UserMessage) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_message is required")
		return
	}

	// Resolve the agent before touching the user table so a turn against a
	// nonexistent agent leaves no trace.
	if _, err := s.store.GetAgent(r.Context(), agentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "agent_not_found", "agent not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	userID := trimmed(req.UserID)
	if userID != "" {
		// History rows reference the user, so make sure it exists first.
		if _, err := s.store.EnsureUser(r.Context(), userID); err != nil {
			respondError(w, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
	}

	payload, err := s.turns.HandleTurn(r.Context(), agentID, userID, trimmed(req.UserMessage))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			respondError(w, http.StatusNotFound, "agent_not_found", "agent not found")
		case errors.Is(err, chat.ErrGenerationTimeout):
			respondError(w, http.StatusGatewayTimeout, "generation_timeout", "reply generation timed out, try again with a shorter message")
		default:
			s.log.Error().Err(err).Str("agent_id", agentID).Msg("chat turn failed")
			respondError(w, http.StatusInternalServerError, "generation_failed", "could not generate a reply")
		}
		return
	}
	respondJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	agentID := chi.URLParam(r, "agentID")

	turns, err := s.turns.History(r.Context(), userID, agentID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if turns == nil {
		turns = []store.Conversation{}
	}
	respondJSON(w, http.StatusOK, turns)
}
