package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/takumamiraidai/Lifetip-API/internal/store"
)

// flexID accepts both JSON numbers and digit strings for speaker ids; clients
// have historically sent either. The raw value is stored as-is and normalized
// where the voice configuration is loaded.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexID(s)
	return nil
}

type createAgentRequest struct {
	Name         string `json:"name"`
	Tone         string `json:"tone"`
	Personality1 string `json:"personality1"`
	Personality2 string `json:"personality2"`
	VoiceMode    string `json:"voice_mode"`
	SpeakerID    flexID `json:"voice_speaker_id"`
}

type updateAgentRequest struct {
	Name         *string `json:"name"`
	Tone         *string `json:"tone"`
	Personality1 *string `json:"personality1"`
	Personality2 *string `json:"personality2"`
	VoiceMode    *string `json:"voice_mode"`
	SpeakerID    *flexID `json:"voice_speaker_id"`
}

func parseVoiceMode(v string) (store.VoiceMode, bool) {
	switch store.VoiceMode(strings.ToLower(trimmed(v))) {
	case store.VoiceModeCustom:
		return store.VoiceModeCustom, true
	case store.VoiceModeDefault, "":
		return store.VoiceModeDefault, true
	default:
		return "", false
	}
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req createAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if trimmed(req.Name) == "" || trimmed(req.Tone) == "" || trimmed(req.Personality1) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "name, tone and personality1 are required")
		return
	}
	mode, ok := parseVoiceMode(req.VoiceMode)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_request", "voice_mode must be default or custom")
		return
	}

	if _, err := s.store.EnsureUser(r.Context(), userID); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	agent, err := s.store.CreateAgent(r.Context(), store.Agent{
		UserID:       userID,
		Name:         trimmed(req.Name),
		Tone:         trimmed(req.Tone),
		Personality1: trimmed(req.Personality1),
		Personality2: trimmed(req.Personality2),
		VoiceMode:    mode,
		SpeakerID:    string(req.SpeakerID),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, agent)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.ListAgents(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if agents == nil {
		agents = []store.Agent{}
	}
	respondJSON(w, http.StatusOK, agents)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.store.GetAgent(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "agent_not_found", "agent not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	agent, err := s.store.GetAgent(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "agent_not_found", "agent not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	var req updateAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if req.Name != nil {
		agent.Name = trimmed(*req.Name)
	}
	if req.Tone != nil {
		agent.Tone = trimmed(*req.Tone)
	}
	if req.Personality1 != nil {
		agent.Personality1 = trimmed(*req.Personality1)
	}
	if req.Personality2 != nil {
		agent.Personality2 = trimmed(*req.Personality2)
	}
	if req.VoiceMode != nil {
		mode, ok := parseVoiceMode(*req.VoiceMode)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid_request", "voice_mode must be default or custom")
			return
		}
		agent.VoiceMode = mode
	}
	if req.SpeakerID != nil {
		agent.SpeakerID = string(*req.SpeakerID)
	}

	updated, err := s.store.UpdateAgent(r.Context(), agent)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if err := s.store.DeleteAgent(r.Context(), agentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "agent_not_found", "agent not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	_ = s.refs.Remove(agentID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
