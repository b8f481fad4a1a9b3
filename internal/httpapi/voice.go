package httpapi

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/takumamiraidai/Lifetip-API/internal/chat"
	"github.com/takumamiraidai/Lifetip-API/internal/store"
)

const maxVoiceUploadBytes = 32 << 20

type synthesizeRequest struct {
	Text      string `json:"text"`
	AgentID   string `json:"agent_id"`
	SpeakerID flexID `json:"speaker_id"`
}

// handleSynthesize renders text to speech without a chat turn. An agent id
// selects that agent's voice chain; otherwise the default backend is used.
func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if trimmed(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	payload, err := s.turns.Synthesize(r.Context(), trimmed(req.AgentID), string(req.SpeakerID), trimmed(req.Text))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			respondError(w, http.StatusNotFound, "agent_not_found", "agent not found")
		case errors.Is(err, chat.ErrSynthesisFailed):
			respondError(w, http.StatusBadGateway, "synthesis_failed", "every synthesis backend failed")
		default:
			s.log.Error().Err(err).Msg("standalone synthesis failed")
			respondError(w, http.StatusInternalServerError, "synthesis_failed", "could not synthesize audio")
		}
		return
	}
	respondJSON(w, http.StatusOK, payload)
}

// handleVoiceUpload stores a reference recording for an agent and marks the
// agent as having a usable custom voice asset.
func (s *Server) handleVoiceUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxVoiceUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "expected multipart form upload")
		return
	}

	agentID := trimmed(r.FormValue("agent_id"))
	if agentID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "agent_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "file field is required")
		return
	}
	defer file.Close()

	// Reference recordings are stored and registered with the clone backend
	// under a fixed "<agent-id>.wav" name, so only wav uploads are accepted.
	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".wav" {
		respondError(w, http.StatusBadRequest, "unsupported_format", "only wav recordings are supported")
		return
	}

	if _, err := s.store.GetAgent(r.Context(), agentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "agent_not_found", "agent not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	name, err := s.refs.Save(agentID, file)
	if err != nil {
		s.log.Error().Err(err).Str("agent_id", agentID).Msg("voice ref save failed")
		respondError(w, http.StatusInternalServerError, "upload_failed", "could not store recording")
		return
	}

	if err := s.store.SetAgentVoiceAsset(r.Context(), agentID, true); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	s.log.Info().Str("agent_id", agentID).Str("file", name).Msg("voice reference uploaded")
	respondJSON(w, http.StatusOK, map[string]string{"status": "uploaded", "asset_ref": name})
}

func (s *Server) handleVoiceDelete(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	if _, err := s.store.GetAgent(r.Context(), agentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "agent_not_found", "agent not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	if err := s.refs.Remove(agentID); err != nil {
		respondError(w, http.StatusInternalServerError, "delete_failed", err.Error())
		return
	}
	if err := s.store.SetAgentVoiceAsset(r.Context(), agentID, false); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
