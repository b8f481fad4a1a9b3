package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/takumamiraidai/Lifetip-API/internal/audio"
	"github.com/takumamiraidai/Lifetip-API/internal/chat"
	"github.com/takumamiraidai/Lifetip-API/internal/observability"
	"github.com/takumamiraidai/Lifetip-API/internal/store"
)

// TurnHandler runs chat-and-voice turns and standalone synthesis. Satisfied
// by chat.Service.
type TurnHandler interface {
	HandleTurn(ctx context.Context, agentID, userID, userMessage string) (chat.Payload, error)
	Synthesize(ctx context.Context, agentID, speakerID, text string) (chat.Payload, error)
	History(ctx context.Context, userID, agentID string) ([]store.Conversation, error)
}

type Server struct {
	store     store.Store
	turns     TurnHandler
	artifacts *audio.Store
	refs      *audio.RefStore
	log       zerolog.Logger
}

func New(st store.Store, turns TurnHandler, artifacts *audio.Store, refs *audio.RefStore, log zerolog.Logger) *Server {
	return &Server{
		store:     st,
		turns:     turns,
		artifacts: artifacts,
		refs:      refs,
		log:       log.With().Str("component", "httpapi").Logger(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/users", s.handleCreateUser)
	r.Get("/users/{userID}", s.handleGetUser)
	r.Post("/users/{userID}/agents", s.handleCreateAgent)
	r.Get("/users/{userID}/agents", s.handleListAgents)

	r.Get("/agents/{agentID}", s.handleGetAgent)
	r.Put("/agents/{agentID}", s.handleUpdateAgent)
	r.Delete("/agents/{agentID}", s.handleDeleteAgent)

	r.Post("/chat/{agentID}", s.handleChat)
	r.Get("/chat/{userID}/{agentID}/history", s.handleHistory)

	r.Post("/voice/synthesize", s.handleSynthesize)
	r.Post("/voice/upload", s.handleVoiceUpload)
	r.Delete("/voice/{agentID}", s.handleVoiceDelete)

	r.Get("/audio/{filename}", s.handleGetAudio)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	path, err := s.artifacts.FilePath(filename)
	if err != nil {
		respondError(w, http.StatusNotFound, "audio_not_found", "audio file not found")
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, path)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func trimmed(v string) string { return strings.TrimSpace(v) }
