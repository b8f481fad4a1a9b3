// Package chat assembles one complete chat-and-voice turn: prompt
// construction, text generation, synthesis orchestration and persistence.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/takumamiraidai/Lifetip-API/internal/audio"
	"github.com/takumamiraidai/Lifetip-API/internal/llm"
	"github.com/takumamiraidai/Lifetip-API/internal/observability"
	"github.com/takumamiraidai/Lifetip-API/internal/store"
	"github.com/takumamiraidai/Lifetip-API/internal/voice"
)

// ErrGenerationTimeout marks a turn whose text generation ran past the
// deadline; callers should retry with a shorter request.
var ErrGenerationTimeout = errors.New("text generation timed out")

// ErrSynthesisFailed marks a direct synthesis request for which every backend
// failed. Chat turns degrade to text instead; only the standalone synthesis
// operation has nothing left to return.
var ErrSynthesisFailed = errors.New("synthesis failed")

// Payload is the sole externally visible output of one turn. AudioURL is
// empty when every synthesis backend failed; the text is always present.
type Payload struct {
	Text      string `json:"text"`
	AudioURL  string `json:"audio_url"`
	AudioData string `json:"audio_data,omitempty"`
}

// Options bounds one turn and the synthesis attempts inside it.
type Options struct {
	TurnDeadline time.Duration
	// DefaultAttemptTimeout bounds the whole two-call default-backend attempt.
	DefaultAttemptTimeout time.Duration
	CustomAttemptTimeout  time.Duration
	HistoryWindow         int
}

type Service struct {
	store     store.Store
	completer llm.Completer
	orch      *voice.Orchestrator
	artifacts *audio.Store
	metrics   *observability.Metrics
	log       zerolog.Logger
	opts      Options
}

func NewService(st store.Store, completer llm.Completer, orch *voice.Orchestrator, artifacts *audio.Store, metrics *observability.Metrics, log zerolog.Logger, opts Options) *Service {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 5
	}
	if opts.TurnDeadline <= 0 {
		opts.TurnDeadline = 180 * time.Second
	}
	return &Service{
		store:     st,
		completer: completer,
		orch:      orch,
		artifacts: artifacts,
		metrics:   metrics,
		log:       log.With().Str("component", "chat").Logger(),
		opts:      opts,
	}
}

// HandleTurn runs one user-message/agent-reply exchange. It fails only when
// the agent does not exist or text generation itself failed; every synthesis
// failure degrades to a text-only payload instead. With an empty userID the
// turn is anonymous: history is neither read nor written.
func (s *Service) HandleTurn(ctx context.Context, agentID, userID, userMessage string) (Payload, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.opts.TurnDeadline)
	defer cancel()

	agent, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return Payload{}, err
	}

	messages := s.buildMessages(ctx, agent, userID, userMessage)

	reply, err := s.completer.Complete(ctx, messages)
	if err != nil {
		s.metrics.Turns.WithLabelValues("failed").Inc()
		s.log.Error().Err(err).Str("agent_id", agentID).Msg("text generation failed")
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrGenerationTimeout, err)
		}
		return Payload{}, fmt.Errorf("generate reply: %w", err)
	}

	vcfg := voiceConfigFor(agent)
	chain := voice.SelectChain(vcfg, s.opts.DefaultAttemptTimeout, s.opts.CustomAttemptTimeout)
	outcome := s.orch.Run(ctx, reply, chain)

	if outcome.AssetMissing {
		// The backend no longer knows this voice; correct local bookkeeping
		// so later turns skip the custom path until a fresh upload. The
		// agent's configured voice mode is left untouched.
		if err := s.store.SetAgentVoiceAsset(ctx, agentID, false); err != nil {
			s.log.Warn().Err(err).Str("agent_id", agentID).Msg("could not clear stale voice asset flag")
		}
	}

	payload := Payload{Text: reply}
	if outcome.Audio != nil {
		art, err := s.artifacts.Persist(outcome.Audio, agentID)
		if err != nil {
			s.log.Warn().Err(err).Str("agent_id", agentID).Msg("artifact persist failed, degrading to text only")
		} else {
			payload.AudioURL = art.URLPath
			payload.AudioData = art.InlineBase64
		}
	}

	if userID != "" {
		if err := s.store.AppendTurn(ctx, userID, agentID, userMessage, reply); err != nil {
			s.log.Warn().Err(err).Str("agent_id", agentID).Msg("history append failed")
		}
	}

	outcomeLabel := "text_only"
	if payload.AudioURL != "" {
		outcomeLabel = "audio"
	}
	s.metrics.Turns.WithLabelValues(outcomeLabel).Inc()
	s.metrics.ObserveTurnLatency(time.Since(start))
	return payload, nil
}

// Synthesize renders text to speech without running a chat turn. With an
// agent id the agent's voice chain applies, including custom-voice fallback;
// without one the default backend is used with the given raw speaker id.
func (s *Service) Synthesize(ctx context.Context, agentID, speakerID, text string) (Payload, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TurnDeadline)
	defer cancel()

	vcfg := voice.Config{Mode: voice.ModeDefault, SpeakerID: voice.NormalizeSpeakerID(speakerID)}
	if agentID != "" {
		agent, err := s.store.GetAgent(ctx, agentID)
		if err != nil {
			return Payload{}, err
		}
		vcfg = voiceConfigFor(agent)
	}

	chain := voice.SelectChain(vcfg, s.opts.DefaultAttemptTimeout, s.opts.CustomAttemptTimeout)
	outcome := s.orch.Run(ctx, text, chain)

	if outcome.AssetMissing && agentID != "" {
		if err := s.store.SetAgentVoiceAsset(ctx, agentID, false); err != nil {
			s.log.Warn().Err(err).Str("agent_id", agentID).Msg("could not clear stale voice asset flag")
		}
	}
	if outcome.Audio == nil {
		return Payload{}, ErrSynthesisFailed
	}

	key := agentID
	if key == "" {
		key = "direct"
	}
	art, err := s.artifacts.Persist(outcome.Audio, key)
	if err != nil {
		return Payload{}, fmt.Errorf("persist synthesis artifact: %w", err)
	}
	return Payload{AudioURL: art.URLPath, AudioData: art.InlineBase64}, nil
}

// History returns up to the configured window of past turns, newest first.
func (s *Service) History(ctx context.Context, userID, agentID string) ([]store.Conversation, error) {
	return s.store.RecentTurns(ctx, userID, agentID, s.opts.HistoryWindow)
}

// buildMessages assembles the prompt: system persona, recent history in
// chronological order, then the new user message. A failed history read is
// absorbed; the turn proceeds without context.
func (s *Service) buildMessages(ctx context.Context, agent store.Agent, userID, userMessage string) []llm.Message {
	messages := []llm.Message{{Role: "system", Content: systemPrompt(agent)}}

	if userID != "" {
		turns, err := s.store.RecentTurns(ctx, userID, agent.ID, s.opts.HistoryWindow)
		if err != nil {
			s.log.Warn().Err(err).Str("agent_id", agent.ID).Msg("history read failed, continuing without context")
		}
		// The store returns newest first; the prompt wants oldest first.
		for i := len(turns) - 1; i >= 0; i-- {
			messages = append(messages,
				llm.Message{Role: "user", Content: turns[i].UserMessage},
				llm.Message{Role: "assistant", Content: turns[i].AgentReply},
			)
		}
	}

	return append(messages, llm.Message{Role: "user", Content: userMessage})
}

func systemPrompt(agent store.Agent) string {
	prompt := "You are " + agent.Personality1
	if agent.Personality2 != "" {
		prompt += " and " + agent.Personality2
	}
	return prompt + ". Speak in a " + agent.Tone + " manner."
}

// voiceConfigFor is the single boundary where raw agent voice settings are
// normalized into an effective configuration.
func voiceConfigFor(agent store.Agent) voice.Config {
	mode := voice.ModeDefault
	if agent.VoiceMode == store.VoiceModeCustom {
		mode = voice.ModeCustom
	}
	return voice.Config{
		Mode:           mode,
		SpeakerID:      voice.NormalizeSpeakerID(agent.SpeakerID),
		HasCustomAsset: agent.HasCustomVoice,
		AssetRef:       agent.ID + ".wav",
	}
}
