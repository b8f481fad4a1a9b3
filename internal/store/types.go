package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// VoiceMode selects which synthesis path an agent prefers.
type VoiceMode string

const (
	VoiceModeDefault VoiceMode = "default"
	VoiceModeCustom  VoiceMode = "custom"
)

// User owns agents and conversation history.
type User struct {
	ID        string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Agent is a configured persona with voice settings.
//
// SpeakerID is kept as the raw string clients sent; it is normalized into a
// usable integer id at the point the voice configuration is loaded, not here.
type Agent struct {
	ID             string    `json:"agent_id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Tone           string    `json:"tone"`
	Personality1   string    `json:"personality1"`
	Personality2   string    `json:"personality2,omitempty"`
	VoiceMode      VoiceMode `json:"voice_mode"`
	SpeakerID      string    `json:"voice_speaker_id"`
	HasCustomVoice bool      `json:"has_custom_voice"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Conversation is one completed user-message/agent-reply exchange.
// Immutable after creation.
type Conversation struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AgentID     string    `json:"agent_id"`
	UserMessage string    `json:"user_message"`
	AgentReply  string    `json:"agent_reply"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists users, agents and conversation history.
type Store interface {
	EnsureUser(ctx context.Context, userID string) (User, error)
	GetUser(ctx context.Context, userID string) (User, error)

	CreateAgent(ctx context.Context, agent Agent) (Agent, error)
	GetAgent(ctx context.Context, agentID string) (Agent, error)
	ListAgents(ctx context.Context, userID string) ([]Agent, error)
	UpdateAgent(ctx context.Context, agent Agent) (Agent, error)
	DeleteAgent(ctx context.Context, agentID string) error

	// SetAgentVoiceAsset records whether a reference recording is registered
	// for the agent's custom voice.
	SetAgentVoiceAsset(ctx context.Context, agentID string, has bool) error

	AppendTurn(ctx context.Context, userID, agentID, userMessage, agentReply string) error
	// RecentTurns returns up to limit conversations, newest first.
	RecentTurns(ctx context.Context, userID, agentID string, limit int) ([]Conversation, error)

	Close() error
}
