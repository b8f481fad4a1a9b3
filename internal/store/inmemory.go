package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	users  map[string]User
	agents map[string]Agent
	turns  map[string][]Conversation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:  make(map[string]User),
		agents: make(map[string]Agent),
		turns:  make(map[string][]Conversation),
	}
}

func turnKey(userID, agentID string) string { return userID + "\x00" + agentID }

func (s *InMemoryStore) EnsureUser(_ context.Context, userID string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	now := time.Now().UTC()
	u := User{ID: userID, CreatedAt: now, UpdatedAt: now}
	s.users[userID] = u
	return u, nil
}

func (s *InMemoryStore) GetUser(_ context.Context, userID string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *InMemoryStore) CreateAgent(_ context.Context, agent Agent) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.VoiceMode == "" {
		agent.VoiceMode = VoiceModeDefault
	}
	now := time.Now().UTC()
	agent.CreatedAt = now
	agent.UpdatedAt = now
	s.agents[agent.ID] = agent
	return agent, nil
}

func (s *InMemoryStore) GetAgent(_ context.Context, agentID string) (Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[agentID]
	if !ok {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

func (s *InMemoryStore) ListAgents(_ context.Context, userID string) ([]Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Agent
	for _, a := range s.agents {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *InMemoryStore) UpdateAgent(_ context.Context, agent Agent) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.agents[agent.ID]
	if !ok {
		return Agent{}, ErrNotFound
	}
	agent.UserID = current.UserID
	agent.CreatedAt = current.CreatedAt
	agent.UpdatedAt = time.Now().UTC()
	s.agents[agent.ID] = agent
	return agent, nil
}

func (s *InMemoryStore) DeleteAgent(_ context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[agentID]; !ok {
		return ErrNotFound
	}
	delete(s.agents, agentID)
	return nil
}

func (s *InMemoryStore) SetAgentVoiceAsset(_ context.Context, agentID string, has bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[agentID]
	if !ok {
		return ErrNotFound
	}
	a.HasCustomVoice = has
	a.UpdatedAt = time.Now().UTC()
	s.agents[agentID] = a
	return nil
}

func (s *InMemoryStore) AppendTurn(_ context.Context, userID, agentID, userMessage, agentReply string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := turnKey(userID, agentID)
	s.turns[key] = append(s.turns[key], Conversation{
		ID:          uuid.NewString(),
		UserID:      userID,
		AgentID:     agentID,
		UserMessage: userMessage,
		AgentReply:  agentReply,
		CreatedAt:   time.Now().UTC(),
	})
	return nil
}

func (s *InMemoryStore) RecentTurns(_ context.Context, userID, agentID string, limit int) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[turnKey(userID, agentID)]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	// Stored oldest first; return newest first.
	out := make([]Conversation, 0, limit)
	for i := len(arr) - 1; i >= len(arr)-limit; i-- {
		out = append(out, arr[i])
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
