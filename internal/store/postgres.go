package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists users, agents and conversations in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS agents (
			agent_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(user_id),
			name TEXT NOT NULL,
			tone TEXT NOT NULL,
			personality1 TEXT NOT NULL,
			personality2 TEXT NOT NULL DEFAULT '',
			voice_mode TEXT NOT NULL DEFAULT 'default',
			voice_speaker_id TEXT NOT NULL DEFAULT '1',
			has_custom_voice BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(user_id),
			agent_id TEXT NOT NULL REFERENCES agents(agent_id) ON DELETE CASCADE,
			user_message TEXT NOT NULL,
			agent_reply TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user_agent_created
			ON conversations (user_id, agent_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) EnsureUser(ctx context.Context, userID string) (User, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = users.updated_at
		 RETURNING user_id, created_at, updated_at`,
		userID,
	)
	var u User
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, fmt.Errorf("ensure user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT user_id, created_at, updated_at FROM users WHERE user_id=$1`, userID)
	var u User
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) CreateAgent(ctx context.Context, agent Agent) (Agent, error) {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.VoiceMode == "" {
		agent.VoiceMode = VoiceModeDefault
	}
	now := time.Now().UTC()
	agent.CreatedAt = now
	agent.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO agents (agent_id, user_id, name, tone, personality1, personality2,
			voice_mode, voice_speaker_id, has_custom_voice, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		agent.ID, agent.UserID, agent.Name, agent.Tone, agent.Personality1, agent.Personality2,
		string(agent.VoiceMode), agent.SpeakerID, agent.HasCustomVoice, agent.CreatedAt, agent.UpdatedAt,
	)
	if err != nil {
		return Agent{}, fmt.Errorf("create agent: %w", err)
	}
	return agent, nil
}

const agentColumns = `agent_id, user_id, name, tone, personality1, personality2,
	voice_mode, voice_speaker_id, has_custom_voice, created_at, updated_at`

func scanAgent(row pgx.Row) (Agent, error) {
	var a Agent
	var mode string
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Tone, &a.Personality1, &a.Personality2,
		&mode, &a.SpeakerID, &a.HasCustomVoice, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Agent{}, err
	}
	a.VoiceMode = VoiceMode(mode)
	return a, nil
}

func (s *PostgresStore) GetAgent(ctx context.Context, agentID string) (Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE agent_id=$1`, agentID)
	a, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, ErrNotFound
		}
		return Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListAgents(ctx context.Context, userID string) ([]Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateAgent(ctx context.Context, agent Agent) (Agent, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE agents SET name=$2, tone=$3, personality1=$4, personality2=$5,
			voice_mode=$6, voice_speaker_id=$7, has_custom_voice=$8, updated_at=now()
		 WHERE agent_id=$1
		 RETURNING `+agentColumns,
		agent.ID, agent.Name, agent.Tone, agent.Personality1, agent.Personality2,
		string(agent.VoiceMode), agent.SpeakerID, agent.HasCustomVoice,
	)
	updated, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, ErrNotFound
		}
		return Agent{}, fmt.Errorf("update agent: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteAgent(ctx context.Context, agentID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE agent_id=$1`, agentID)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetAgentVoiceAsset(ctx context.Context, agentID string, has bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agents SET has_custom_voice=$2, updated_at=now() WHERE agent_id=$1`,
		agentID, has)
	if err != nil {
		return fmt.Errorf("set agent voice asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, userID, agentID, userMessage, agentReply string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, user_id, agent_id, user_message, agent_reply, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		uuid.NewString(), userID, agentID, userMessage, agentReply, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentTurns(ctx context.Context, userID, agentID string, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, agent_id, user_message, agent_reply, created_at
		 FROM conversations WHERE user_id=$1 AND agent_id=$2
		 ORDER BY created_at DESC LIMIT $3`,
		userID, agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	out := make([]Conversation, 0, limit)
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.AgentID, &c.UserMessage, &c.AgentReply, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
