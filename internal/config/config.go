package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config contains all runtime settings for the agent voice-chat service.
type Config struct {
	BindAddr         string        `envconfig:"APP_BIND_ADDR" default:":8080"`
	ShutdownTimeout  time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"15s"`
	MetricsNamespace string        `envconfig:"APP_METRICS_NAMESPACE" default:"lifetip"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty        bool          `envconfig:"LOG_PRETTY" default:"false"`

	// Text-generation backend (ollama-compatible chat endpoint).
	ChatAPIURL  string        `envconfig:"CHAT_API_URL" default:"http://localhost:11434/api/chat"`
	ChatModel   string        `envconfig:"CHAT_MODEL" default:"elyza:jp8b"`
	ChatTimeout time.Duration `envconfig:"CHAT_TIMEOUT" default:"120s"`

	// Default multi-speaker synthesizer (VoiceVox-compatible). One attempt is
	// two sequential remote calls, each bounded by VoiceVoxTimeout; the attempt
	// budget must therefore cover both.
	VoiceVoxURL           string        `envconfig:"VOICEVOX_API_URL" default:"http://localhost:50021"`
	VoiceVoxTimeout       time.Duration `envconfig:"VOICEVOX_TIMEOUT" default:"60s"`
	DefaultAttemptTimeout time.Duration `envconfig:"DEFAULT_ATTEMPT_TIMEOUT" default:"120s"`

	// Per-agent voice-clone synthesizer. Clone synthesis is slow, so the
	// bound is deliberately generous.
	CloneAPIURL   string        `envconfig:"CUSTOM_VOICE_API_URL" default:"http://localhost:8000"`
	CloneTimeout  time.Duration `envconfig:"CUSTOM_VOICE_TIMEOUT" default:"120s"`
	CloneLanguage string        `envconfig:"CUSTOM_VOICE_LANGUAGE" default:"ja"`

	// One wall-clock budget for a whole chat-and-voice turn. Callers should
	// enforce the same bound on their side.
	TurnDeadline  time.Duration `envconfig:"TURN_DEADLINE" default:"180s"`
	HistoryWindow int           `envconfig:"HISTORY_WINDOW" default:"5"`

	AudioDir    string `envconfig:"AUDIO_DIR" default:"audio_files"`
	VoiceRefDir string `envconfig:"VOICE_REF_DIR" default:"voice_refs"`

	BreakerMaxFailures  int           `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	BreakerResetTimeout time.Duration `envconfig:"BREAKER_RESET_TIMEOUT" default:"30s"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
}

// Load reads settings from the environment, after loading a local .env file
// when one exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}

	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("HISTORY_WINDOW must be positive")
	}
	if cfg.TurnDeadline < cfg.ChatTimeout {
		return Config{}, fmt.Errorf("TURN_DEADLINE must be at least CHAT_TIMEOUT")
	}
	if cfg.BreakerMaxFailures <= 0 {
		return Config{}, fmt.Errorf("BREAKER_MAX_FAILURES must be positive")
	}
	if cfg.DefaultAttemptTimeout < 2*cfg.VoiceVoxTimeout {
		return Config{}, fmt.Errorf("DEFAULT_ATTEMPT_TIMEOUT must cover both synthesis calls (at least 2x VOICEVOX_TIMEOUT)")
	}

	return cfg, nil
}
