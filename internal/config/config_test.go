package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.ChatTimeout != 120*time.Second {
		t.Fatalf("ChatTimeout = %v, want 120s", cfg.ChatTimeout)
	}
	if cfg.TurnDeadline != 180*time.Second {
		t.Fatalf("TurnDeadline = %v, want 180s", cfg.TurnDeadline)
	}
	if cfg.HistoryWindow != 5 {
		t.Fatalf("HistoryWindow = %d, want 5", cfg.HistoryWindow)
	}
	if cfg.CloneLanguage != "ja" {
		t.Fatalf("CloneLanguage = %q, want %q", cfg.CloneLanguage, "ja")
	}
	if cfg.DefaultAttemptTimeout != 2*cfg.VoiceVoxTimeout {
		t.Fatalf("DefaultAttemptTimeout = %v, want twice VoiceVoxTimeout %v", cfg.DefaultAttemptTimeout, cfg.VoiceVoxTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHAT_API_URL", "http://example.com/api/chat")
	t.Setenv("TURN_DEADLINE", "240s")
	t.Setenv("HISTORY_WINDOW", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ChatAPIURL != "http://example.com/api/chat" {
		t.Fatalf("ChatAPIURL = %q", cfg.ChatAPIURL)
	}
	if cfg.TurnDeadline != 240*time.Second {
		t.Fatalf("TurnDeadline = %v, want 240s", cfg.TurnDeadline)
	}
	if cfg.HistoryWindow != 10 {
		t.Fatalf("HistoryWindow = %d, want 10", cfg.HistoryWindow)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HISTORY_WINDOW", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() with HISTORY_WINDOW=0 expected error")
	}
}

func TestLoadRejectsDeadlineBelowChatTimeout(t *testing.T) {
	t.Setenv("TURN_DEADLINE", "30s")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() with TURN_DEADLINE < CHAT_TIMEOUT expected error")
	}
}

func TestLoadRejectsAttemptBudgetBelowBothCalls(t *testing.T) {
	t.Setenv("DEFAULT_ATTEMPT_TIMEOUT", "60s")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() with DEFAULT_ATTEMPT_TIMEOUT < 2x VOICEVOX_TIMEOUT expected error")
	}
}
