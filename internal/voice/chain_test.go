package voice

import (
	"testing"
	"time"
)

func TestSelectChainDefaultMode(t *testing.T) {
	chain := SelectChain(Config{Mode: ModeDefault, SpeakerID: 2}, time.Minute, 2*time.Minute)
	if len(chain) != 1 {
		t.Fatalf("len(chain) = %d, want 1", len(chain))
	}
	if chain[0].Backend != BackendDefault {
		t.Fatalf("backend = %q, want %q", chain[0].Backend, BackendDefault)
	}
	if chain[0].SpeakerID != 2 {
		t.Fatalf("speaker = %d, want 2", chain[0].SpeakerID)
	}
	if chain[0].Timeout != time.Minute {
		t.Fatalf("timeout = %v, want 1m", chain[0].Timeout)
	}
}

func TestSelectChainCustomWithAsset(t *testing.T) {
	cfg := Config{Mode: ModeCustom, SpeakerID: 4, HasCustomAsset: true, AssetRef: "agent-1.wav"}
	chain := SelectChain(cfg, time.Minute, 2*time.Minute)
	if len(chain) != 2 {
		t.Fatalf("len(chain) = %d, want 2", len(chain))
	}
	if chain[0].Backend != BackendCustom || chain[1].Backend != BackendDefault {
		t.Fatalf("order = [%q, %q], want [custom, default]", chain[0].Backend, chain[1].Backend)
	}
	if chain[0].AssetRef != "agent-1.wav" {
		t.Fatalf("asset ref = %q", chain[0].AssetRef)
	}
	if chain[0].Timeout != 2*time.Minute {
		t.Fatalf("custom timeout = %v, want 2m", chain[0].Timeout)
	}
	if chain[1].SpeakerID != 4 {
		t.Fatalf("fallback speaker = %d, want 4", chain[1].SpeakerID)
	}
}

func TestSelectChainCustomWithoutAssetBehavesAsDefault(t *testing.T) {
	withAsset := SelectChain(Config{Mode: ModeCustom, SpeakerID: 3}, time.Minute, 2*time.Minute)
	plain := SelectChain(Config{Mode: ModeDefault, SpeakerID: 3}, time.Minute, 2*time.Minute)
	if len(withAsset) != 1 || withAsset[0] != plain[0] {
		t.Fatalf("custom without asset = %+v, want %+v", withAsset, plain)
	}
}

func TestSelectChainSubstitutesDefaultSpeaker(t *testing.T) {
	chain := SelectChain(Config{Mode: ModeDefault}, time.Minute, 2*time.Minute)
	if chain[0].SpeakerID != DefaultSpeakerID {
		t.Fatalf("speaker = %d, want %d", chain[0].SpeakerID, DefaultSpeakerID)
	}
}
