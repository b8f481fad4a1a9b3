package voice

import "time"

// Backend names one synthesis path in a fallback chain.
type Backend string

const (
	BackendCustom  Backend = "custom"
	BackendDefault Backend = "default"
)

// Mode is an agent's configured voice preference.
type Mode string

const (
	ModeDefault Mode = "default"
	ModeCustom  Mode = "custom"
)

// DefaultSpeakerID is used whenever an agent's speaker id is unset or invalid.
const DefaultSpeakerID = 1

// Config is the effective voice configuration of one agent, with the speaker
// id already normalized.
type Config struct {
	Mode           Mode
	SpeakerID      int
	HasCustomAsset bool
	// AssetRef is the reference-recording filename registered with the clone
	// backend, e.g. "<agent-id>.wav".
	AssetRef string
}

// Attempt is one planned synthesis call. Transient; lives only within a single
// orchestrator run.
type Attempt struct {
	Backend   Backend
	SpeakerID int
	AssetRef  string
	Timeout   time.Duration
}

// SelectChain decides which backends to try, in order, for one turn's audio.
// Custom mode without a registered asset degrades to the default-only chain.
// Pure function: no I/O, no failure modes.
func SelectChain(cfg Config, defaultTimeout, customTimeout time.Duration) []Attempt {
	speaker := cfg.SpeakerID
	if speaker <= 0 {
		speaker = DefaultSpeakerID
	}

	fallback := Attempt{Backend: BackendDefault, SpeakerID: speaker, Timeout: defaultTimeout}
	if cfg.Mode == ModeCustom && cfg.HasCustomAsset {
		return []Attempt{
			{Backend: BackendCustom, AssetRef: cfg.AssetRef, Timeout: customTimeout},
			fallback,
		}
	}
	return []Attempt{fallback}
}
