package voice

import "context"

// DefaultSynthesizer renders text with the shared multi-speaker backend.
type DefaultSynthesizer interface {
	Synthesize(ctx context.Context, text string, speakerID int) ([]byte, error)
}

// CustomSynthesizer renders text in a cloned per-agent voice.
type CustomSynthesizer interface {
	Synthesize(ctx context.Context, text, assetRef string) ([]byte, error)
}
