package voice

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/takumamiraidai/Lifetip-API/internal/observability"
)

// Orchestrator drives one turn's synthesis attempts through a fallback chain.
// Attempts are strictly sequential: at most one backend wins per turn, and two
// backends are never in flight at once.
type Orchestrator struct {
	defaultSynth DefaultSynthesizer
	customSynth  CustomSynthesizer
	metrics      *observability.Metrics
	log          zerolog.Logger
}

func NewOrchestrator(defaultSynth DefaultSynthesizer, customSynth CustomSynthesizer, metrics *observability.Metrics, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		defaultSynth: defaultSynth,
		customSynth:  customSynth,
		metrics:      metrics,
		log:          log.With().Str("component", "voice_orchestrator").Logger(),
	}
}

// Outcome is the terminal state of one orchestrator run. Audio is nil when
// every attempt failed and the turn degrades to text-only.
type Outcome struct {
	Audio   []byte
	Backend Backend
	// AssetMissing is set when the custom backend reported the referenced
	// voice asset gone, so the caller can correct local bookkeeping.
	AssetMissing bool
}

// Run tries each attempt in order under the overall deadline carried by ctx.
// Backend failures are absorbed: they transition to the next attempt or, when
// the chain is exhausted, to a text-only outcome. Run never fails; text is the
// load-bearing contract and audio is best effort.
func (o *Orchestrator) Run(ctx context.Context, text string, chain []Attempt) Outcome {
	var out Outcome

	for i, attempt := range chain {
		if err := ctx.Err(); err != nil {
			o.log.Warn().Int("attempt", i).Str("backend", string(attempt.Backend)).
				Msg("turn deadline exceeded before attempt")
			break
		}

		audio, err := o.runAttempt(ctx, text, attempt)
		if err == nil {
			o.metrics.SynthesisAttempts.WithLabelValues(string(attempt.Backend), "succeeded").Inc()
			o.log.Info().Int("attempt", i).Str("backend", string(attempt.Backend)).
				Int("bytes", len(audio)).Msg("synthesis succeeded")
			out.Audio = audio
			out.Backend = attempt.Backend
			return out
		}

		kind := KindOf(err)
		o.metrics.SynthesisAttempts.WithLabelValues(string(attempt.Backend), string(kind)).Inc()
		o.metrics.UpstreamErrors.WithLabelValues(string(attempt.Backend), string(kind)).Inc()
		o.log.Warn().Err(err).Int("attempt", i).Str("backend", string(attempt.Backend)).
			Str("error_kind", string(kind)).Msg("synthesis attempt failed")

		if attempt.Backend == BackendCustom && kind == KindAssetMissing {
			out.AssetMissing = true
		}
	}

	o.metrics.Fallbacks.Inc()
	o.log.Warn().Int("chain_len", len(chain)).Msg("synthesis chain exhausted, returning text only")
	return out
}

func (o *Orchestrator) runAttempt(ctx context.Context, text string, attempt Attempt) ([]byte, error) {
	actx := ctx
	if attempt.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, attempt.Timeout)
		defer cancel()
	}

	switch attempt.Backend {
	case BackendCustom:
		return o.customSynth.Synthesize(actx, text, attempt.AssetRef)
	default:
		return o.defaultSynth.Synthesize(actx, text, attempt.SpeakerID)
	}
}
