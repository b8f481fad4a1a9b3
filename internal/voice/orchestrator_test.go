package voice

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/takumamiraidai/Lifetip-API/internal/observability"
)

var metricsSeq atomic.Int64

func testMetrics() *observability.Metrics {
	return observability.NewMetrics(fmt.Sprintf("test_voice_%d", metricsSeq.Add(1)))
}

type stubDefaultSynth struct {
	calls       int
	lastSpeaker int
	synthesize  func(ctx context.Context, text string, speakerID int) ([]byte, error)
}

func (s *stubDefaultSynth) Synthesize(ctx context.Context, text string, speakerID int) ([]byte, error) {
	s.calls++
	s.lastSpeaker = speakerID
	return s.synthesize(ctx, text, speakerID)
}

type stubCustomSynth struct {
	calls      int
	lastAsset  string
	synthesize func(ctx context.Context, text, assetRef string) ([]byte, error)
}

func (s *stubCustomSynth) Synthesize(ctx context.Context, text, assetRef string) ([]byte, error) {
	s.calls++
	s.lastAsset = assetRef
	return s.synthesize(ctx, text, assetRef)
}

func TestRunStopsAfterFirstSuccess(t *testing.T) {
	def := &stubDefaultSynth{synthesize: func(context.Context, string, int) ([]byte, error) {
		return []byte("default-audio"), nil
	}}
	custom := &stubCustomSynth{synthesize: func(context.Context, string, string) ([]byte, error) {
		return []byte("custom-audio"), nil
	}}
	o := NewOrchestrator(def, custom, testMetrics(), zerolog.Nop())

	chain := SelectChain(Config{Mode: ModeCustom, HasCustomAsset: true, AssetRef: "a.wav", SpeakerID: 2}, time.Minute, time.Minute)
	out := o.Run(context.Background(), "hello", chain)

	if string(out.Audio) != "custom-audio" {
		t.Fatalf("audio = %q, want custom-audio", out.Audio)
	}
	if out.Backend != BackendCustom {
		t.Fatalf("backend = %q, want custom", out.Backend)
	}
	if custom.calls != 1 || def.calls != 0 {
		t.Fatalf("calls custom=%d default=%d, want 1/0", custom.calls, def.calls)
	}
}

func TestRunFallsBackToDefaultOnCustomTimeout(t *testing.T) {
	custom := &stubCustomSynth{synthesize: func(ctx context.Context, _, _ string) ([]byte, error) {
		return nil, timeoutErr(BackendCustom, context.DeadlineExceeded)
	}}
	def := &stubDefaultSynth{synthesize: func(context.Context, string, int) ([]byte, error) {
		return []byte("default-audio"), nil
	}}
	o := NewOrchestrator(def, custom, testMetrics(), zerolog.Nop())

	chain := SelectChain(Config{Mode: ModeCustom, HasCustomAsset: true, AssetRef: "a.wav", SpeakerID: 3}, time.Minute, time.Minute)
	out := o.Run(context.Background(), "hello", chain)

	if custom.calls != 1 || def.calls != 1 {
		t.Fatalf("calls custom=%d default=%d, want 1/1", custom.calls, def.calls)
	}
	if string(out.Audio) != "default-audio" || out.Backend != BackendDefault {
		t.Fatalf("outcome = %+v, want default backend audio", out)
	}
	if def.lastSpeaker != 3 {
		t.Fatalf("fallback speaker = %d, want 3", def.lastSpeaker)
	}
}

func TestRunExhaustsWhenEveryBackendFails(t *testing.T) {
	custom := &stubCustomSynth{synthesize: func(context.Context, string, string) ([]byte, error) {
		return nil, upstreamErr(BackendCustom, errors.New("boom"))
	}}
	def := &stubDefaultSynth{synthesize: func(context.Context, string, int) ([]byte, error) {
		return nil, upstreamErr(BackendDefault, errors.New("boom"))
	}}
	o := NewOrchestrator(def, custom, testMetrics(), zerolog.Nop())

	chain := SelectChain(Config{Mode: ModeCustom, HasCustomAsset: true, AssetRef: "a.wav"}, time.Minute, time.Minute)
	out := o.Run(context.Background(), "hello", chain)

	if out.Audio != nil {
		t.Fatalf("audio = %q, want nil", out.Audio)
	}
	if custom.calls != 1 || def.calls != 1 {
		t.Fatalf("calls custom=%d default=%d, want 1/1", custom.calls, def.calls)
	}
}

func TestRunFlagsAssetMissing(t *testing.T) {
	custom := &stubCustomSynth{synthesize: func(context.Context, string, string) ([]byte, error) {
		return nil, assetMissingErr(BackendCustom, errors.New("no such asset"))
	}}
	def := &stubDefaultSynth{synthesize: func(context.Context, string, int) ([]byte, error) {
		return []byte("default-audio"), nil
	}}
	o := NewOrchestrator(def, custom, testMetrics(), zerolog.Nop())

	chain := SelectChain(Config{Mode: ModeCustom, HasCustomAsset: true, AssetRef: "a.wav"}, time.Minute, time.Minute)
	out := o.Run(context.Background(), "hello", chain)

	if !out.AssetMissing {
		t.Fatalf("AssetMissing = false, want true")
	}
	if string(out.Audio) != "default-audio" {
		t.Fatalf("audio = %q, want default-audio", out.Audio)
	}
}

func TestRunDefaultAttemptBudgetCoversBothCalls(t *testing.T) {
	// One default attempt is two sequential remote calls. Each stays inside
	// its own per-call bound here; the attempt budget must span their sum.
	perCall := 40 * time.Millisecond
	def := &stubDefaultSynth{synthesize: func(ctx context.Context, _ string, _ int) ([]byte, error) {
		for i := 0; i < 2; i++ {
			select {
			case <-time.After(3 * perCall / 4):
			case <-ctx.Done():
				return nil, timeoutErr(BackendDefault, ctx.Err())
			}
		}
		return []byte("default-audio"), nil
	}}
	o := NewOrchestrator(def, &stubCustomSynth{}, testMetrics(), zerolog.Nop())

	chain := SelectChain(Config{Mode: ModeDefault, SpeakerID: 1}, 2*perCall, time.Minute)
	out := o.Run(context.Background(), "hello", chain)

	if string(out.Audio) != "default-audio" {
		t.Fatalf("audio = %q, want default-audio with a budget covering both calls", out.Audio)
	}
}

func TestRunSkipsAttemptsAfterDeadline(t *testing.T) {
	custom := &stubCustomSynth{synthesize: func(context.Context, string, string) ([]byte, error) {
		return nil, nil
	}}
	def := &stubDefaultSynth{synthesize: func(context.Context, string, int) ([]byte, error) {
		return []byte("x"), nil
	}}
	o := NewOrchestrator(def, custom, testMetrics(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := SelectChain(Config{Mode: ModeCustom, HasCustomAsset: true, AssetRef: "a.wav"}, time.Minute, time.Minute)
	out := o.Run(ctx, "hello", chain)

	if out.Audio != nil {
		t.Fatalf("audio = %q, want nil after cancelled context", out.Audio)
	}
	if custom.calls != 0 || def.calls != 0 {
		t.Fatalf("calls custom=%d default=%d, want 0/0", custom.calls, def.calls)
	}
}

func TestRunCancelsMidChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	custom := &stubCustomSynth{synthesize: func(context.Context, string, string) ([]byte, error) {
		cancel()
		return nil, timeoutErr(BackendCustom, context.Canceled)
	}}
	def := &stubDefaultSynth{synthesize: func(context.Context, string, int) ([]byte, error) {
		return []byte("x"), nil
	}}
	o := NewOrchestrator(def, custom, testMetrics(), zerolog.Nop())

	chain := SelectChain(Config{Mode: ModeCustom, HasCustomAsset: true, AssetRef: "a.wav"}, time.Minute, time.Minute)
	out := o.Run(ctx, "hello", chain)

	if out.Audio != nil {
		t.Fatalf("audio = %q, want nil once the turn deadline passed mid-chain", out.Audio)
	}
	if custom.calls != 1 || def.calls != 0 {
		t.Fatalf("calls custom=%d default=%d, want 1/0", custom.calls, def.calls)
	}
}
