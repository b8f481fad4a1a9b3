package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestVoiceVoxSynthesizeTwoStep(t *testing.T) {
	var queryCalls, renderCalls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio_query":
			queryCalls++
			if got := r.URL.Query().Get("speaker"); got != "3" {
				t.Errorf("audio_query speaker = %q, want 3", got)
			}
			if got := r.URL.Query().Get("text"); got != "hi there" {
				t.Errorf("audio_query text = %q", got)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"accent_phrases": []any{}, "speedScale": 1.0})
		case "/synthesis":
			renderCalls++
			if got := r.URL.Query().Get("speaker"); got != "3" {
				t.Errorf("synthesis speaker = %q, want 3", got)
			}
			if got := r.URL.Query().Get("enable_interrogative_upspeak"); got != "true" {
				t.Errorf("enable_interrogative_upspeak = %q, want true", got)
			}
			var recipe map[string]any
			if err := json.NewDecoder(r.Body).Decode(&recipe); err != nil {
				t.Errorf("synthesis body not the recipe: %v", err)
			}
			_, _ = w.Write([]byte("RIFFwav-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := NewVoiceVoxClient(ts.URL, 5*time.Second, BreakerSettings{}, zerolog.Nop())
	audio, err := c.Synthesize(context.Background(), "hi there", 3)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "RIFFwav-bytes" {
		t.Fatalf("audio = %q", audio)
	}
	if queryCalls != 1 || renderCalls != 1 {
		t.Fatalf("calls query=%d render=%d, want 1/1", queryCalls, renderCalls)
	}
}

func TestVoiceVoxQueryFailureIsUpstream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "engine busy", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewVoiceVoxClient(ts.URL, 5*time.Second, BreakerSettings{}, zerolog.Nop())
	_, err := c.Synthesize(context.Background(), "x", 1)
	if err == nil {
		t.Fatalf("Synthesize() expected error")
	}
	if KindOf(err) != KindUpstream {
		t.Fatalf("kind = %q, want upstream", KindOf(err))
	}
}

func TestVoiceVoxBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewVoiceVoxClient(ts.URL, 5*time.Second, BreakerSettings{MaxFailures: 2, ResetTimeout: time.Minute}, zerolog.Nop())
	for i := 0; i < 2; i++ {
		if _, err := c.Synthesize(context.Background(), "x", 1); err == nil {
			t.Fatalf("attempt %d expected error", i)
		}
	}

	callsBefore := calls
	_, err := c.Synthesize(context.Background(), "x", 1)
	if err == nil {
		t.Fatalf("expected error once breaker is open")
	}
	if KindOf(err) != KindUpstream {
		t.Fatalf("kind = %q, want upstream for open breaker", KindOf(err))
	}
	if calls != callsBefore {
		t.Fatalf("backend was called while breaker open (calls %d -> %d)", callsBefore, calls)
	}
}

func TestCloneSynthesizeSendsForm(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostFormValue("text"); got != "hi there" {
			t.Errorf("text = %q", got)
		}
		if got := r.PostFormValue("wav_filename"); got != "agent-1.wav" {
			t.Errorf("wav_filename = %q", got)
		}
		if got := r.PostFormValue("language"); got != "ja" {
			t.Errorf("language = %q", got)
		}
		_, _ = w.Write([]byte("RIFFcloned"))
	}))
	defer ts.Close()

	c := NewCloneClient(ts.URL, "ja", 5*time.Second, BreakerSettings{}, zerolog.Nop())
	audio, err := c.Synthesize(context.Background(), "hi there", "agent-1.wav")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "RIFFcloned" {
		t.Fatalf("audio = %q", audio)
	}
}

func TestCloneSynthesizeMapsNotFoundToAssetMissing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unknown wav_filename", http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewCloneClient(ts.URL, "ja", 5*time.Second, BreakerSettings{}, zerolog.Nop())
	_, err := c.Synthesize(context.Background(), "x", "gone.wav")
	if err == nil {
		t.Fatalf("Synthesize() expected error")
	}
	if !IsAssetMissing(err) {
		t.Fatalf("IsAssetMissing = false for 404, err = %v", err)
	}
	var be *BackendError
	if !errors.As(err, &be) || be.Backend != BackendCustom {
		t.Fatalf("error not attributed to custom backend: %v", err)
	}
}

func TestCloneSynthesizeServerErrorIsUpstream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gpu fell over", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewCloneClient(ts.URL, "ja", 5*time.Second, BreakerSettings{}, zerolog.Nop())
	_, err := c.Synthesize(context.Background(), "x", "a.wav")
	if KindOf(err) != KindUpstream {
		t.Fatalf("kind = %q, want upstream", KindOf(err))
	}
}
