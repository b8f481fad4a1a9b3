package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// VoiceVoxClient synthesizes speech with the default multi-speaker backend.
// One attempt is two sequential remote calls: build a synthesis recipe from
// text and speaker, then render the recipe to wav bytes.
type VoiceVoxClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// BreakerSettings bounds how long a repeatedly failing backend keeps being
// called before attempts short-circuit into an immediate fallback.
type BreakerSettings struct {
	MaxFailures  int
	ResetTimeout time.Duration
}

func newBreaker(name string, s BreakerSettings, log zerolog.Logger) *gobreaker.CircuitBreaker {
	maxFailures := uint32(s.MaxFailures)
	if maxFailures == 0 {
		maxFailures = 5
	}
	resetTimeout := s.ResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
}

func NewVoiceVoxClient(baseURL string, timeout time.Duration, breaker BreakerSettings, log zerolog.Logger) *VoiceVoxClient {
	log = log.With().Str("component", "voicevox").Logger()
	return &VoiceVoxClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{},
		timeout: timeout,
		breaker: newBreaker("voicevox", breaker, log),
		log:     log,
	}
}

// Synthesize renders text as wav bytes for the given speaker id.
func (c *VoiceVoxClient) Synthesize(ctx context.Context, text string, speakerID int) ([]byte, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return c.synthesize(ctx, text, speakerID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, upstreamErr(BackendDefault, err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *VoiceVoxClient) synthesize(ctx context.Context, text string, speakerID int) ([]byte, error) {
	recipe, err := c.audioQuery(ctx, text, speakerID)
	if err != nil {
		return nil, err
	}
	return c.render(ctx, recipe, speakerID)
}

func (c *VoiceVoxClient) audioQuery(ctx context.Context, text string, speakerID int) (json.RawMessage, error) {
	qctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("text", text)
	q.Set("speaker", strconv.Itoa(speakerID))

	req, err := http.NewRequestWithContext(qctx, http.MethodPost, c.baseURL+"/audio_query?"+q.Encode(), nil)
	if err != nil {
		return nil, upstreamErr(BackendDefault, fmt.Errorf("create audio_query request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, classify(qctx, BackendDefault, fmt.Errorf("audio_query: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, upstreamErr(BackendDefault,
			fmt.Errorf("audio_query status %d: %s", res.StatusCode, strings.TrimSpace(string(body))))
	}

	recipe, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, classify(qctx, BackendDefault, fmt.Errorf("read audio_query response: %w", err))
	}
	return recipe, nil
}

func (c *VoiceVoxClient) render(ctx context.Context, recipe json.RawMessage, speakerID int) ([]byte, error) {
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("speaker", strconv.Itoa(speakerID))
	q.Set("enable_interrogative_upspeak", "true")

	req, err := http.NewRequestWithContext(rctx, http.MethodPost, c.baseURL+"/synthesis?"+q.Encode(), bytes.NewReader(recipe))
	if err != nil {
		return nil, upstreamErr(BackendDefault, fmt.Errorf("create synthesis request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, classify(rctx, BackendDefault, fmt.Errorf("synthesis: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, upstreamErr(BackendDefault,
			fmt.Errorf("synthesis status %d: %s", res.StatusCode, strings.TrimSpace(string(body))))
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, classify(rctx, BackendDefault, fmt.Errorf("read synthesis response: %w", err))
	}
	if len(audio) == 0 {
		return nil, upstreamErr(BackendDefault, fmt.Errorf("synthesis returned empty audio"))
	}

	c.log.Debug().Int("speaker", speakerID).Int("bytes", len(audio)).Msg("voicevox synthesis ok")
	return audio, nil
}
