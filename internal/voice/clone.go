package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// CloneClient synthesizes speech with the per-agent voice-clone backend.
type CloneClient struct {
	baseURL  string
	language string
	client   *http.Client
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
	log      zerolog.Logger
}

func NewCloneClient(baseURL, language string, timeout time.Duration, breaker BreakerSettings, log zerolog.Logger) *CloneClient {
	log = log.With().Str("component", "clone").Logger()
	return &CloneClient{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		language: language,
		client:   &http.Client{},
		timeout:  timeout,
		breaker:  newBreaker("clone", breaker, log),
		log:      log,
	}
}

// Synthesize renders text in the cloned voice identified by assetRef, the
// reference-recording filename registered with the backend. A 404 means the
// asset is gone on the backend side regardless of local bookkeeping.
func (c *CloneClient) Synthesize(ctx context.Context, text, assetRef string) ([]byte, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return c.generate(ctx, text, assetRef)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, upstreamErr(BackendCustom, err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *CloneClient) generate(ctx context.Context, text, assetRef string) ([]byte, error) {
	gctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("text", text)
	form.Set("wav_filename", assetRef)
	form.Set("language", c.language)

	req, err := http.NewRequestWithContext(gctx, http.MethodPost, c.baseURL+"/generate", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, upstreamErr(BackendCustom, fmt.Errorf("create generate request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, classify(gctx, BackendCustom, fmt.Errorf("generate: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, assetMissingErr(BackendCustom, fmt.Errorf("voice asset %q not registered", assetRef))
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, upstreamErr(BackendCustom,
			fmt.Errorf("generate status %d: %s", res.StatusCode, strings.TrimSpace(string(body))))
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, classify(gctx, BackendCustom, fmt.Errorf("read generate response: %w", err))
	}
	if len(audio) == 0 {
		return nil, upstreamErr(BackendCustom, fmt.Errorf("generate returned empty audio"))
	}

	c.log.Debug().Str("asset", assetRef).Int("bytes", len(audio)).Msg("clone synthesis ok")
	return audio, nil
}
