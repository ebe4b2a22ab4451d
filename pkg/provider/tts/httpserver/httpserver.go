// Package httpserver provides a Synthesizer backed by an HTTP TTS server
// (e.g. a Piper or Coqui container) exposing a simple REST synthesis API.
//
// Synthesis is performed via POST /synthesize with a JSON body
// {"text": ..., "language": ...}; the server responds with a WAV file. The
// RIFF header is parsed, the PCM extracted and, when the engine's native
// rate differs from tts.OutputSampleRate, resampled with linear
// interpolation. Health is probed via GET /health.
//
// Typical usage:
//
//	s, err := httpserver.New("http://localhost:5002",
//	    httpserver.WithTimeout(20*time.Second),
//	)
//	pcm, err := s.Synthesize(ctx, "Why do you want to study there?", "en")
package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/visawire/visawire/pkg/audio"
	"github.com/visawire/visawire/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

const (
	defaultTimeout     = 30 * time.Second
	healthTimeout      = 5 * time.Second
	synthesizeEndpoint = "/synthesize"
	healthEndpoint     = "/health"
)

// Option is a functional option for configuring a Synthesizer.
type Option func(*Synthesizer)

// WithTimeout sets the per-request HTTP timeout for synthesis calls.
// Defaults to 30 s if not set.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		s.httpClient.Timeout = d
	}
}

// WithVoice sets a named voice passed through to the server. When empty the
// server's default voice for the requested language is used.
func WithVoice(voice string) Option {
	return func(s *Synthesizer) {
		s.voice = voice
	}
}

// Synthesizer implements tts.Synthesizer backed by a REST TTS server.
// It is safe for concurrent use.
type Synthesizer struct {
	serverURL  string
	voice      string
	httpClient *http.Client
}

// New creates a Synthesizer targeting the TTS server at serverURL
// (e.g. "http://localhost:5002"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Synthesizer, error) {
	if serverURL == "" {
		return nil, errors.New("httpserver: serverURL must not be empty")
	}
	s := &Synthesizer{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// synthesizeRequest is the JSON body sent to POST /synthesize.
type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Voice    string `json:"voice,omitempty"`
}

// Synthesize performs a single POST /synthesize call and returns the PCM16
// payload resampled to tts.OutputSampleRate.
func (s *Synthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	body := synthesizeRequest{
		Text:     text,
		Language: language,
		Voice:    s.voice,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("httpserver: marshal synthesize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+synthesizeEndpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("httpserver: create synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpserver: POST %s: %w", synthesizeEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpserver: POST %s returned status %d", synthesizeEndpoint, resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpserver: read WAV response: %w", err)
	}

	info, err := audio.ParseWAV(wav)
	if err != nil {
		return nil, fmt.Errorf("httpserver: %w", err)
	}
	if info.Channels != 1 {
		return nil, fmt.Errorf("httpserver: expected mono PCM, got %d channels", info.Channels)
	}

	pcm := wav[info.DataOffset:]
	if info.SampleRate != tts.OutputSampleRate {
		pcm = audio.ResampleMono16(pcm, info.SampleRate, tts.OutputSampleRate)
	}
	return pcm, nil
}

// Healthy probes GET /health with a short timeout.
func (s *Synthesizer) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.serverURL+healthEndpoint, nil)
	if err != nil {
		return fmt.Errorf("httpserver: create health request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpserver: GET %s: %w", healthEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpserver: GET %s returned status %d", healthEndpoint, resp.StatusCode)
	}
	return nil
}

