package whisper

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

	"github.com/visawire/visawire/pkg/provider/asr"
)

// Compile-time assertion that Server satisfies asr.Recognizer.
var _ asr.Recognizer = (*Server)(nil)

const (
	transcribeEndpoint = "/transcribe"
	healthEndpoint     = "/health"

	defaultServerTimeout = 30 * time.Second
	initTimeout          = 5 * time.Second
)

// ServerOption is a functional option for configuring a Server recognizer.
type ServerOption func(*Server)

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.httpClient.Timeout = d }
}

// Server implements asr.Recognizer against a Whisper transcription server
// that accepts raw PCM16LE mono 16 kHz audio on POST /transcribe and
// responds with {"text": "..."}.
type Server struct {
	serverURL  string
	httpClient *http.Client

	ready bool
	acc   asr.Accumulator
}

// NewServer creates a recognizer for the transcription server at serverURL
// (e.g. "http://localhost:9000").
func NewServer(serverURL string, opts ...ServerOption) (*Server, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	s := &Server{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultServerTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Initialize probes GET /health to verify the server is reachable.
func (s *Server) Initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.serverURL+healthEndpoint, nil)
	if err != nil {
		return fmt.Errorf("whisper: create health request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whisper: GET %s: %w", healthEndpoint, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whisper: GET %s returned status %d", healthEndpoint, resp.StatusCode)
	}
	s.ready = true
	return nil
}

// Ready implements asr.Recognizer.
func (s *Server) Ready() bool { return s.ready }

// Feed implements asr.Recognizer.
func (s *Server) Feed(ctx context.Context, pcm []byte) (*asr.Segment, error) {
	if !s.ready {
		return nil, errors.New("whisper: recognizer not initialized")
	}
	window := s.acc.Add(pcm)
	if window == nil {
		return nil, nil
	}
	return s.decode(ctx, window, true)
}

// Finalize implements asr.Recognizer.
func (s *Server) Finalize(ctx context.Context) (string, error) {
	if !s.ready {
		return "", errors.New("whisper: recognizer not initialized")
	}
	if rest := s.acc.Drain(); len(rest) > 0 {
		if _, err := s.decode(ctx, rest, false); err != nil {
			return "", err
		}
	}
	return s.acc.Transcript(), nil
}

// Reset implements asr.Recognizer.
func (s *Server) Reset() {
	s.acc.Reset()
}

// transcribeResponse is the JSON body returned by POST /transcribe.
type transcribeResponse struct {
	Text string `json:"text"`
}

func (s *Server) decode(ctx context.Context, pcm []byte, partial bool) (*asr.Segment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+transcribeEndpoint, bytes.NewReader(pcm))
	if err != nil {
		return nil, fmt.Errorf("whisper: create transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper: POST %s: %w", transcribeEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper: POST %s returned status %d", transcribeEndpoint, resp.StatusCode)
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("whisper: decode transcribe response: %w", err)
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		return nil, nil
	}
	seg := s.acc.Record(asr.Segment{
		Text:     text,
		Partial:  partial,
		Language: asr.DetectLanguage(text),
	}, len(pcm))
	return &seg, nil
}
