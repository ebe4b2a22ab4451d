// Package session holds the per-interview state: the deterministic state
// machine, language controller, scorer, contradiction tracker, and the
// running transcript. A [Registry] tracks all live sessions in the process.
package session

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/visawire/visawire/internal/interview"
)

// TranscriptEntry is one utterance in the interview transcript.
type TranscriptEntry struct {
	Role      string    `json:"role"` // "user" or "agent"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the complete state of one mock interview. All interview
// components live here so a turn can run against a single lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	Machine  *interview.StateMachine
	Language *interview.LanguageController
	Scorer   *interview.Scorer
	Tracker  *interview.Tracker

	// TurnMu serialises turns: only one answer may be processed at a time
	// per session, whether it arrived over the socket or the REST surface.
	TurnMu sync.Mutex

	mu         sync.Mutex
	transcript []TranscriptEntry
	endedAt    time.Time
}

// newID returns a short session identifier: the first 8 hex characters of a
// random UUID, matching the IDs exposed in client URLs and audit keys.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// New creates a Session for the given destination and origin country codes.
func New(destination, origin string) *Session {
	return &Session{
		ID:        newID(),
		CreatedAt: time.Now(),
		Machine:   interview.NewStateMachine(destination, origin),
		Language:  interview.NewLanguageController(interview.LanguageEnglish),
		Scorer:    interview.NewScorer(),
		Tracker:   interview.NewTracker(),
	}
}

// Append adds an utterance to the transcript.
func (s *Session) Append(role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, TranscriptEntry{
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// Transcript returns a copy of the transcript.
func (s *Session) Transcript() []TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// RecentTranscript returns up to n of the most recent transcript entries,
// excluding the last skipLast entries. The pipeline uses this to build LLM
// history without the utterance currently being answered.
func (s *Session) RecentTranscript(n, skipLast int) []TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	end := len(s.transcript) - skipLast
	if end < 0 {
		end = 0
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	out := make([]TranscriptEntry, end-start)
	copy(out, s.transcript[start:end])
	return out
}

// Ended reports whether End has been called.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.endedAt.IsZero()
}

// Report is the final interview report returned when a session ends.
type Report struct {
	SessionID        string  `json:"session_id"`
	DurationMinutes  float64 `json:"duration_minutes"`
	LanguageSwitches int     `json:"language_switches"`
	Contradictions   int     `json:"contradictions_found"`
	interview.Report
}

// End marks the session finished and builds the final report. Calling End
// again returns the same report recomputed against the original end time.
func (s *Session) End() Report {
	s.mu.Lock()
	if s.endedAt.IsZero() {
		s.endedAt = time.Now()
	}
	ended := s.endedAt
	s.mu.Unlock()

	minutes := ended.Sub(s.CreatedAt).Minutes()
	return Report{
		SessionID:        s.ID,
		DurationMinutes:  math.Round(minutes*10) / 10,
		LanguageSwitches: s.Language.SwitchCount(),
		Contradictions:   len(s.Tracker.All()),
		Report:           s.Scorer.GenerateReport(),
	}
}
