package session

import (
	"testing"
)

func TestNewSessionID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s := New("US", "IN")
		if len(s.ID) != 8 {
			t.Fatalf("session ID %q has length %d, want 8", s.ID, len(s.ID))
		}
		for _, c := range s.ID {
			if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
				t.Fatalf("session ID %q contains non-hex character %q", s.ID, c)
			}
		}
		if seen[s.ID] {
			t.Fatalf("duplicate session ID %q", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestSessionComponentsInitialized(t *testing.T) {
	s := New("UK", "IN")
	if s.Machine == nil || s.Language == nil || s.Scorer == nil || s.Tracker == nil {
		t.Fatal("session components not initialized")
	}
	if s.Machine.Destination() != "UK" {
		t.Fatalf("destination = %q, want UK", s.Machine.Destination())
	}
}

func TestTranscript(t *testing.T) {
	s := New("US", "IN")
	s.Append("agent", "Please introduce yourself.")
	s.Append("user", "My name is Asha.")
	s.Append("agent", "Why this university?")

	tr := s.Transcript()
	if len(tr) != 3 {
		t.Fatalf("transcript length = %d, want 3", len(tr))
	}
	if tr[0].Role != "agent" || tr[1].Role != "user" {
		t.Fatalf("roles = %q, %q", tr[0].Role, tr[1].Role)
	}
	if tr[1].Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}
}

func TestRecentTranscript(t *testing.T) {
	s := New("US", "IN")
	for i := 0; i < 15; i++ {
		s.Append("user", "answer")
	}

	// Fetch a 10-entry window skipping the just-appended entry.
	got := s.RecentTranscript(10, 1)
	if len(got) != 10 {
		t.Fatalf("window length = %d, want 10", len(got))
	}

	// A short transcript returns everything available.
	s2 := New("US", "IN")
	s2.Append("user", "only one")
	if got := s2.RecentTranscript(10, 1); len(got) != 0 {
		t.Fatalf("window length = %d, want 0 when only the current entry exists", len(got))
	}
	s2.Append("agent", "reply")
	if got := s2.RecentTranscript(10, 0); len(got) != 2 {
		t.Fatalf("window length = %d, want 2", len(got))
	}
}

func TestEndReport(t *testing.T) {
	s := New("US", "IN")
	s.Scorer.RecordScore(1, 0.8, "background", "", 0)
	s.Scorer.RecordScore(2, 0.9, "finance", "", 0)

	rep := s.End()
	if rep.SessionID != s.ID {
		t.Fatalf("report session ID = %q, want %q", rep.SessionID, s.ID)
	}
	if rep.DurationMinutes < 0 {
		t.Fatalf("duration = %v", rep.DurationMinutes)
	}
	if rep.LanguageSwitches != 0 {
		t.Fatalf("language switches = %d, want 0", rep.LanguageSwitches)
	}
	if rep.Readiness != "Well Prepared" {
		t.Fatalf("readiness = %q", rep.Readiness)
	}
	if !s.Ended() {
		t.Fatal("session not marked ended")
	}
}

func TestEndIsIdempotent(t *testing.T) {
	s := New("US", "IN")
	a := s.End()
	b := s.End()
	if a.SessionID != b.SessionID || a.DurationMinutes != b.DurationMinutes {
		t.Fatalf("repeated End() reports differ: %+v vs %+v", a, b)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	s := r.Create("US", "IN")
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}

	got, err := r.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != s {
		t.Fatal("Get() returned a different session")
	}

	if _, err := r.Get("deadbeef"); err != ErrNotFound {
		t.Fatalf("Get(unknown) error = %v, want ErrNotFound", err)
	}

	rep, err := r.End(s.ID)
	if err != nil {
		t.Fatalf("End() error: %v", err)
	}
	if rep.SessionID != s.ID {
		t.Fatalf("report session ID = %q, want %q", rep.SessionID, s.ID)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() after End = %d, want 0", r.Len())
	}

	if _, err := r.End(s.ID); err != ErrNotFound {
		t.Fatalf("End(ended) error = %v, want ErrNotFound", err)
	}
}
