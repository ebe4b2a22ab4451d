package interview

import (
	"strings"
	"testing"
)

func TestTrackerReturnPlanContradiction(t *testing.T) {
	tr := NewTracker()

	if got := tr.Track(1, "intent", "I will return to India after my studies"); len(got) != 0 {
		t.Fatalf("first answer produced %d contradictions", len(got))
	}
	got := tr.Track(2, "intent", "I plan to stay there with my cousin")
	if len(got) != 1 {
		t.Fatalf("got %d contradictions, want 1", len(got))
	}
	if !strings.Contains(got[0].Reason, "return/stay") {
		t.Fatalf("reason = %q", got[0].Reason)
	}
	if !tr.HasContradictions() {
		t.Fatal("HasContradictions() = false")
	}
}

func TestTrackerSponsorContradiction(t *testing.T) {
	tr := NewTracker()

	tr.Track(1, "finance", "My father is paying for my education")
	got := tr.Track(2, "finance", "My uncle is sponsoring my studies")
	if len(got) != 1 {
		t.Fatalf("got %d contradictions, want 1", len(got))
	}
	if !strings.Contains(got[0].Reason, "sponsors") {
		t.Fatalf("reason = %q", got[0].Reason)
	}
}

func TestTrackerSponsorFuzzyMatch(t *testing.T) {
	tr := NewTracker()

	// ASR noise: "fathar" is edit distance 1 from "father"; both answers
	// still name the same sponsor, so no contradiction.
	tr.Track(1, "finance", "My father is paying for everything")
	got := tr.Track(2, "finance", "My fathar is funding the course, sponsored by my fathar")
	if len(got) != 0 {
		t.Fatalf("got %d contradictions, want 0 for same fuzzy sponsor", len(got))
	}
}

func TestTrackerSameQuestionNoSelfContradiction(t *testing.T) {
	tr := NewTracker()
	tr.Track(3, "intent", "I will return home")
	if got := tr.Track(3, "intent", "I want to settle abroad"); len(got) != 0 {
		t.Fatalf("claims from the same question must not contradict, got %d", len(got))
	}
}

func TestTrackerIncomeContradiction(t *testing.T) {
	tests := []struct {
		name    string
		first   string
		second  string
		wantHit bool
	}{
		{
			"more than 2x apart",
			"my father's salary is 50,000 per month",
			"our family income is 200,000 per month",
			true,
		},
		{
			"within 2x",
			"my father's salary is 50,000 per month",
			"our family income is 80,000 per month",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			tr.Track(1, "finance", tt.first)
			got := tr.Track(2, "finance", tt.second)
			if (len(got) == 1) != tt.wantHit {
				t.Fatalf("got %d contradictions, wantHit %v", len(got), tt.wantHit)
			}
		})
	}
}

func TestTrackerDegreeClaimsRecordedOnly(t *testing.T) {
	tr := NewTracker()
	tr.Track(1, "academics", "I completed a bachelor of engineering")
	got := tr.Track(2, "academics", "I did a diploma before that")
	if len(got) != 0 {
		t.Fatalf("degree claims must not contradict, got %d", len(got))
	}

	var degrees int
	for _, c := range tr.Claims() {
		if c.Topic == "degree" {
			degrees++
		}
	}
	if degrees != 2 {
		t.Fatalf("recorded %d degree claims, want 2", degrees)
	}
}

func TestTrackerOneClaimPerTopicPerAnswer(t *testing.T) {
	tr := NewTracker()
	// Both sponsor patterns could match; only the first hit is recorded.
	tr.Track(1, "finance", "My father is paying, and I am also sponsored by my uncle")

	var sponsors int
	for _, c := range tr.Claims() {
		if c.Topic == "sponsor" {
			sponsors++
		}
	}
	if sponsors != 1 {
		t.Fatalf("recorded %d sponsor claims, want 1", sponsors)
	}
}
