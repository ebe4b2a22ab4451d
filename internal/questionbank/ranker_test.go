package questionbank

import (
	"context"
	"testing"
)

func rankerFixture() *MemStore {
	s := NewEmptyMemStore()
	s.AddQuestion(Question{ID: 1, Destination: "US", Category: "finance", Difficulty: 1, TextEN: "easy one"})
	s.AddQuestion(Question{ID: 2, Destination: "US", Category: "finance", Difficulty: 1, TextEN: "easy two"})
	s.AddQuestion(Question{ID: 3, Destination: "US", Category: "finance", Difficulty: 2, TextEN: "moderate"})
	s.AddQuestion(Question{ID: 4, Destination: "US", Category: "finance", Difficulty: 3, TextEN: "advanced"})
	return s
}

func TestTargetDifficulty(t *testing.T) {
	tests := []struct {
		name   string
		scores map[int]float64
		want   int
	}{
		{"no scores", nil, 1},
		{"strong", map[int]float64{1: 0.8, 2: 0.7}, 3},
		{"moderate", map[int]float64{1: 0.5, 2: 0.4}, 2},
		{"weak", map[int]float64{1: 0.35, 2: 0.35}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := targetDifficulty(tt.scores); got != tt.want {
				t.Fatalf("targetDifficulty() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRankerReaskPreempts(t *testing.T) {
	r := NewRanker(rankerFixture())
	// Question 1 scored badly and was asked: it is re-asked even though the
	// average would otherwise push difficulty up.
	q, err := r.NextQuestion(context.Background(), "US", "finance",
		map[int]float64{1: 0.2, 2: 0.9, 3: 0.9}, map[int]bool{1: true, 2: true, 3: true}, "")
	if err != nil {
		t.Fatalf("NextQuestion() error: %v", err)
	}
	if q == nil || q.ID != 1 {
		t.Fatalf("NextQuestion() = %+v, want question 1 re-asked", q)
	}
}

func TestRankerTargetsDifficulty(t *testing.T) {
	r := NewRanker(rankerFixture())

	// Strong performance targets difficulty 3.
	q, err := r.NextQuestion(context.Background(), "US", "finance",
		map[int]float64{1: 0.8, 2: 0.9}, map[int]bool{1: true, 2: true}, "")
	if err != nil {
		t.Fatalf("NextQuestion() error: %v", err)
	}
	if q == nil || q.Difficulty != 3 {
		t.Fatalf("NextQuestion() = %+v, want difficulty 3", q)
	}

	// No history starts easy.
	q, err = r.NextQuestion(context.Background(), "US", "finance", nil, nil, "")
	if err != nil {
		t.Fatalf("NextQuestion() error: %v", err)
	}
	if q == nil || q.Difficulty != 1 {
		t.Fatalf("NextQuestion() = %+v, want difficulty 1", q)
	}
}

func TestRankerAdjacentFallback(t *testing.T) {
	s := NewEmptyMemStore()
	// Only difficulty 1 and 3 exist; a difficulty-2 target falls back to 1.
	s.AddQuestion(Question{ID: 1, Destination: "US", Category: "finance", Difficulty: 1})
	s.AddQuestion(Question{ID: 2, Destination: "US", Category: "finance", Difficulty: 3})
	r := NewRanker(s)

	q, err := r.NextQuestion(context.Background(), "US", "finance",
		map[int]float64{10: 0.5}, nil, "")
	if err != nil {
		t.Fatalf("NextQuestion() error: %v", err)
	}
	if q == nil || q.Difficulty != 1 {
		t.Fatalf("NextQuestion() = %+v, want difficulty 1 fallback", q)
	}
}

func TestRankerRiskBump(t *testing.T) {
	s := rankerFixture()
	s.AddRiskFactor(RiskFactor{ID: 1, Destination: "US", Origin: "India", ScrutinyLevel: 3})
	r := NewRanker(s)

	// Moderate performance targets 2; the high-scrutiny origin bumps to 3.
	q, err := r.NextQuestion(context.Background(), "US", "finance",
		map[int]float64{1: 0.5}, map[int]bool{1: true}, "India")
	if err != nil {
		t.Fatalf("NextQuestion() error: %v", err)
	}
	if q == nil || q.Difficulty != 3 {
		t.Fatalf("NextQuestion() = %+v, want difficulty 3 after risk bump", q)
	}

	// Without a matching origin there is no bump.
	q, err = r.NextQuestion(context.Background(), "US", "finance",
		map[int]float64{1: 0.5}, map[int]bool{1: true}, "Brazil")
	if err != nil {
		t.Fatalf("NextQuestion() error: %v", err)
	}
	if q == nil || q.Difficulty != 2 {
		t.Fatalf("NextQuestion() = %+v, want difficulty 2 without bump", q)
	}
}

func TestRankerExhaustedPool(t *testing.T) {
	r := NewRanker(rankerFixture())
	q, err := r.NextQuestion(context.Background(), "US", "finance",
		map[int]float64{1: 0.9, 2: 0.9, 3: 0.9, 4: 0.9},
		map[int]bool{1: true, 2: true, 3: true, 4: true}, "")
	if err != nil {
		t.Fatalf("NextQuestion() error: %v", err)
	}
	if q != nil {
		t.Fatalf("NextQuestion() = %+v, want nil when exhausted", q)
	}
}

func TestRankerUnknownCountry(t *testing.T) {
	r := NewRanker(rankerFixture())
	if _, err := r.NextQuestion(context.Background(), "XX", "finance", nil, nil, ""); err == nil {
		t.Fatal("NextQuestion() with unknown country should error")
	}
}

func TestRankerFollowup(t *testing.T) {
	s := rankerFixture()
	s.AddFollowup(Followup{ID: 1, ParentID: 3, TextEN: "first"})
	s.AddFollowup(Followup{ID: 2, ParentID: 3, TextEN: "second"})
	r := NewRanker(s)

	f, err := r.Followup(context.Background(), 3, 0.4)
	if err != nil {
		t.Fatalf("Followup() error: %v", err)
	}
	if f == nil || f.TextEN != "first" {
		t.Fatalf("Followup() = %+v, want first follow-up", f)
	}

	// Strong answers get no follow-up.
	f, err = r.Followup(context.Background(), 3, 0.8)
	if err != nil {
		t.Fatalf("Followup() error: %v", err)
	}
	if f != nil {
		t.Fatalf("Followup() = %+v, want nil for strong answer", f)
	}
}
