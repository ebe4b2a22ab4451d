package questionbank

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory [Store]. It backs tests and the offline mode
// where no database is configured.
type MemStore struct {
	mu           sync.RWMutex
	questions    []Question
	followups    []Followup
	riskFactors  []RiskFactor
	destinations []Destination
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates a store pre-loaded with the built-in question bank.
func NewMemStore() *MemStore {
	s := &MemStore{}
	s.questions = append(s.questions, seedQuestions...)
	s.followups = append(s.followups, seedFollowups...)
	s.riskFactors = append(s.riskFactors, seedRiskFactors...)
	s.destinations = append(s.destinations, seedDestinations...)
	return s
}

// NewEmptyMemStore creates a store with no data, for tests that load their
// own fixtures.
func NewEmptyMemStore() *MemStore {
	return &MemStore{}
}

// AddQuestion inserts a question into the store.
func (s *MemStore) AddQuestion(q Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = append(s.questions, q)
}

// AddFollowup inserts a follow-up into the store.
func (s *MemStore) AddFollowup(f Followup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followups = append(s.followups, f)
}

// AddRiskFactor inserts a risk factor into the store.
func (s *MemStore) AddRiskFactor(r RiskFactor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riskFactors = append(s.riskFactors, r)
}

// Questions returns questions for a destination ordered by difficulty then ID.
func (s *MemStore) Questions(_ context.Context, destination string, filter Filter) ([]Question, error) {
	if err := ValidateCountry(destination); err != nil {
		return nil, err
	}
	if err := ValidateFilter(filter); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Question
	for _, q := range s.questions {
		if q.Destination != destination {
			continue
		}
		if filter.Category != "" && q.Category != filter.Category {
			continue
		}
		if filter.Difficulty != 0 && q.Difficulty != filter.Difficulty {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Difficulty != out[j].Difficulty {
			return out[i].Difficulty < out[j].Difficulty
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// QuestionByID returns the question with the given ID, or nil.
func (s *MemStore) QuestionByID(_ context.Context, id int) (*Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.questions {
		if q.ID == id {
			q := q
			return &q, nil
		}
	}
	return nil, nil
}

// Followups returns the follow-ups attached to a parent question.
func (s *MemStore) Followups(_ context.Context, parentID int) ([]Followup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Followup
	for _, f := range s.followups {
		if f.ParentID == parentID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RiskFactors returns risk factors for a destination ordered by scrutiny
// level descending.
func (s *MemStore) RiskFactors(_ context.Context, destination, origin string) ([]RiskFactor, error) {
	if err := ValidateCountry(destination); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []RiskFactor
	for _, r := range s.riskFactors {
		if r.Destination != destination {
			continue
		}
		if origin != "" && r.Origin != origin {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScrutinyLevel > out[j].ScrutinyLevel })
	return out, nil
}

// Destinations returns all destinations ordered by country code.
func (s *MemStore) Destinations(_ context.Context) ([]Destination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Destination, len(s.destinations))
	copy(out, s.destinations)
	sort.Slice(out, func(i, j int) bool { return out[i].CountryCode < out[j].CountryCode })
	return out, nil
}
