package questionbank

import (
	"context"
	"sort"
)

// reaskThreshold is the score at or below which an answered question is
// re-asked before anything new is selected.
const reaskThreshold = 0.3

// followupThreshold is the score at or below which a follow-up question is
// offered for the parent.
const followupThreshold = 0.5

// Ranker selects the next question from interview performance: weak answers
// are re-asked first, then difficulty is targeted from the running average
// with a bump for high-scrutiny origins.
type Ranker struct {
	store Store
}

// NewRanker creates a ranker over the given store.
func NewRanker(store Store) *Ranker {
	return &Ranker{store: store}
}

// targetDifficulty maps the average score to a difficulty level 1..3.
func targetDifficulty(scores map[int]float64) int {
	if len(scores) == 0 {
		return 1
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	avg := sum / float64(len(scores))
	switch {
	case avg >= 0.7:
		return 3
	case avg >= 0.4:
		return 2
	default:
		return 1
	}
}

// riskBump returns 1 when the destination/origin pair carries a
// high-scrutiny (level 3) risk factor, otherwise 0. Lookup failures count
// as no bump.
func (r *Ranker) riskBump(ctx context.Context, destination, origin string) int {
	if origin == "" {
		return 0
	}
	risks, err := r.store.RiskFactors(ctx, destination, origin)
	if err != nil {
		return 0
	}
	for _, risk := range risks {
		if risk.ScrutinyLevel >= 3 {
			return 1
		}
	}
	return 0
}

// checkReask returns a question that scored at or below reaskThreshold and
// was already asked, lowest question ID first, or nil.
func checkReask(scores map[int]float64, asked map[int]bool, questions []Question) *Question {
	byID := make(map[int]*Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	ids := make([]int, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if scores[id] <= reaskThreshold && asked[id] && byID[id] != nil {
			return byID[id]
		}
	}
	return nil
}

// NextQuestion selects the next best question for the interview.
//
// Selection order: re-ask a weak answer if one exists; otherwise target the
// difficulty implied by the running average (bumped for high-scrutiny
// origins, clamped to 3), preferring the target difficulty, then one easier,
// then one harder, then any unanswered question. Returns nil when the pool
// is exhausted.
func (r *Ranker) NextQuestion(ctx context.Context, destination, category string, scores map[int]float64, asked map[int]bool, origin string) (*Question, error) {
	questions, err := r.store.Questions(ctx, destination, Filter{Category: category})
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, nil
	}

	if reask := checkReask(scores, asked, questions); reask != nil {
		return reask, nil
	}

	target := targetDifficulty(scores)
	target = min(3, target+r.riskBump(ctx, destination, origin))

	var unanswered []Question
	for _, q := range questions {
		if !asked[q.ID] {
			unanswered = append(unanswered, q)
		}
	}
	if len(unanswered) == 0 {
		return nil, nil
	}

	for _, difficulty := range []int{target, target - 1, target + 1} {
		if difficulty < 1 || difficulty > 3 {
			continue
		}
		for i := range unanswered {
			if unanswered[i].Difficulty == difficulty {
				return &unanswered[i], nil
			}
		}
	}
	return &unanswered[0], nil
}

// Followup returns the first follow-up for a weakly answered question
// (score at or below followupThreshold), or nil.
func (r *Ranker) Followup(ctx context.Context, questionID int, score float64) (*Followup, error) {
	if score > followupThreshold {
		return nil, nil
	}
	followups, err := r.store.Followups(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if len(followups) == 0 {
		return nil, nil
	}
	return &followups[0], nil
}
