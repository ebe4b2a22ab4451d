package interview

import "math"

// QuestionScore holds the assessment of a single answered question. Scores
// are continuous in [0, 1] and hidden from the candidate during the
// interview.
type QuestionScore struct {
	QuestionID    int     `json:"question_id"`
	Score         float64 `json:"score"`
	Category      string  `json:"category,omitempty"`
	Feedback      string  `json:"feedback,omitempty"`
	Retries       int     `json:"retries,omitempty"`
	Contradiction bool    `json:"contradiction,omitempty"`
}

// Report is the end-of-interview assessment summary.
type Report struct {
	AverageScore   float64            `json:"average_score"`
	TotalQuestions int                `json:"total_questions"`
	Readiness      string             `json:"readiness"`
	CategoryScores map[string]float64 `json:"category_scores"`
	WeakAreas      []QuestionScore    `json:"weak_areas"`
	Contradictions []QuestionScore    `json:"contradictions"`
}

// Scorer tracks per-question scores across the interview. Not safe for
// concurrent use.
type Scorer struct {
	scores map[int]*QuestionScore
	order  []int
}

// NewScorer creates an empty scorer.
func NewScorer() *Scorer {
	return &Scorer{scores: make(map[int]*QuestionScore)}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// RecordScore records or replaces the score for a question, clamped to [0, 1].
func (s *Scorer) RecordScore(questionID int, score float64, category, feedback string, retries int) {
	if _, seen := s.scores[questionID]; !seen {
		s.order = append(s.order, questionID)
	}
	s.scores[questionID] = &QuestionScore{
		QuestionID: questionID,
		Score:      clamp01(score),
		Category:   category,
		Feedback:   feedback,
		Retries:    retries,
	}
}

// UpdateScore replaces the score of an already-recorded question, e.g. after
// a retry. Unknown question IDs are ignored.
func (s *Scorer) UpdateScore(questionID int, score float64) {
	if q, ok := s.scores[questionID]; ok {
		q.Score = clamp01(score)
	}
}

// MarkContradiction flags a question as contradicted and applies the score
// penalty.
func (s *Scorer) MarkContradiction(questionID int) {
	if q, ok := s.scores[questionID]; ok {
		q.Contradiction = true
		q.Score = math.Max(0, q.Score-0.2)
	}
}

// Average returns the mean score over all recorded questions, 0 when empty.
func (s *Scorer) Average() float64 {
	if len(s.scores) == 0 {
		return 0
	}
	var sum float64
	for _, q := range s.scores {
		sum += q.Score
	}
	return sum / float64(len(s.scores))
}

// CategoryScores returns the mean score per non-empty category.
func (s *Scorer) CategoryScores() map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, id := range s.order {
		q := s.scores[id]
		if q.Category == "" {
			continue
		}
		sums[q.Category] += q.Score
		counts[q.Category]++
	}
	out := make(map[string]float64, len(sums))
	for cat, sum := range sums {
		out[cat] = sum / float64(counts[cat])
	}
	return out
}

// WeakAreas returns the questions scored below the threshold, in ask order.
func (s *Scorer) WeakAreas(threshold float64) []QuestionScore {
	var out []QuestionScore
	for _, id := range s.order {
		if q := s.scores[id]; q.Score < threshold {
			out = append(out, *q)
		}
	}
	return out
}

// StrongAreas returns the questions scored at or above the threshold, in ask
// order.
func (s *Scorer) StrongAreas(threshold float64) []QuestionScore {
	var out []QuestionScore
	for _, id := range s.order {
		if q := s.scores[id]; q.Score >= threshold {
			out = append(out, *q)
		}
	}
	return out
}

// Contradictions returns the questions flagged as contradicted, in ask order.
func (s *Scorer) Contradictions() []QuestionScore {
	var out []QuestionScore
	for _, id := range s.order {
		if q := s.scores[id]; q.Contradiction {
			out = append(out, *q)
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GenerateReport produces the end-of-interview summary. Averages are rounded
// to two decimals.
func (s *Scorer) GenerateReport() Report {
	avg := s.Average()
	readiness := "Needs Significant Preparation"
	switch {
	case avg >= 0.7:
		readiness = "Well Prepared"
	case avg >= 0.5:
		readiness = "Needs Improvement"
	}

	cats := s.CategoryScores()
	for cat, v := range cats {
		cats[cat] = round2(v)
	}

	return Report{
		AverageScore:   round2(avg),
		TotalQuestions: len(s.scores),
		Readiness:      readiness,
		CategoryScores: cats,
		WeakAreas:      s.WeakAreas(0.5),
		Contradictions: s.Contradictions(),
	}
}
