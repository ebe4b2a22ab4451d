// Package interview implements the deterministic interview flow: the state
// machine that sequences interview phases, the language controller for
// temporary Hindi explanations, answer scoring, contradiction tracking and
// the turn pipeline that ties them together. No model output ever decides a
// state transition; all transitions are rule based.
package interview

import (
	"errors"
	"fmt"
)

// State identifies a phase of the interview.
type State string

const (
	StateGreeting        State = "greeting"
	StateAcademics       State = "academics"
	StateCourseChoice    State = "course_choice"
	StateFinance         State = "finance"
	StateIntent          State = "intent"
	StateCountrySpecific State = "country_specific"
	StateSummary         State = "summary"
	StateEnded           State = "ended"
)

// transitions maps each state to its successor. StateEnded has no entry.
var transitions = map[State]State{
	StateGreeting:        StateAcademics,
	StateAcademics:       StateCourseChoice,
	StateCourseChoice:    StateFinance,
	StateFinance:         StateIntent,
	StateIntent:          StateCountrySpecific,
	StateCountrySpecific: StateSummary,
	StateSummary:         StateEnded,
}

// stateCategories maps each state to the question-bank category used when
// selecting questions for that phase.
var stateCategories = map[State]string{
	StateGreeting:        "background",
	StateAcademics:       "academics",
	StateCourseChoice:    "course_choice",
	StateFinance:         "finance",
	StateIntent:          "intent",
	StateCountrySpecific: "country_specific",
	StateSummary:         "background",
}

const (
	// MaxRetriesPerQuestion bounds how often a question is re-asked before
	// the interview moves on.
	MaxRetriesPerQuestion = 2

	// MaxQuestionsPerState bounds how many questions are asked in one phase
	// before the machine advances.
	MaxQuestionsPerState = 4
)

// ErrInvalidTransition is returned when a requested state change is not a
// forward transition.
var ErrInvalidTransition = errors.New("invalid state transition")

// StateMachine sequences the interview phases and tracks per-phase and
// overall question bookkeeping. It is not safe for concurrent use; callers
// serialize access per session.
type StateMachine struct {
	destination string
	origin      string

	current           State
	questionsInState  int
	retriesOnQuestion int
	currentQuestionID int // 0 = none
	answers           map[int]string
	scores            map[int]float64
	history           []State
	totalQuestions    int
}

// NewStateMachine creates a machine in StateGreeting for the given
// destination and origin countries.
func NewStateMachine(destination, origin string) *StateMachine {
	return &StateMachine{
		destination: destination,
		origin:      origin,
		current:     StateGreeting,
		answers:     make(map[int]string),
		scores:      make(map[int]float64),
	}
}

// Current returns the current interview state.
func (m *StateMachine) Current() State { return m.current }

// Destination returns the destination country code.
func (m *StateMachine) Destination() string { return m.destination }

// Origin returns the origin country.
func (m *StateMachine) Origin() string { return m.origin }

// Ended reports whether the interview has reached its terminal state.
func (m *StateMachine) Ended() bool { return m.current == StateEnded }

// CanAdvance reports whether a forward transition exists from the current
// state.
func (m *StateMachine) CanAdvance() bool {
	_, ok := transitions[m.current]
	return ok
}

// Advance moves to the next state and resets the per-state counters.
func (m *StateMachine) Advance() (State, error) {
	next, ok := transitions[m.current]
	if !ok {
		return m.current, fmt.Errorf("advance from %s: %w", m.current, ErrInvalidTransition)
	}
	m.history = append(m.history, m.current)
	m.current = next
	m.resetStateCounters()
	return next, nil
}

// GoTo jumps to a later state. Jumping to the current state is a no-op;
// anything not forward-reachable returns ErrInvalidTransition.
func (m *StateMachine) GoTo(target State) error {
	if target == m.current {
		return nil
	}
	for reachable := m.current; ; {
		next, ok := transitions[reachable]
		if !ok {
			return fmt.Errorf("jump from %s to %s: %w", m.current, target, ErrInvalidTransition)
		}
		if next == target {
			m.history = append(m.history, m.current)
			m.current = target
			m.resetStateCounters()
			return nil
		}
		reachable = next
	}
}

// RecordQuestion notes that the question with the given ID was asked.
func (m *StateMachine) RecordQuestion(questionID int) {
	m.currentQuestionID = questionID
	m.questionsInState++
	m.totalQuestions++
	m.retriesOnQuestion = 0
}

// RecordAnswer stores the answer text and score for a question.
func (m *StateMachine) RecordAnswer(questionID int, answer string, score float64) {
	m.answers[questionID] = answer
	m.scores[questionID] = score
}

// RecordRetry counts a retry on the current question. It returns false once
// the retry budget is exhausted and the interview should move on.
func (m *StateMachine) RecordRetry() bool {
	m.retriesOnQuestion++
	return m.retriesOnQuestion <= MaxRetriesPerQuestion
}

// ShouldAdvance reports whether enough questions were asked in the current
// phase to move on.
func (m *StateMachine) ShouldAdvance() bool {
	return m.questionsInState >= MaxQuestionsPerState
}

// Category returns the question-bank category for the current state.
func (m *StateMachine) Category() string {
	if c, ok := stateCategories[m.current]; ok {
		return c
	}
	return "background"
}

// CategoryForState returns the question-bank category for an arbitrary state.
func CategoryForState(s State) string {
	if c, ok := stateCategories[s]; ok {
		return c
	}
	return "background"
}

// CurrentQuestionID returns the ID of the question currently on the table,
// or 0 when none has been asked in this phase yet.
func (m *StateMachine) CurrentQuestionID() int { return m.currentQuestionID }

// TotalQuestions returns how many questions were asked over the whole
// interview so far.
func (m *StateMachine) TotalQuestions() int { return m.totalQuestions }

// QuestionsInState returns how many questions were asked in the current phase.
func (m *StateMachine) QuestionsInState() int { return m.questionsInState }

// Scores returns the recorded per-question scores. The returned map is the
// machine's own; callers must not mutate it.
func (m *StateMachine) Scores() map[int]float64 { return m.scores }

// Answers returns the recorded per-question answers. The returned map is the
// machine's own; callers must not mutate it.
func (m *StateMachine) Answers() map[int]string { return m.answers }

// History returns the states already completed, in order.
func (m *StateMachine) History() []State { return m.history }

func (m *StateMachine) resetStateCounters() {
	m.questionsInState = 0
	m.retriesOnQuestion = 0
	m.currentQuestionID = 0
}
