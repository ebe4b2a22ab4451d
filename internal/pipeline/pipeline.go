// Package pipeline runs one interview turn end to end: language control,
// prompt assembly, the LLM call, response validation, scoring and state
// advancement. Both the HTTP chat endpoint and the audio WebSocket handler
// drive their turns through this package so their behavior cannot drift.
package pipeline

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/visawire/visawire/internal/audit"
	"github.com/visawire/visawire/internal/interview"
	"github.com/visawire/visawire/internal/observe"
	"github.com/visawire/visawire/internal/session"
	"github.com/visawire/visawire/internal/validator"
	"github.com/visawire/visawire/pkg/provider/llm"
	"github.com/visawire/visawire/pkg/provider/llm/canned"
)

// historyWindow bounds how many transcript entries are replayed to the model.
const historyWindow = 10

// Result is the outcome of one chat turn.
type Result struct {
	ResponseText    string             `json:"response"`
	State           interview.State    `json:"current_state"`
	ExplanationMode bool               `json:"explanation_mode"`
	Score           float64            `json:"score"`
	OutputLanguage  interview.Language `json:"output_language"`
}

// AnswerResult is the outcome of scoring one structured answer.
type AnswerResult struct {
	Score           float64                  `json:"score"`
	LanguageAction  interview.LanguageAction `json:"language_action"`
	ExplanationMode bool                     `json:"explanation_mode"`
	Contradictions  int                      `json:"contradictions"`
	ShouldAdvance   bool                     `json:"should_advance"`
}

// Pipeline ties the per-turn stages together. Safe for concurrent use across
// sessions; per-session ordering is the caller's job via Session.TurnMu.
type Pipeline struct {
	llm     llm.Provider
	audit   *audit.Logger
	metrics *observe.Metrics
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithAudit sets the audit logger. Without it turns are not audited.
func WithAudit(a *audit.Logger) Option {
	return func(p *Pipeline) { p.audit = a }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates a turn pipeline backed by the given model provider.
func New(provider llm.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		llm:    provider,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessTurn runs one user turn. It never fails: an unreachable model or a
// blocked response degrades to a safe canned line and the turn completes.
func (p *Pipeline) ProcessTurn(ctx context.Context, s *session.Session, userText string) Result {
	start := time.Now()

	s.Append("student", userText)

	questionID := s.Machine.TotalQuestions() + 1
	decision := s.Language.Observe(userText, questionID)
	p.recordLanguageAction(ctx, s, decision.Action, questionID)

	// Replay the recent transcript, excluding the entry just appended.
	history := make([]llm.Message, 0, historyWindow)
	for _, entry := range s.RecentTranscript(historyWindow, 1) {
		role := "user"
		if entry.Role == "agent" {
			role = "assistant"
		}
		history = append(history, llm.Message{Role: role, Content: entry.Text})
	}

	state := s.Machine.Current()
	req := llm.Request{
		SystemPrompt: BuildSystemPrompt(state, s.Machine.Destination(), decision.ExplanationMode),
		Messages:     append(history, llm.Message{Role: "user", Content: userText}),
	}

	responseText, err := p.llm.Complete(ctx, req)
	if err != nil {
		p.logger.Warn("pipeline: llm call failed", "session_id", s.ID, "error", err)
		responseText = canned.DefaultLine
	}
	if p.metrics != nil {
		p.metrics.RecordLLM(ctx, time.Since(start))
	}

	if v := validator.Validate(responseText); !v.Valid {
		p.logger.Info("pipeline: response blocked",
			"session_id", s.ID, "category", v.BlockedCategory, "reason", v.Reason)
		responseText = validator.SafeFallback(v.BlockedCategory)
	}

	s.Append("agent", responseText)

	score := answerScore(userText)
	category := s.Machine.Category()
	s.Scorer.RecordScore(questionID, score, category, "", 0)
	s.Machine.RecordQuestion(questionID)
	s.Machine.RecordAnswer(questionID, userText, score)

	if p.audit != nil {
		p.audit.LogAnswer(ctx, s.ID, questionID, userText, score, category)
	}

	if s.Machine.ShouldAdvance() && s.Machine.CanAdvance() {
		if next, err := s.Machine.Advance(); err == nil {
			state = next
		}
	}

	if p.metrics != nil {
		p.metrics.RecordTurn(ctx, string(state), "text", time.Since(start))
	}

	return Result{
		ResponseText:    responseText,
		State:           state,
		ExplanationMode: decision.ExplanationMode,
		Score:           round2(score),
		OutputLanguage:  decision.OutputLanguage,
	}
}

// ProcessAnswer scores one structured answer against a known question:
// language check, contradiction tracking, the length heuristic with a
// contradiction penalty, and bookkeeping on the scorer and state machine.
func (p *Pipeline) ProcessAnswer(ctx context.Context, s *session.Session, questionID int, category, answer string) AnswerResult {
	decision := s.Language.Observe(answer, questionID)
	p.recordLanguageAction(ctx, s, decision.Action, questionID)

	contradictions := s.Tracker.Track(questionID, category, answer)

	score := answerScore(answer)
	s.Scorer.RecordScore(questionID, score, category, "", 0)
	if len(contradictions) > 0 {
		// MarkContradiction applies the 0.2 penalty on the recorded entry.
		s.Scorer.MarkContradiction(questionID)
		score = math.Max(0.1, score-0.2)
		if p.metrics != nil {
			p.metrics.RecordContradiction(ctx, len(contradictions))
		}
		if p.audit != nil {
			for _, c := range contradictions {
				p.audit.LogContradiction(ctx, s.ID, questionID, c.Reason)
			}
		}
	}

	s.Machine.RecordQuestion(questionID)
	s.Machine.RecordAnswer(questionID, answer, score)

	if p.audit != nil {
		p.audit.LogAnswer(ctx, s.ID, questionID, answer, score, category)
	}

	return AnswerResult{
		Score:           round2(score),
		LanguageAction:  decision.Action,
		ExplanationMode: decision.ExplanationMode,
		Contradictions:  len(contradictions),
		ShouldAdvance:   s.Machine.ShouldAdvance(),
	}
}

func (p *Pipeline) recordLanguageAction(ctx context.Context, s *session.Session, action interview.LanguageAction, questionID int) {
	var direction string
	switch action {
	case interview.ActionSwitchToHindi:
		direction = "to_hindi"
	case interview.ActionRevertEnglish:
		direction = "to_english"
	default:
		return
	}
	if p.metrics != nil {
		p.metrics.RecordLanguageSwitch(ctx, direction)
	}
	if p.audit != nil {
		p.audit.LogLanguageSwitch(ctx, s.ID, direction, questionID)
	}
}

// answerScore is the length heuristic: twenty words or more earn the full
// score, with a floor of 0.3 so any attempt counts.
func answerScore(text string) float64 {
	words := len(strings.Fields(text))
	return math.Min(1.0, float64(words)/20.0)*0.7 + 0.3
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
