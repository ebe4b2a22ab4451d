package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/visawire/visawire/internal/health"
	"github.com/visawire/visawire/internal/observe"
	"github.com/visawire/visawire/internal/protocol"
	"github.com/visawire/visawire/internal/questionbank"
	"github.com/visawire/visawire/internal/session"
)

type sessionStartRequest struct {
	DestinationCountry string `json:"destination_country"`
	OriginCountry      string `json:"origin_country"`
}

type messageRequest struct {
	Role     string `json:"role"`
	Text     string `json:"text"`
	Language string `json:"language"`
}

type answerRequest struct {
	QuestionID int    `json:"question_id"`
	Answer     string `json:"answer"`
	Category   string `json:"category"`
}

type chatRequest struct {
	Text string `json:"text"`
}

// sessionView is the JSON shape of GET /api/session/{id}.
type sessionView struct {
	SessionID          string  `json:"session_id"`
	DestinationCountry string  `json:"destination_country"`
	OriginCountry      string  `json:"origin_country"`
	DurationMinutes    float64 `json:"duration_minutes"`
	CurrentState       string  `json:"current_state"`
	IsActive           bool    `json:"is_active"`
	TotalQuestions     int     `json:"total_questions"`
	TranscriptLength   int     `json:"transcript_length"`
}

// Handler returns the full HTTP API with request metrics and logging applied.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/session/start", a.handleSessionStart)
	mux.HandleFunc("GET /api/session/{id}", a.handleSessionGet)
	mux.HandleFunc("POST /api/session/{id}/message", a.handleSessionMessage)
	mux.HandleFunc("POST /api/session/{id}/answer", a.handleSessionAnswer)
	mux.HandleFunc("POST /api/session/{id}/chat", a.handleSessionChat)
	mux.HandleFunc("POST /api/session/{id}/advance", a.handleSessionAdvance)
	mux.HandleFunc("POST /api/session/{id}/end", a.handleSessionEnd)
	mux.HandleFunc("GET /api/session/{id}/question", a.handleNextQuestion)
	mux.HandleFunc("GET /api/session/{id}/audit", a.handleSessionAudit)
	mux.HandleFunc("GET /api/questions/{country}", a.handleQuestions)
	mux.HandleFunc("GET /api/destinations", a.handleDestinations)
	mux.HandleFunc("GET /api/risk/{country}", a.handleRisk)
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws/audio/{id}", a.handleAudioWS)

	a.probes().Register(mux)

	return observe.Middleware(a.metrics)(mux)
}

// probes builds the liveness and readiness handler. The question bank is
// probed with a destination listing; LLM and TTS use their Healthy checks.
// Redis is only checked when the audit config names one.
func (a *App) probes() *health.Handler {
	checkers := []health.Checker{
		{Name: "questions", Check: func(ctx context.Context) error {
			_, err := a.questions.Destinations(ctx)
			return err
		}},
		{Name: "llm", Check: a.providers.LLM.Healthy},
		{Name: "tts", Check: a.providers.TTS.Healthy},
	}
	if a.cfg.Audit.RedisAddr != "" {
		checkers = append(checkers, health.Checker{Name: "redis", Check: func(context.Context) error {
			if !a.audit.RedisAvailable() {
				return errors.New("audit redis unreachable")
			}
			return nil
		}})
	}
	return health.New(checkers...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// lookupSession resolves the {id} path segment; a nil return means the 404
// was already written.
func (a *App) lookupSession(w http.ResponseWriter, r *http.Request) *session.Session {
	s, err := a.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil
	}
	return s
}

func (a *App) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DestinationCountry == "" {
		req.DestinationCountry = a.cfg.Interview.DefaultDestination
	}
	if req.OriginCountry == "" {
		req.OriginCountry = a.cfg.Interview.DefaultOrigin
	}
	if err := questionbank.ValidateCountry(req.DestinationCountry); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s := a.sessions.Create(req.DestinationCountry, req.OriginCountry)
	if a.metrics != nil {
		a.metrics.SessionStarted(r.Context())
	}
	a.logger.Info("session started",
		"session_id", s.ID, "destination", req.DestinationCountry, "origin", req.OriginCountry)

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id":          s.ID,
		"destination_country": req.DestinationCountry,
		"current_state":       string(s.Machine.Current()),
	})
}

func (a *App) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	s := a.lookupSession(w, r)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, sessionView{
		SessionID:          s.ID,
		DestinationCountry: s.Machine.Destination(),
		OriginCountry:      s.Machine.Origin(),
		DurationMinutes:    time.Since(s.CreatedAt).Minutes(),
		CurrentState:       string(s.Machine.Current()),
		IsActive:           !s.Ended(),
		TotalQuestions:     s.Machine.TotalQuestions(),
		TranscriptLength:   len(s.Transcript()),
	})
}

func (a *App) handleSessionMessage(w http.ResponseWriter, r *http.Request) {
	s := a.lookupSession(w, r)
	if s == nil {
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.Append(req.Role, req.Text)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleSessionAnswer(w http.ResponseWriter, r *http.Request) {
	s := a.lookupSession(w, r)
	if s == nil {
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.TurnMu.Lock()
	result := a.pipe.ProcessAnswer(r.Context(), s, req.QuestionID, req.Category, req.Answer)
	s.TurnMu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

func (a *App) handleSessionChat(w http.ResponseWriter, r *http.Request) {
	s := a.lookupSession(w, r)
	if s == nil {
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "Empty message")
		return
	}

	s.TurnMu.Lock()
	result := a.pipe.ProcessTurn(r.Context(), s, text)
	s.TurnMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"response":         result.ResponseText,
		"current_state":    string(result.State),
		"explanation_mode": result.ExplanationMode,
		"score":            result.Score,
	})
}

func (a *App) handleSessionAdvance(w http.ResponseWriter, r *http.Request) {
	s := a.lookupSession(w, r)
	if s == nil {
		return
	}
	s.TurnMu.Lock()
	defer s.TurnMu.Unlock()
	if !s.Machine.CanAdvance() {
		writeError(w, http.StatusBadRequest, "Cannot advance: interview ended")
		return
	}
	next, err := s.Machine.Advance()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"new_state": string(next)})
}

func (a *App) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	report, err := a.sessions.End(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if a.metrics != nil {
		a.metrics.SessionEnded(r.Context())
	}
	a.audit.Log(r.Context(), id, "session_end", map[string]any{
		"report_summary": map[string]any{
			"average_score": report.AverageScore,
			"readiness":     report.Readiness,
		},
	})
	writeJSON(w, http.StatusOK, report)
}

// handleNextQuestion picks the next question for the session's current phase
// via the adaptive ranker and marks it as asked.
func (a *App) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	s := a.lookupSession(w, r)
	if s == nil {
		return
	}

	s.TurnMu.Lock()
	defer s.TurnMu.Unlock()

	asked := make(map[int]bool, len(s.Machine.Answers())+1)
	for id := range s.Machine.Answers() {
		asked[id] = true
	}
	if id := s.Machine.CurrentQuestionID(); id != 0 {
		asked[id] = true
	}
	q, err := a.ranker.NextQuestion(r.Context(),
		s.Machine.Destination(), s.Machine.Category(), s.Machine.Scores(), asked, s.Machine.Origin())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if q == nil {
		writeJSON(w, http.StatusOK, map[string]any{"question": nil})
		return
	}
	s.Machine.RecordQuestion(q.ID)
	writeJSON(w, http.StatusOK, map[string]any{"question": q})
}

func (a *App) handleSessionAudit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	events, err := a.audit.Events(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (a *App) handleQuestions(w http.ResponseWriter, r *http.Request) {
	country := r.PathValue("country")
	filter := questionbank.Filter{Category: r.URL.Query().Get("category")}
	if d := r.URL.Query().Get("difficulty"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "difficulty must be an integer")
			return
		}
		filter.Difficulty = n
	}
	if err := questionbank.ValidateCountry(country); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := questionbank.ValidateFilter(filter); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	questions, err := a.questions.Questions(r.Context(), country, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions, "count": len(questions)})
}

func (a *App) handleDestinations(w http.ResponseWriter, r *http.Request) {
	destinations, err := a.questions.Destinations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"destinations": destinations})
}

func (a *App) handleRisk(w http.ResponseWriter, r *http.Request) {
	country := r.PathValue("country")
	if err := questionbank.ValidateCountry(country); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	risks, err := a.questions.RiskFactors(r.Context(), country, r.URL.Query().Get("origin"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"risks": risks, "count": len(risks)})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	llmAvailable := false
	if a.providers.LLM != nil {
		llmAvailable = a.providers.LLM.Healthy(r.Context()) == nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": a.sessions.Len(),
		"redis_available": a.audit.RedisAvailable(),
		"llm_available":   llmAvailable,
	})
}

// handleAudioWS upgrades to a WebSocket and runs the conversation protocol
// until the client hangs up.
func (a *App) handleAudioWS(w http.ResponseWriter, r *http.Request) {
	s, err := a.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		a.logger.Warn("websocket accept failed", "session_id", s.ID, "error", err)
		return
	}

	conv := protocol.NewConversation(
		protocol.NewConn(wsConn), s, a.pipe,
		a.providers.NewRecognizer(), a.providers.TTS,
		protocol.WithMetrics(a.metrics),
		protocol.WithLogger(a.logger),
	)
	conv.Run(r.Context())
}
