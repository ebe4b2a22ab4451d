// Package protocol implements the bidirectional audio WebSocket protocol.
//
// Client frames are either JSON control messages (speech_start, speech_end,
// text_input, end_session) or raw PCM16 mono 16 kHz audio. Server frames are
// JSON status and transcript messages plus PCM16 mono 24 kHz audio chunks.
//
// The connection moves through idle -> listening -> processing -> speaking
// and back to idle. A speech_start received while speaking or processing is
// a barge-in: the audio stream is cut off, a response still being generated
// is dropped when it arrives, and the recognizer starts a fresh utterance.
package protocol

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/visawire/visawire/internal/observe"
	"github.com/visawire/visawire/internal/pipeline"
	"github.com/visawire/visawire/internal/session"
	"github.com/visawire/visawire/pkg/audio"
	"github.com/visawire/visawire/pkg/provider/asr"
	"github.com/visawire/visawire/pkg/provider/tts"
)

// ConnState is the connection's position in the conversation loop.
type ConnState string

const (
	StateIdle       ConnState = "idle"
	StateListening  ConnState = "listening"
	StateProcessing ConnState = "processing"
	StateSpeaking   ConnState = "speaking"
)

const (
	// keepaliveInterval paces "still working" status messages so the browser
	// does not close an idle socket during slow synthesis or generation.
	keepaliveInterval = 5 * time.Second

	// chunkSamples is the playback chunk size: 200 ms at 24 kHz.
	chunkSamples = 4800

	// chunkPause spaces chunk sends to roughly real time.
	chunkPause = 10 * time.Millisecond

	// minTranscriptWords filters out noise like "mm-hmm".
	minTranscriptWords = 2
)

// Conversation drives one WebSocket connection for one session.
type Conversation struct {
	conn    Conn
	sess    *session.Session
	pipe    *pipeline.Pipeline
	rec     asr.Recognizer
	tts     tts.Synthesizer
	metrics *observe.Metrics
	logger  *slog.Logger

	mu          sync.Mutex
	state       ConnState
	asrReady    bool
	cancelSpeak context.CancelFunc
	turnGen     uint64

	// recMu serializes recognizer access. Finalize runs off the receive
	// loop; Feed and Reset skip their work rather than block behind a
	// finalize that is still draining.
	recMu sync.Mutex

	turnWG sync.WaitGroup
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithMetrics sets the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Conversation) { c.metrics = m }
}

// WithLogger sets the slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conversation) { c.logger = logger }
}

// NewConversation wires a connection to its session and providers.
func NewConversation(conn Conn, sess *session.Session, pipe *pipeline.Pipeline, rec asr.Recognizer, synth tts.Synthesizer, opts ...Option) *Conversation {
	c := &Conversation{
		conn:   conn,
		sess:   sess,
		pipe:   pipe,
		rec:    rec,
		tts:    synth,
		state:  StateIdle,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Conversation) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conversation) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run executes the conversation loop until the client disconnects, asks to
// end the session, or ctx is canceled. The connection is closed on return.
func (c *Conversation) Run(ctx context.Context) {
	defer c.conn.Close()

	c.sendJSON(ctx, ServerMessage{
		Type:    TypeStateChange,
		State:   string(c.sess.Machine.Current()),
		Message: "Interview session started. Please introduce yourself.",
	})

	initCtx, cancelInit := context.WithCancel(ctx)
	defer cancelInit()
	go c.initRecognizer(initCtx)

	for {
		frame, err := c.conn.Receive(ctx)
		if err != nil {
			c.logger.Info("protocol: connection closed", "session_id", c.sess.ID, "error", err)
			break
		}
		if frame.Binary {
			c.handleAudio(ctx, frame.Data)
			continue
		}
		var msg ClientMessage
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			c.logger.Warn("protocol: bad control message", "session_id", c.sess.ID, "error", err)
			continue
		}
		if done := c.handleControl(ctx, msg); done {
			break
		}
	}

	c.bargeIn()
	c.turnWG.Wait()
}

// initRecognizer warms up the ASR model in the background and reports the
// outcome so the client can fall back to typed input.
func (c *Conversation) initRecognizer(ctx context.Context) {
	if err := c.rec.Initialize(ctx); err != nil {
		c.logger.Warn("protocol: asr init failed", "session_id", c.sess.ID, "error", err)
		c.sendJSON(ctx, ServerMessage{
			Type:    TypeASRStatus,
			Ready:   boolPtr(false),
			Message: "Voice recognition unavailable — type your answers below",
		})
		return
	}
	c.mu.Lock()
	c.asrReady = true
	c.mu.Unlock()
	c.sendJSON(ctx, ServerMessage{
		Type:    TypeASRStatus,
		Ready:   boolPtr(true),
		Message: "Voice recognition ready",
	})
}

func (c *Conversation) recognizerReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asrReady
}

// handleAudio feeds one microphone frame to the recognizer. Frames outside
// the listening state are dropped.
func (c *Conversation) handleAudio(ctx context.Context, pcm []byte) {
	if c.State() != StateListening || !c.recognizerReady() {
		return
	}
	if !c.recMu.TryLock() {
		return
	}
	segment, err := c.rec.Feed(ctx, pcm)
	c.recMu.Unlock()
	if err != nil {
		c.logger.Warn("protocol: asr feed", "session_id", c.sess.ID, "error", err)
		return
	}
	if segment != nil && segment.Text != "" {
		c.sendJSON(ctx, ServerMessage{
			Type:      TypeTranscriptPartial,
			Text:      segment.Text,
			IsPartial: true,
		})
	}
}

// handleControl dispatches one JSON control message. It returns true when
// the connection should shut down.
func (c *Conversation) handleControl(ctx context.Context, msg ClientMessage) bool {
	switch msg.Type {
	case TypeSpeechStart:
		c.bargeIn()
		c.setState(StateListening)
		if c.recognizerReady() && c.recMu.TryLock() {
			c.rec.Reset()
			c.recMu.Unlock()
		}

	case TypeSpeechEnd:
		if c.State() != StateListening {
			return false
		}
		if !c.recognizerReady() {
			c.sendJSON(ctx, ServerMessage{
				Type:    TypeError,
				Message: "Voice recognition not available. Please type your answer below.",
			})
			c.setState(StateIdle)
			return false
		}
		// Finalize decodes the buffered utterance and can take a while;
		// it runs off the receive loop so a barge-in is never stuck
		// behind it.
		gen := c.beginTurn()
		c.turnWG.Add(1)
		go func() {
			defer c.turnWG.Done()
			c.finalizeTurn(ctx, gen)
		}()

	case TypeTextInput:
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return false
		}
		if s := c.State(); s == StateProcessing || s == StateSpeaking {
			c.sendJSON(ctx, ServerMessage{
				Type:    TypeError,
				Message: "Please wait for the officer to finish before answering again.",
			})
			return false
		}
		lang := msg.Language
		if lang == "" {
			lang = "en"
		}
		c.startTurn(ctx, text, lang)

	case TypeEndSession:
		return true
	}
	return false
}

// bargeIn cancels in-flight speech playback and invalidates any turn that
// is still processing. The turn's pipeline call runs to completion, but its
// result arrives with a stale generation and is dropped unheard.
func (c *Conversation) bargeIn() {
	c.mu.Lock()
	c.turnGen++
	cancel := c.cancelSpeak
	c.cancelSpeak = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// beginTurn moves the connection to processing and stamps the turn with a
// fresh generation. The stamp decides later whether the turn's output may
// still reach the client.
func (c *Conversation) beginTurn() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateProcessing
	c.turnGen++
	return c.turnGen
}

// turnLive reports whether the turn stamped gen is still the one the client
// is waiting on. A barge-in or a newer turn makes it stale.
func (c *Conversation) turnLive(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turnGen == gen && c.state == StateProcessing
}

// settle moves a still-live turn to state s. A stale turn leaves the state
// alone: the barge-in that invalidated it already owns the state.
func (c *Conversation) settle(gen uint64, s ConnState) {
	c.mu.Lock()
	if c.turnGen == gen && c.state == StateProcessing {
		c.state = s
	}
	c.mu.Unlock()
}

// startTurn runs one full turn (pipeline plus speech) in the background so
// the receive loop stays responsive for barge-in.
func (c *Conversation) startTurn(ctx context.Context, text, language string) {
	gen := c.beginTurn()
	c.turnWG.Add(1)
	go func() {
		defer c.turnWG.Done()
		c.runTurn(ctx, gen, text, language)
	}()
}

// finalizeTurn drains the recognizer and, if the utterance holds up, runs
// the turn. A barge-in while finalize is in flight makes the turn stale and
// everything from it is discarded.
func (c *Conversation) finalizeTurn(ctx context.Context, gen uint64) {
	c.recMu.Lock()
	transcript, err := c.rec.Finalize(ctx)
	c.recMu.Unlock()

	if !c.turnLive(gen) {
		return
	}
	if err != nil {
		c.logger.Warn("protocol: asr finalize", "session_id", c.sess.ID, "error", err)
		c.settle(gen, StateIdle)
		return
	}
	transcript = strings.TrimSpace(transcript)
	if len(strings.Fields(transcript)) < minTranscriptWords {
		c.settle(gen, StateIdle)
		if transcript != "" {
			c.sendJSON(ctx, ServerMessage{
				Type:    TypeError,
				Message: `Too short: "` + transcript + `" — please say more.`,
			})
		} else {
			c.sendJSON(ctx, ServerMessage{
				Type:    TypeError,
				Message: "Could not hear you. Please try again or type your answer.",
			})
		}
		return
	}
	c.runTurn(ctx, gen, transcript, asr.DetectLanguage(transcript))
}

func (c *Conversation) runTurn(ctx context.Context, gen uint64, text, language string) {
	c.sendJSON(ctx, ServerMessage{
		Type:     TypeTranscriptFinal,
		Text:     text,
		Language: language,
	})
	c.sendJSON(ctx, ServerMessage{Type: TypeAgentThinking})

	previous := c.sess.Machine.Current()

	results := make(chan pipeline.Result, 1)
	go func() {
		c.sess.TurnMu.Lock()
		defer c.sess.TurnMu.Unlock()
		results <- c.pipe.ProcessTurn(ctx, c.sess, text)
	}()

	var result pipeline.Result
	ticker := time.NewTicker(keepaliveInterval)
wait:
	for {
		select {
		case result = <-results:
			break wait
		case <-ticker.C:
			c.sendJSON(ctx, ServerMessage{Type: TypeStatus, Message: "Officer is thinking..."})
		case <-ctx.Done():
			ticker.Stop()
			return
		}
	}
	ticker.Stop()

	// A barge-in during processing supersedes this turn. The session has
	// already absorbed the answer; the response itself is dropped so no
	// stale text or audio lands on top of the user's next utterance.
	if !c.turnLive(gen) {
		c.logger.Debug("protocol: turn superseded, result dropped", "session_id", c.sess.ID)
		return
	}

	c.sendJSON(ctx, ServerMessage{
		Type:            TypeAgentResponse,
		Text:            result.ResponseText,
		State:           string(result.State),
		Score:           floatPtr(result.Score),
		ExplanationMode: boolPtr(result.ExplanationMode),
	})
	if result.State != previous {
		c.sendJSON(ctx, ServerMessage{Type: TypeStateChange, State: string(result.State)})
	}

	c.speak(ctx, gen, result.ResponseText, string(result.OutputLanguage))

	if result.State == "ended" {
		c.sendJSON(ctx, ServerMessage{
			Type:    TypeStateChange,
			State:   "ended",
			Message: "Interview complete.",
		})
	}
}

// speak synthesizes the response and streams it in playback-paced chunks.
// A turn superseded between the response message and here sends nothing.
// Once tts_start goes out, tts_end always follows, even after a failure or
// barge-in, so the client can rely on it to re-enable the microphone.
func (c *Conversation) speak(ctx context.Context, gen uint64, text, language string) {
	speakCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.turnGen != gen || c.state != StateProcessing {
		c.mu.Unlock()
		return
	}
	c.state = StateSpeaking
	c.cancelSpeak = cancel
	c.mu.Unlock()

	c.sendJSON(ctx, ServerMessage{Type: TypeTTSStart})
	start := time.Now()

	type synthResult struct {
		pcm []byte
		err error
	}
	results := make(chan synthResult, 1)
	go func() {
		pcm, err := c.tts.Synthesize(speakCtx, text, language)
		results <- synthResult{pcm: pcm, err: err}
	}()

	var synth synthResult
	ticker := time.NewTicker(keepaliveInterval)
wait:
	for {
		select {
		case synth = <-results:
			break wait
		case <-ticker.C:
			c.sendJSON(ctx, ServerMessage{Type: TypeStatus, Message: "Generating speech..."})
		case <-speakCtx.Done():
			ticker.Stop()
			c.finishSpeaking(ctx, false)
			return
		}
	}
	ticker.Stop()

	if synth.err != nil {
		c.logger.Error("protocol: tts failed", "session_id", c.sess.ID, "error", synth.err)
		c.sendJSON(ctx, ServerMessage{Type: TypeError, Message: "TTS failed: " + synth.err.Error()})
		c.finishSpeaking(ctx, true)
		return
	}
	if c.metrics != nil {
		c.metrics.RecordTTS(ctx, time.Since(start))
	}

	interrupted := false
	for _, chunk := range audio.Chunk(synth.pcm, chunkSamples) {
		if speakCtx.Err() != nil {
			interrupted = true
			break
		}
		if err := c.conn.SendBinary(ctx, chunk); err != nil {
			c.logger.Warn("protocol: send audio chunk", "session_id", c.sess.ID, "error", err)
			break
		}
		time.Sleep(chunkPause)
	}
	c.finishSpeaking(ctx, !interrupted)
}

// finishSpeaking sends tts_end and settles the connection state. After a
// barge-in the state was already moved to listening and is left alone.
func (c *Conversation) finishSpeaking(ctx context.Context, toIdle bool) {
	c.sendJSON(ctx, ServerMessage{Type: TypeTTSEnd})
	c.mu.Lock()
	c.cancelSpeak = nil
	if toIdle && c.state == StateSpeaking {
		c.state = StateIdle
	}
	c.mu.Unlock()
}

// sendJSON delivers one server message. A failed send means the socket is
// no longer usable, so the connection is closed and the receive loop ends
// instead of running further turns for nobody.
func (c *Conversation) sendJSON(ctx context.Context, msg ServerMessage) {
	if err := c.conn.SendJSON(ctx, msg); err != nil {
		c.logger.Warn("protocol: send failed, closing connection", "session_id", c.sess.ID, "type", msg.Type, "error", err)
		_ = c.conn.Close()
	}
}
