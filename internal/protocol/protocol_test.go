package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/visawire/visawire/internal/pipeline"
	"github.com/visawire/visawire/internal/session"
	"github.com/visawire/visawire/pkg/provider/asr"
	asrmock "github.com/visawire/visawire/pkg/provider/asr/mock"
	"github.com/visawire/visawire/pkg/provider/llm"
	llmmock "github.com/visawire/visawire/pkg/provider/llm/mock"
	ttsmock "github.com/visawire/visawire/pkg/provider/tts/mock"
)

// fakeConn is an in-memory Conn that replays scripted frames and records
// everything sent.
type fakeConn struct {
	mu      sync.Mutex
	frames  []Frame
	idx     int
	sent    []ServerMessage
	binary  [][]byte
	closed  bool
	sendErr error
}

func textFrame(msg ClientMessage) Frame {
	data, _ := json.Marshal(msg)
	return Frame{Data: data}
}

func (f *fakeConn) Receive(ctx context.Context) (Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.idx >= len(f.frames) {
		return Frame{}, io.EOF
	}
	fr := f.frames[f.idx]
	f.idx++
	return fr, nil
}

func (f *fakeConn) SendJSON(ctx context.Context, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	if f.closed {
		return errors.New("fake: closed")
	}
	f.sent = append(f.sent, v.(ServerMessage))
	return nil
}

func (f *fakeConn) SendBinary(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("fake: closed")
	}
	f.binary = append(f.binary, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) messages() []ServerMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ServerMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeConn) messageTypes() []string {
	var types []string
	for _, m := range f.messages() {
		types = append(types, m.Type)
	}
	return types
}

func (f *fakeConn) find(msgType string) *ServerMessage {
	for _, m := range f.messages() {
		if m.Type == msgType {
			return &m
		}
	}
	return nil
}

func (f *fakeConn) binaryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.binary)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// gateLLM blocks Complete until release is closed, so a test can hold a turn
// in the processing state and interleave control messages around it.
type gateLLM struct {
	entered chan struct{}
	release chan struct{}
}

func newGateLLM() *gateLLM {
	return &gateLLM{entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (g *gateLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	g.entered <- struct{}{}
	<-g.release
	return "And who is paying for your studies?", nil
}

func (g *gateLLM) Healthy(ctx context.Context) error { return nil }

// gatedFinalizeRecognizer blocks Finalize until release is closed.
type gatedFinalizeRecognizer struct {
	asrmock.Recognizer
	entered chan struct{}
	release chan struct{}
}

func (r *gatedFinalizeRecognizer) Finalize(ctx context.Context) (string, error) {
	r.entered <- struct{}{}
	<-r.release
	return r.Recognizer.Finalize(ctx)
}

func newTestConversation(conn Conn, rec asr.Recognizer) (*Conversation, *session.Session) {
	sess := session.New("US", "IN")
	pipe := pipeline.New(
		&llmmock.Provider{Responses: []string{"Tell me about your course."}},
		pipeline.WithLogger(slog.New(slog.DiscardHandler)),
	)
	c := NewConversation(conn, sess, pipe, rec, &ttsmock.Synthesizer{},
		WithLogger(slog.New(slog.DiscardHandler)))
	return c, sess
}

func newGatedConversation(conn Conn) (*Conversation, *session.Session, *gateLLM) {
	gate := newGateLLM()
	sess := session.New("US", "IN")
	pipe := pipeline.New(gate, pipeline.WithLogger(slog.New(slog.DiscardHandler)))
	c := NewConversation(conn, sess, pipe, &asrmock.Recognizer{}, &ttsmock.Synthesizer{},
		WithLogger(slog.New(slog.DiscardHandler)))
	return c, sess, gate
}

func TestRunSendsGreetingAndCloses(t *testing.T) {
	conn := &fakeConn{frames: []Frame{textFrame(ClientMessage{Type: TypeEndSession})}}
	c, _ := newTestConversation(conn, &asrmock.Recognizer{})

	c.Run(context.Background())

	first := conn.messages()[0]
	if first.Type != TypeStateChange || first.State != "greeting" {
		t.Fatalf("first message = %+v", first)
	}
	if !strings.Contains(first.Message, "introduce yourself") {
		t.Fatalf("greeting = %q", first.Message)
	}
	if !conn.closed {
		t.Fatal("connection not closed")
	}
}

func TestRunReportsASRFailure(t *testing.T) {
	conn := &fakeConn{frames: []Frame{textFrame(ClientMessage{Type: TypeEndSession})}}
	rec := &asrmock.Recognizer{InitializeErr: errors.New("model missing")}
	c, _ := newTestConversation(conn, rec)

	c.Run(context.Background())

	deadline := time.Now().Add(time.Second)
	for {
		if status := conn.find(TypeASRStatus); status != nil {
			if *status.Ready {
				t.Fatal("asr reported ready after init failure")
			}
			if !strings.Contains(status.Message, "type your answers") {
				t.Fatalf("status message = %q", status.Message)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("no asr_status message sent")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTurnMessageSequence(t *testing.T) {
	conn := &fakeConn{}
	c, _ := newTestConversation(conn, &asrmock.Recognizer{})

	gen := c.beginTurn()
	c.runTurn(context.Background(), gen, "I want to study computer science in Boston.", "en")

	types := conn.messageTypes()
	want := []string{TypeTranscriptFinal, TypeAgentThinking, TypeAgentResponse, TypeTTSStart, TypeTTSEnd}
	if len(types) != len(want) {
		t.Fatalf("message types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("message %d = %q, want %q", i, types[i], want[i])
		}
	}
	if conn.binaryCount() == 0 {
		t.Fatal("no audio chunks sent")
	}

	resp := conn.find(TypeAgentResponse)
	if resp.Text != "Tell me about your course." {
		t.Fatalf("agent response = %q", resp.Text)
	}
	if resp.Score == nil || *resp.Score < 0.3 {
		t.Fatalf("score = %v", resp.Score)
	}
	if c.State() != StateIdle {
		t.Fatalf("state after turn = %q, want idle", c.State())
	}
}

func TestTurnAlwaysSendsTTSEnd(t *testing.T) {
	conn := &fakeConn{}
	sess := session.New("US", "IN")
	pipe := pipeline.New(&llmmock.Provider{Responses: []string{"Noted."}},
		pipeline.WithLogger(slog.New(slog.DiscardHandler)))
	synth := &ttsmock.Synthesizer{SynthesizeErr: errors.New("engine crashed")}
	c := NewConversation(conn, sess, pipe, &asrmock.Recognizer{}, synth,
		WithLogger(slog.New(slog.DiscardHandler)))

	gen := c.beginTurn()
	c.runTurn(context.Background(), gen, "My father is sponsoring my studies.", "en")

	if conn.find(TypeTTSEnd) == nil {
		t.Fatal("tts_end not sent after synthesis failure")
	}
	if conn.find(TypeError) == nil {
		t.Fatal("error not reported to client")
	}
	if conn.binaryCount() != 0 {
		t.Fatal("audio sent despite synthesis failure")
	}
}

func TestSpeechEndTooShort(t *testing.T) {
	conn := &fakeConn{}
	rec := &asrmock.Recognizer{Transcript: "uh"}
	c, _ := newTestConversation(conn, rec)
	rec.Initialize(context.Background())
	c.mu.Lock()
	c.asrReady = true
	c.mu.Unlock()
	c.setState(StateListening)

	c.handleControl(context.Background(), ClientMessage{Type: TypeSpeechEnd})
	c.turnWG.Wait()

	errMsg := conn.find(TypeError)
	if errMsg == nil {
		t.Fatal("no error message for a one-word transcript")
	}
	if !strings.Contains(errMsg.Message, `Too short: "uh"`) {
		t.Fatalf("error = %q", errMsg.Message)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %q, want idle", c.State())
	}
}

func TestSpeechEndEmptyTranscript(t *testing.T) {
	conn := &fakeConn{}
	rec := &asrmock.Recognizer{Transcript: ""}
	c, _ := newTestConversation(conn, rec)
	rec.Initialize(context.Background())
	c.mu.Lock()
	c.asrReady = true
	c.mu.Unlock()
	c.setState(StateListening)

	c.handleControl(context.Background(), ClientMessage{Type: TypeSpeechEnd})
	c.turnWG.Wait()

	errMsg := conn.find(TypeError)
	if errMsg == nil || !strings.Contains(errMsg.Message, "Could not hear you") {
		t.Fatalf("error = %+v", errMsg)
	}
}

func TestSpeechEndWithoutASR(t *testing.T) {
	conn := &fakeConn{}
	c, _ := newTestConversation(conn, &asrmock.Recognizer{})
	c.setState(StateListening)

	c.handleControl(context.Background(), ClientMessage{Type: TypeSpeechEnd})

	errMsg := conn.find(TypeError)
	if errMsg == nil || !strings.Contains(errMsg.Message, "type your answer") {
		t.Fatalf("error = %+v", errMsg)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %q, want idle", c.State())
	}
}

func TestSpeechEndIgnoredOutsideListening(t *testing.T) {
	conn := &fakeConn{}
	c, _ := newTestConversation(conn, &asrmock.Recognizer{})

	c.handleControl(context.Background(), ClientMessage{Type: TypeSpeechEnd})

	if len(conn.messages()) != 0 {
		t.Fatalf("messages sent for ignored speech_end: %v", conn.messageTypes())
	}
}

func TestAudioFramesDroppedOutsideListening(t *testing.T) {
	conn := &fakeConn{}
	rec := &asrmock.Recognizer{}
	c, _ := newTestConversation(conn, rec)
	rec.Initialize(context.Background())
	c.mu.Lock()
	c.asrReady = true
	c.mu.Unlock()

	c.handleAudio(context.Background(), make([]byte, 640))

	if len(rec.FeedCalls) != 0 {
		t.Fatal("audio fed to recognizer outside the listening state")
	}
}

func TestAudioFramesFedWhileListening(t *testing.T) {
	conn := &fakeConn{}
	rec := &asrmock.Recognizer{
		Segments: []asr.Segment{{Text: "I want to study", Partial: true, Language: "en"}},
	}
	c, _ := newTestConversation(conn, rec)
	rec.Initialize(context.Background())
	c.mu.Lock()
	c.asrReady = true
	c.mu.Unlock()
	c.setState(StateListening)

	c.handleAudio(context.Background(), make([]byte, 640))

	partial := conn.find(TypeTranscriptPartial)
	if partial == nil {
		t.Fatal("no transcript_partial sent")
	}
	if partial.Text != "I want to study" || !partial.IsPartial {
		t.Fatalf("partial = %+v", partial)
	}
}

func TestBargeInResetsRecognizer(t *testing.T) {
	conn := &fakeConn{}
	rec := &asrmock.Recognizer{}
	c, _ := newTestConversation(conn, rec)
	rec.Initialize(context.Background())
	c.mu.Lock()
	c.asrReady = true
	c.mu.Unlock()

	canceled := false
	c.mu.Lock()
	c.state = StateSpeaking
	c.cancelSpeak = func() { canceled = true }
	c.mu.Unlock()

	c.handleControl(context.Background(), ClientMessage{Type: TypeSpeechStart})

	if !canceled {
		t.Fatal("speech playback not canceled on barge-in")
	}
	if c.State() != StateListening {
		t.Fatalf("state = %q, want listening", c.State())
	}
	if rec.ResetCount() != 1 {
		t.Fatalf("reset count = %d, want 1", rec.ResetCount())
	}
}

func TestTextInputRunsTurn(t *testing.T) {
	conn := &fakeConn{}
	c, sess := newTestConversation(conn, &asrmock.Recognizer{})

	c.handleControl(context.Background(), ClientMessage{
		Type: TypeTextInput,
		Text: "I have admission to a masters program in Toronto.",
	})
	c.turnWG.Wait()

	final := conn.find(TypeTranscriptFinal)
	if final == nil {
		t.Fatal("no transcript_final sent")
	}
	if final.Text != "I have admission to a masters program in Toronto." {
		t.Fatalf("transcript = %q", final.Text)
	}
	if conn.find(TypeAgentResponse) == nil {
		t.Fatal("no agent_response sent")
	}
	if len(sess.Transcript()) != 2 {
		t.Fatalf("transcript entries = %d, want 2", len(sess.Transcript()))
	}
}

func TestEmptyTextInputIgnored(t *testing.T) {
	conn := &fakeConn{}
	c, _ := newTestConversation(conn, &asrmock.Recognizer{})

	c.handleControl(context.Background(), ClientMessage{Type: TypeTextInput, Text: "   "})

	if len(conn.messages()) != 0 {
		t.Fatalf("messages sent for empty input: %v", conn.messageTypes())
	}
}

func TestBargeInWhileProcessingDropsResponse(t *testing.T) {
	conn := &fakeConn{}
	c, _, gate := newGatedConversation(conn)

	c.startTurn(context.Background(), "I plan to study data science in Boston.", "en")
	<-gate.entered
	if c.State() != StateProcessing {
		t.Fatalf("state = %q, want processing", c.State())
	}

	c.handleControl(context.Background(), ClientMessage{Type: TypeSpeechStart})
	if c.State() != StateListening {
		t.Fatalf("state after barge-in = %q, want listening", c.State())
	}

	close(gate.release)
	c.turnWG.Wait()

	if conn.find(TypeAgentResponse) != nil {
		t.Fatal("superseded turn still delivered agent_response")
	}
	if conn.find(TypeTTSStart) != nil || conn.binaryCount() != 0 {
		t.Fatal("superseded turn streamed audio over the user's speech")
	}
	if c.State() != StateListening {
		t.Fatalf("state after drop = %q, want listening", c.State())
	}
}

func TestTextInputRejectedWhileProcessing(t *testing.T) {
	conn := &fakeConn{}
	c, sess, gate := newGatedConversation(conn)

	c.handleControl(context.Background(), ClientMessage{
		Type: TypeTextInput,
		Text: "My uncle lives in New Jersey.",
	})
	<-gate.entered

	c.handleControl(context.Background(), ClientMessage{
		Type: TypeTextInput,
		Text: "Also I already have a job offer there.",
	})

	errMsg := conn.find(TypeError)
	if errMsg == nil || !strings.Contains(errMsg.Message, "wait for the officer") {
		t.Fatalf("error = %+v", errMsg)
	}

	close(gate.release)
	c.turnWG.Wait()

	var finals int
	for _, m := range conn.messages() {
		if m.Type == TypeTranscriptFinal {
			finals++
		}
	}
	if finals != 1 {
		t.Fatalf("transcript_final count = %d, want 1", finals)
	}
	if len(sess.Transcript()) != 2 {
		t.Fatalf("transcript entries = %d, want 2", len(sess.Transcript()))
	}
}

func TestSpeechEndFinalizeDoesNotBlockBargeIn(t *testing.T) {
	conn := &fakeConn{}
	rec := &gatedFinalizeRecognizer{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	rec.Transcript = "I was only clearing my throat there."
	c, _ := newTestConversation(conn, rec)
	rec.Initialize(context.Background())
	c.mu.Lock()
	c.asrReady = true
	c.mu.Unlock()
	c.setState(StateListening)

	c.handleControl(context.Background(), ClientMessage{Type: TypeSpeechEnd})
	<-rec.entered

	// The receive loop is free while finalize drains; the barge-in must
	// land immediately and make the pending utterance stale.
	c.handleControl(context.Background(), ClientMessage{Type: TypeSpeechStart})
	if c.State() != StateListening {
		t.Fatalf("state = %q, want listening", c.State())
	}

	close(rec.release)
	c.turnWG.Wait()

	if conn.find(TypeTranscriptFinal) != nil {
		t.Fatal("superseded utterance still produced a transcript")
	}
	if c.State() != StateListening {
		t.Fatalf("state after drain = %q, want listening", c.State())
	}
}

func TestSendFailureEndsConversation(t *testing.T) {
	conn := &fakeConn{
		sendErr: errors.New("broken pipe"),
		frames: []Frame{
			textFrame(ClientMessage{Type: TypeTextInput, Text: "I will fund my studies with a scholarship."}),
		},
	}
	c, sess := newTestConversation(conn, &asrmock.Recognizer{})

	c.Run(context.Background())

	if !conn.isClosed() {
		t.Fatal("connection left open after send failure")
	}
	if len(sess.Transcript()) != 0 {
		t.Fatal("turn ran on a connection that cannot deliver responses")
	}
}
