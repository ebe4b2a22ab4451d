package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
)

// fakeRedis implements redisClient with an in-memory list per key.
type fakeRedis struct {
	lists   map[string][]string
	pushErr error
	readErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{lists: make(map[string][]string)}
}

func (f *fakeRedis) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.pushErr != nil {
		cmd.SetErr(f.pushErr)
		return cmd
	}
	for _, v := range values {
		f.lists[key] = append(f.lists[key], string(v.([]byte)))
	}
	cmd.SetVal(int64(len(f.lists[key])))
	return cmd
}

func (f *fakeRedis) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	if f.readErr != nil {
		cmd.SetErr(f.readErr)
		return cmd
	}
	cmd.SetVal(f.lists[key])
	return cmd
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestLogToRedis(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRedis()
	l := New(t.TempDir(), WithRedis(fr), WithLogger(discardLogger()))

	l.LogAnswer(ctx, "abc12345", 1, "I plan to study computer science.", 0.85, "study_plans")
	l.LogRetry(ctx, "abc12345", 2, 1)

	events, err := l.Events(ctx, "abc12345")
	if err != nil {
		t.Fatalf("Events() error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != "answer" || events[1].Type != "retry" {
		t.Fatalf("event types = %q, %q", events[0].Type, events[1].Type)
	}
	if events[0].SessionID != "abc12345" {
		t.Fatalf("session_id = %q", events[0].SessionID)
	}
	if got := events[0].Data["score"].(float64); got != 0.85 {
		t.Fatalf("score = %v, want 0.85", got)
	}
	if got := events[0].Data["question_id"].(float64); got != 1 {
		t.Fatalf("question_id = %v, want 1", got)
	}
}

func TestLogFallsBackToFile(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRedis()
	fr.pushErr = errors.New("connection refused")
	l := New(t.TempDir(), WithRedis(fr), WithLogger(discardLogger()))

	l.LogContradiction(ctx, "def67890", 3, "destination changed from US to UK")

	// The read goes to Redis first; force it to the file too.
	fr.readErr = errors.New("connection refused")
	events, err := l.Events(ctx, "def67890")
	if err != nil {
		t.Fatalf("Events() error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Type != "contradiction" {
		t.Fatalf("type = %q", events[0].Type)
	}
	if got := events[0].Data["reason"]; got != "destination changed from US to UK" {
		t.Fatalf("reason = %v", got)
	}
}

func TestLogFileOnly(t *testing.T) {
	ctx := context.Background()
	l := New(t.TempDir(), WithLogger(discardLogger()))

	if l.RedisAvailable() {
		t.Fatal("RedisAvailable() = true without a client")
	}

	l.LogLanguageSwitch(ctx, "aaa11111", "to_hindi", 4)
	l.LogLanguageSwitch(ctx, "aaa11111", "to_english", 5)
	l.Log(ctx, "bbb22222", "custom", nil)

	events, err := l.Events(ctx, "aaa11111")
	if err != nil {
		t.Fatalf("Events() error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Data["direction"] != "to_hindi" || events[1].Data["direction"] != "to_english" {
		t.Fatalf("directions = %v, %v", events[0].Data["direction"], events[1].Data["direction"])
	}

	other, err := l.Events(ctx, "bbb22222")
	if err != nil {
		t.Fatalf("Events() error: %v", err)
	}
	if len(other) != 1 || len(other[0].Data) != 0 {
		t.Fatalf("got %+v, want one event with empty data", other)
	}
}

func TestEventsUnknownSession(t *testing.T) {
	l := New(t.TempDir(), WithLogger(discardLogger()))
	events, err := l.Events(context.Background(), "nosuchid")
	if err != nil {
		t.Fatalf("Events() error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
}

func TestSessionsIsolated(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRedis()
	l := New(t.TempDir(), WithRedis(fr), WithLogger(discardLogger()))

	l.LogAnswer(ctx, "one", 1, "a", 0.5, "background")
	l.LogAnswer(ctx, "two", 1, "b", 0.6, "background")

	events, err := l.Events(ctx, "one")
	if err != nil {
		t.Fatalf("Events() error: %v", err)
	}
	if len(events) != 1 || events[0].Data["answer"] != "a" {
		t.Fatalf("got %+v, want single answer %q", events, "a")
	}
}
