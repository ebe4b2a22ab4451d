// Package audit provides an append-only event log for interview sessions.
//
// Events are pushed to a Redis list keyed by session ID, with a JSON-lines
// file fallback when Redis is unavailable. Logging never fails the caller;
// write errors are reported through slog and the next sink is tried.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event is a single audit record for a session.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Type      string         `json:"event_type"`
	Data      map[string]any `json:"data"`
}

// redisClient is the subset of the go-redis API the logger uses.
type redisClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

var _ redisClient = (*redis.Client)(nil)

// Logger writes audit events to Redis with a file fallback.
type Logger struct {
	redis  redisClient
	dir    string
	logger *slog.Logger
}

// Option configures a Logger.
type Option func(*Logger)

// WithRedis sets the Redis client used as the primary sink. Without it
// all events go straight to the fallback directory.
func WithRedis(c redisClient) Option {
	return func(l *Logger) { l.redis = c }
}

// WithLogger sets the slog logger used to report sink failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) { l.logger = logger }
}

// New creates an audit logger writing file fallbacks under dir.
func New(dir string, opts ...Option) *Logger {
	l := &Logger{
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dial connects to Redis and verifies it responds before returning the
// client, so a dead address degrades to file-only logging at startup.
func Dial(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("audit: ping redis %s: %w", addr, err)
	}
	return client, nil
}

// RedisAvailable reports whether a Redis sink is configured.
func (l *Logger) RedisAvailable() bool { return l.redis != nil }

// Log appends an event for a session. It never returns an error; failures
// are logged and the file fallback is attempted.
func (l *Logger) Log(ctx context.Context, sessionID, eventType string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	ev := Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Type:      eventType,
		Data:      data,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		l.logger.Warn("audit: marshal event", "session_id", sessionID, "event_type", eventType, "error", err)
		return
	}

	if l.redis != nil {
		if err := l.redis.RPush(ctx, sessionKey(sessionID), payload).Err(); err == nil {
			return
		} else {
			l.logger.Warn("audit: redis append failed, using file fallback", "session_id", sessionID, "error", err)
		}
	}

	if err := l.appendFile(sessionID, payload); err != nil {
		l.logger.Warn("audit: file append failed, event dropped", "session_id", sessionID, "error", err)
	}
}

// LogAnswer records a scored answer to a question.
func (l *Logger) LogAnswer(ctx context.Context, sessionID string, questionID int, answer string, score float64, category string) {
	l.Log(ctx, sessionID, "answer", map[string]any{
		"question_id": questionID,
		"answer":      answer,
		"score":       score,
		"category":    category,
	})
}

// LogRetry records a repeated attempt at the same question.
func (l *Logger) LogRetry(ctx context.Context, sessionID string, questionID, attempt int) {
	l.Log(ctx, sessionID, "retry", map[string]any{
		"question_id": questionID,
		"attempt":     attempt,
	})
}

// LogContradiction records a detected contradiction with an earlier answer.
func (l *Logger) LogContradiction(ctx context.Context, sessionID string, questionID int, reason string) {
	l.Log(ctx, sessionID, "contradiction", map[string]any{
		"question_id": questionID,
		"reason":      reason,
	})
}

// LogLanguageSwitch records a switch into or out of explanation mode.
func (l *Logger) LogLanguageSwitch(ctx context.Context, sessionID, direction string, questionID int) {
	l.Log(ctx, sessionID, "language_switch", map[string]any{
		"direction":   direction,
		"question_id": questionID,
	})
}

// Events returns all audit events for a session in append order. It reads
// from Redis when available, falling back to the session's JSONL file.
func (l *Logger) Events(ctx context.Context, sessionID string) ([]Event, error) {
	if l.redis != nil {
		entries, err := l.redis.LRange(ctx, sessionKey(sessionID), 0, -1).Result()
		if err == nil {
			events := make([]Event, 0, len(entries))
			for _, e := range entries {
				var ev Event
				if err := json.Unmarshal([]byte(e), &ev); err != nil {
					return nil, fmt.Errorf("audit: decode event: %w", err)
				}
				events = append(events, ev)
			}
			return events, nil
		}
		l.logger.Warn("audit: redis read failed, using file fallback", "session_id", sessionID, "error", err)
	}
	return l.readFile(sessionID)
}

func sessionKey(sessionID string) string {
	return "audit:" + sessionID
}

func (l *Logger) appendFile(sessionID string, payload []byte) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("audit: create log dir: %w", err)
	}
	path := filepath.Join(l.dir, sessionID+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("audit: write %s: %w", path, err)
	}
	return nil
}

func (l *Logger) readFile(sessionID string) ([]Event, error) {
	path := filepath.Join(l.dir, sessionID+".jsonl")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: read %s: %w", path, err)
	}
	var events []Event
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("audit: decode event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}
