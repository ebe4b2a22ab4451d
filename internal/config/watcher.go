package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// fingerprint identifies one observed version of the config file. The mtime
// is checked first so unchanged files are not re-read every poll; the hash
// catches touch-only mtime bumps.
type fingerprint struct {
	mtime time.Time
	hash  [sha256.Size]byte
}

// Watcher polls a config file and invokes a callback when its content
// changes and parses to a valid [Config]. Invalid edits are logged and the
// previous config stays current. Polling keeps the dependency surface small;
// reload latency in the seconds range is fine for a config file.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	mu      sync.Mutex
	current *Config
	seen    fingerprint

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption adjusts a [Watcher] under construction.
type WatcherOption func(*Watcher)

// WithInterval overrides the default 5s polling cadence. Non-positive
// values are ignored.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the config at path and starts polling it in a background
// goroutine. The initial load must succeed; afterwards a broken file never
// replaces the last good config.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, fp, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.seen = fp

	go w.run()
	return w, nil
}

// Current returns the last config that parsed and validated cleanly.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends polling. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.reload()
		}
	}
}

// reload re-reads the file when its mtime moved, swaps in the new config when
// the content actually changed and is valid, and fires the callback.
func (w *Watcher) reload() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: stat failed", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	unchanged := info.ModTime().Equal(w.seen.mtime)
	w.mu.Unlock()
	if unchanged {
		return
	}

	cfg, fp, err := w.load()
	if err != nil {
		slog.Warn("config watcher: reload rejected, keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if fp.hash == w.seen.hash {
		// Touched but identical; remember the new mtime and move on.
		w.seen.mtime = fp.mtime
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current = cfg
	w.seen = fp
	w.mu.Unlock()

	slog.Info("config watcher: new configuration applied", "path", w.path)

	// Callback runs outside the lock so it can call Current().
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

// load reads, expands, parses and validates the file, returning the config
// with the fingerprint of the bytes it was built from.
func (w *Watcher) load() (*Config, fingerprint, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fingerprint{}, err
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fingerprint{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	if err != nil {
		return nil, fingerprint{}, err
	}

	return cfg, fingerprint{mtime: info.ModTime(), hash: sha256.Sum256(data)}, nil
}
