// Package mock provides a scripted speech recognizer for testing.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/visawire/visawire/pkg/provider/asr"
)

// Recognizer is a test double implementing asr.Recognizer. Segments are
// returned one per Feed call in order; Transcript is returned by Finalize.
type Recognizer struct {
	mu sync.Mutex

	// Segments are returned in order, one per Feed call. When exhausted,
	// Feed returns nil.
	Segments []asr.Segment
	// Transcript is the value Finalize returns.
	Transcript string

	// InitializeErr, FeedErr and FinalizeErr force the corresponding
	// method to fail.
	InitializeErr error
	FeedErr       error
	FinalizeErr   error

	// FeedCalls records the byte length of each Feed payload.
	FeedCalls []int

	initialized bool
	feedIndex   int
	resetCount  int
}

var _ asr.Recognizer = (*Recognizer)(nil)

func (r *Recognizer) Initialize(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.InitializeErr != nil {
		return r.InitializeErr
	}
	r.initialized = true
	return nil
}

func (r *Recognizer) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

func (r *Recognizer) Feed(_ context.Context, pcm []byte) (*asr.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return nil, errors.New("mock: recognizer not initialized")
	}
	r.FeedCalls = append(r.FeedCalls, len(pcm))
	if r.FeedErr != nil {
		return nil, r.FeedErr
	}
	if r.feedIndex >= len(r.Segments) {
		return nil, nil
	}
	seg := r.Segments[r.feedIndex]
	r.feedIndex++
	return &seg, nil
}

func (r *Recognizer) Finalize(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return "", errors.New("mock: recognizer not initialized")
	}
	if r.FinalizeErr != nil {
		return "", r.FinalizeErr
	}
	return r.Transcript, nil
}

func (r *Recognizer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedIndex = 0
	r.resetCount++
}

// ResetCount reports how many times Reset has been called.
func (r *Recognizer) ResetCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetCount
}
