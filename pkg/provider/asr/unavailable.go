package asr

import "context"

// Unavailable returns a Recognizer whose Initialize always fails with err.
// It stands in when no ASR backend is configured or construction failed, so
// connections degrade to text input instead of crashing.
func Unavailable(err error) Recognizer {
	return unavailable{err: err}
}

type unavailable struct {
	err error
}

func (u unavailable) Initialize(context.Context) error { return u.err }

func (u unavailable) Ready() bool { return false }

func (u unavailable) Feed(context.Context, []byte) (*Segment, error) { return nil, u.err }

func (u unavailable) Finalize(context.Context) (string, error) { return "", u.err }

func (u unavailable) Reset() {}
