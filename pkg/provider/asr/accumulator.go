package asr

import "strings"

// windowBytes is the byte size of one decode window.
const windowBytes = SampleRate * BytesPerSample * WindowSeconds

// Accumulator implements the buffering shared by all recognizers: PCM is
// collected until a full decode window is available, decoded segments are
// recorded, and the full transcript is the space-joined segment text.
// Not safe for concurrent use.
type Accumulator struct {
	buf      []byte
	segments []Segment
	elapsed  float64
}

// Add appends pcm to the buffer. When at least one decode window has
// accumulated it returns the buffered audio and clears the buffer,
// otherwise nil.
func (a *Accumulator) Add(pcm []byte) []byte {
	a.buf = append(a.buf, pcm...)
	if len(a.buf) < windowBytes {
		return nil
	}
	out := a.buf
	a.buf = nil
	return out
}

// Drain returns whatever audio remains buffered and clears the buffer.
func (a *Accumulator) Drain() []byte {
	out := a.buf
	a.buf = nil
	return out
}

// Record stores a decoded segment. Start and End are filled from the running
// audio clock when zero.
func (a *Accumulator) Record(seg Segment, audioBytes int) Segment {
	duration := float64(audioBytes) / float64(SampleRate*BytesPerSample)
	if seg.Start == 0 && seg.End == 0 {
		seg.Start = a.elapsed
		seg.End = a.elapsed + duration
	}
	a.elapsed += duration
	a.segments = append(a.segments, seg)
	return seg
}

// Transcript returns all recorded segment text joined by single spaces.
func (a *Accumulator) Transcript() string {
	parts := make([]string, 0, len(a.segments))
	for _, s := range a.segments {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Segments returns a copy of the recorded segments.
func (a *Accumulator) Segments() []Segment {
	out := make([]Segment, len(a.segments))
	copy(out, a.segments)
	return out
}

// Reset discards buffered audio and recorded segments.
func (a *Accumulator) Reset() {
	a.buf = nil
	a.segments = nil
	a.elapsed = 0
}
