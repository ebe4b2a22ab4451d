package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed reports that no entry in a [FallbackGroup] could serve the
// request, either because the call failed or the breaker was open.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig carries the settings applied to every entry of a
// [FallbackGroup].
type FallbackConfig struct {
	// CircuitBreaker is cloned per entry, with Name set to the entry name.
	CircuitBreaker CircuitBreakerConfig

	// OnFallback, when non-nil, fires with the entry name each time a
	// non-primary entry serves a request. Feeds the fallback counter.
	OnFallback func(name string)
}

// fallbackEntry is one provider in the chain plus the breaker guarding it.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup chains a primary and zero or more fallback instances of one
// provider type. A request goes to the first entry whose breaker admits it
// and whose call succeeds; entries are tried in registration order. The chain
// for an interview server typically ends in an offline backend (the canned
// LLM, the tone synthesizer) so the last entry cannot fail.
//
// FallbackGroup is safe for concurrent use once assembled; AddFallback is
// not synchronized and belongs in startup code.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup builds a group whose first entry is primary. Further
// entries come from [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.add(primaryName, primary)
	return fg
}

// AddFallback appends a provider tried after all earlier entries.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	fg.add(name, fallback)
}

func (fg *FallbackGroup[T]) add(name string, value T) {
	bcfg := fg.cfg.CircuitBreaker
	bcfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{name: name, value: value, breaker: NewCircuitBreaker(bcfg)})
}

// Execute runs fn against entries in order until one succeeds. Entries whose
// breaker is open are skipped. When every entry fails the last error is
// wrapped in [ErrAllFailed].
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult is [FallbackGroup.Execute] for calls that produce a
// value. It lives at package level because methods cannot introduce the
// result type parameter.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var last error
	for i := range fg.entries {
		e := &fg.entries[i]
		var out R
		err := e.breaker.Execute(func() error {
			var callErr error
			out, callErr = fn(e.value)
			return callErr
		})
		switch {
		case err == nil:
			if i > 0 && fg.cfg.OnFallback != nil {
				fg.cfg.OnFallback(e.name)
			}
			return out, nil
		case errors.Is(err, ErrCircuitOpen):
			slog.Debug("skipping provider with open circuit", "provider", e.name)
		default:
			slog.Warn("provider call failed, moving down the chain", "provider", e.name, "error", err)
		}
		last = err
	}
	var zero R
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, last)
}
