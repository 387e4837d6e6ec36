package dictation

import (
	"context"
	"time"
)

// Result is one recognition tick: interim text replaces the transient
// display buffer, final text is appended to the accumulated transcript.
type Result struct {
	Transcript string
	IsFinal    bool
}

// Engine is a continuous, interim-enabled speech recognition engine. The
// Results channel closes when the engine ends, naturally or on error; Err
// reports the runtime error, if any, after the channel closes.
type Engine interface {
	Start(ctx context.Context) error
	Results() <-chan Result
	Stop() error
	Err() error
}

// Analyzer samples the audio input in the frequency domain. Each frame is
// an ordered array of levels in [0, 255]. The channel closes on release.
type Analyzer interface {
	Frames() <-chan []byte
	Close() error
}

// Sink receives the accumulated final transcript: once per final
// recognition tick, and once more when the session finalizes.
type Sink func(finalText string)

// Config controls the session's finalize settle delay and the number of
// waveform bars exposed to the caller.
type Config struct {
	SettleDelay time.Duration
	Bars        int
}

// DefaultConfig returns the tuning used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		SettleDelay: 800 * time.Millisecond,
		Bars:        48,
	}
}

// Option configures a Session.
type Option func(*Session)

// WithSleeper replaces the settle-delay wait, for tests.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(s *Session) { s.sleep = sleep }
}
