package playback

import "time"

// Config controls the auto-scroll hysteresis.
type Config struct {
	// MinIndexJump is the number of positions the active index must move,
	// relative to the last scrolled-to index, before a scroll fires.
	MinIndexJump int
	// ScrollCooldown is the minimum interval between two scroll actions.
	ScrollCooldown time.Duration
	// ScrollDelay is the settle delay before a decided scroll is dispatched.
	ScrollDelay time.Duration
}

// DefaultConfig returns the tuning used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MinIndexJump:   2,
		ScrollCooldown: time.Second,
		ScrollDelay:    100 * time.Millisecond,
	}
}

// Decision is the outcome of a position update.
type Decision struct {
	ActiveIndex int  `json:"active_index"`
	Scroll      bool `json:"scroll"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithScheduler replaces the delayed-dispatch mechanism, for tests.
func WithScheduler(schedule func(d time.Duration, fn func())) Option {
	return func(t *Tracker) { t.schedule = schedule }
}

// WithSink registers the scroll sink invoked after the settle delay.
func WithSink(sink func(index int)) Option {
	return func(t *Tracker) { t.sink = sink }
}
