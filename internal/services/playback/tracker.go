package playback

import (
	"sync"
	"time"
)

// ActiveIndex returns the index i such that starts[i] <= t < starts[i+1],
// with the last block open ended. It returns -1 when the list is empty or
// no block has started yet. Linear scan: the lists involved are small.
func ActiveIndex(starts []float64, t float64) int {
	active := -1
	for i, start := range starts {
		if t >= start {
			active = i
		} else {
			break
		}
	}
	return active
}

// Tracker follows a moving playback position across an ordered block list
// and decides when the viewport should scroll to the active block. The
// highlighted (active) index always tracks the position; the viewport only
// moves when the hysteresis thresholds are crossed, so rapid small updates
// re-highlight without scroll churn.
type Tracker struct {
	mu       sync.Mutex
	cfg      Config
	now      func() time.Time
	schedule func(d time.Duration, fn func())
	sink     func(index int)

	starts   []float64
	isActive bool

	activeIndex int

	// scroll bookkeeping, tracked independently of activeIndex
	lastScrolledIndex int
	lastScrollAt      time.Time
}

// NewTracker creates a tracker over an initially empty block list.
func NewTracker(cfg Config, opts ...Option) *Tracker {
	if cfg.MinIndexJump <= 0 {
		cfg.MinIndexJump = DefaultConfig().MinIndexJump
	}
	if cfg.ScrollCooldown <= 0 {
		cfg.ScrollCooldown = DefaultConfig().ScrollCooldown
	}
	if cfg.ScrollDelay <= 0 {
		cfg.ScrollDelay = DefaultConfig().ScrollDelay
	}

	t := &Tracker{
		cfg:               cfg,
		now:               time.Now,
		schedule:          func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		activeIndex:       -1,
		lastScrolledIndex: -1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetBlocks replaces the block list and forgets all prior scroll state.
func (t *Tracker) SetBlocks(starts []float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts = append([]float64(nil), starts...)
	t.activeIndex = -1
	t.lastScrolledIndex = -1
	t.lastScrollAt = time.Time{}
}

// Reset drops the block list and all scroll state. A session switch must
// call it: the next session's sections may share the old starts, and
// SyncBlocks alone would then carry the previous session's scroll history
// into the new one.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts = nil
	t.activeIndex = -1
	t.lastScrolledIndex = -1
	t.lastScrollAt = time.Time{}
}

// SyncBlocks replaces the block list only when it differs from the current
// one, so redundant updates keep the scroll state intact.
func (t *Tracker) SyncBlocks(starts []float64) {
	t.mu.Lock()
	same := len(starts) == len(t.starts)
	if same {
		for i := range starts {
			if starts[i] != t.starts[i] {
				same = false
				break
			}
		}
	}
	t.mu.Unlock()

	if !same {
		t.SetBlocks(starts)
	}
}

// SetActive gates recomputation: updates on an inactive tracker are no-ops,
// so a hidden view neither recomputes nor scrolls.
func (t *Tracker) SetActive(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isActive = active
}

// ActiveIndex returns the currently highlighted index (-1 when none).
func (t *Tracker) ActiveIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeIndex
}

// Update recomputes the active index for the given playback position and
// applies the scroll policy: a scroll fires only when the jump from the
// last scrolled-to index exceeds the configured threshold (or no prior
// scroll exists) and the cooldown since the last scroll has elapsed. A
// decided scroll is dispatched to the sink after the settle delay.
func (t *Tracker) Update(seconds float64) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isActive {
		return Decision{ActiveIndex: t.activeIndex}
	}

	index := ActiveIndex(t.starts, seconds)
	t.activeIndex = index
	if index < 0 {
		return Decision{ActiveIndex: index}
	}

	jump := index - t.lastScrolledIndex
	if jump < 0 {
		jump = -jump
	}
	crossed := t.lastScrolledIndex < 0 || jump > t.cfg.MinIndexJump
	cooled := t.lastScrollAt.IsZero() || t.now().Sub(t.lastScrollAt) >= t.cfg.ScrollCooldown
	if !crossed || !cooled {
		return Decision{ActiveIndex: index}
	}

	t.lastScrolledIndex = index
	t.lastScrollAt = t.now()
	if t.sink != nil {
		sink := t.sink
		t.schedule(t.cfg.ScrollDelay, func() { sink(index) })
	}
	return Decision{ActiveIndex: index, Scroll: true}
}
