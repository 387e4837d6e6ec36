package pipeline

import (
	"time"

	"github.com/dalmia/vidly/internal/models"
	"github.com/dalmia/vidly/pkg/poll"
)

// Service drives a video through the ordered processing stages and owns the
// derived artifacts. All methods are safe for concurrent use.
type Service interface {
	// Process starts the pipeline for a video URL. It is only legal from
	// idle or error; the stages run on their own goroutine.
	Process(rawURL string) error

	// Ask submits a question while the pipeline is ready. It appends the
	// user message and a loading placeholder synchronously and resolves the
	// placeholder concurrently; the returned id names the placeholder.
	Ask(question string, playbackSeconds float64) (string, error)

	// Reset cancels in-flight work and clears every derived artifact and
	// error message atomically, returning the machine to idle.
	Reset()

	// Snapshot returns a copy of the current state.
	Snapshot() Snapshot

	// Subscribe registers an observer invoked after every state change.
	// Observers receive a private copy and must not block.
	Subscribe(fn func(Snapshot))
}

// Snapshot is a point-in-time copy of the pipeline's state, as mirrored
// into the session registry and served over the API.
type Snapshot struct {
	Status        models.PipelineStatus `json:"status"`
	Error         string                `json:"error,omitempty"`
	Video         *models.VideoRef      `json:"video,omitempty"`
	Sections      []models.Section      `json:"sections,omitempty"`
	Transcription *models.Transcription `json:"transcription,omitempty"`
	Messages      []models.ChatMessage  `json:"messages"`
}

// Option is a functional option for configuring the pipeline
type Option func(*machine)

// WithPollPolicy bounds the transcription poll loop.
func WithPollPolicy(policy poll.Policy) Option {
	return func(m *machine) {
		m.pollPolicy = policy
	}
}

// WithStreaming switches transcription from polling to the server-push
// event stream.
func WithStreaming(enabled bool) Option {
	return func(m *machine) {
		m.useStream = enabled
	}
}

// WithClock overrides the wall clock (used by tests).
func WithClock(now func() time.Time) Option {
	return func(m *machine) {
		m.now = now
	}
}

// WithIDGenerator overrides message id generation (used by tests).
func WithIDGenerator(next func() string) Option {
	return func(m *machine) {
		m.newID = next
	}
}
