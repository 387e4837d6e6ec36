package pipeline

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dalmia/vidly/internal/models"
	"github.com/dalmia/vidly/internal/services/backend"
	apperrors "github.com/dalmia/vidly/pkg/errors"
	"github.com/dalmia/vidly/pkg/poll"
	"github.com/dalmia/vidly/pkg/timecode"
	"github.com/dalmia/vidly/pkg/videoid"
	"github.com/google/uuid"
)

// answerFailureMessage is the fixed content a placeholder resolves to when
// the answer operation fails.
const answerFailureMessage = "Sorry, I couldn't answer that. Please try asking again."

type machine struct {
	mu      sync.Mutex
	gateway backend.Gateway

	pollPolicy poll.Policy
	useStream  bool
	now        func() time.Time
	newID      func() string

	status        models.PipelineStatus
	errMsg        string
	video         *models.VideoRef
	sections      []models.Section
	transcription *models.Transcription
	messages      []models.ChatMessage

	observers []func(Snapshot)

	// lifecycle of the current video: cancelled by Reset so abandoned poll
	// loops and streams are closed, not ignored. gen identifies the current
	// run; a goroutine holding an older gen may no longer touch the state.
	runCtx    context.Context
	runCancel context.CancelFunc
	gen       uint64
}

// NewService creates a pipeline state machine over the given gateway.
func NewService(gateway backend.Gateway, opts ...Option) Service {
	m := &machine{
		gateway:    gateway,
		pollPolicy: poll.Policy{Interval: 5 * time.Second, MaxAttempts: 60},
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
		status:     models.StatusIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Process validates the reference, claims the machine and runs the stages
// on a fresh goroutine.
func (m *machine) Process(rawURL string) error {
	id, ok := videoid.Extract(rawURL)
	if !ok {
		return apperrors.ValidationError("url", "not a recognizable YouTube video URL")
	}

	m.mu.Lock()
	if m.status != models.StatusIdle && m.status != models.StatusError {
		status := m.status
		m.mu.Unlock()
		return apperrors.Newf(apperrors.ErrCodeConflict, "pipeline is busy (status: %s)", status)
	}

	// A restart after an error behaves like a reset followed by a start.
	m.clearLocked()
	m.status = models.StatusLoading

	ctx, cancel := context.WithCancel(context.Background())
	m.runCtx = ctx
	m.runCancel = cancel
	gen := m.gen
	m.mu.Unlock()

	m.notify()

	go m.run(ctx, gen, id)
	return nil
}

// run executes the stages strictly sequentially: no stage begins before the
// prior one settles, and a failure aborts everything after it.
func (m *machine) run(ctx context.Context, gen uint64, videoID string) {
	// loading: metadata never fails, it falls back to defaults.
	video := m.gateway.FetchMetadata(ctx, videoID)
	if !m.advance(gen, models.StatusExtracting, func() { m.video = &video }) {
		return
	}

	if err := m.gateway.ExtractAudio(ctx, videoID); err != nil {
		m.fail(gen, "extracting audio", err)
		return
	}
	if !m.advance(gen, models.StatusTranscribing, nil) {
		return
	}

	taskID, err := m.gateway.StartTranscription(ctx, videoID)
	if err != nil {
		m.fail(gen, "starting transcription", err)
		return
	}

	transcription, err := m.awaitTranscription(ctx, taskID)
	if err != nil {
		m.fail(gen, "transcribing", err)
		return
	}
	if !m.advance(gen, models.StatusSectioning, func() { m.transcription = transcription }) {
		return
	}

	sections, err := m.gateway.CreateSections(ctx, videoID)
	if err != nil {
		m.fail(gen, "creating sections", err)
		return
	}

	m.advance(gen, models.StatusReady, func() {
		m.sections = sections
		if m.transcription == nil || len(m.transcription.Segments) == 0 {
			// Section-level granularity only: the derived transcript is the
			// sole transcript representation.
			m.transcription = deriveTranscript(sections)
		}
	})
}

// awaitTranscription waits for the backend to finish, either by bounded
// polling or by consuming the event stream. Both paths respect ctx so a
// reset closes them immediately.
func (m *machine) awaitTranscription(ctx context.Context, taskID string) (*models.Transcription, error) {
	if m.useStream {
		return m.consumeStream(ctx, taskID)
	}

	var result *models.Transcription
	err := poll.Until(ctx, m.pollPolicy, func(ctx context.Context) (bool, error) {
		transcription, err := m.gateway.PollTranscription(ctx, taskID)
		if err != nil {
			if errors.Is(err, backend.ErrStillProcessing) {
				return false, nil
			}
			// The backend flaps while workers spin up; errors consume an
			// attempt instead of aborting the wait.
			return false, poll.Retryable(err)
		}
		result = transcription
		return true, nil
	})
	if errors.Is(err, poll.ErrExhausted) {
		return nil, apperrors.TimeoutError("transcription")
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// consumeStream accumulates incremental segments until the terminal event.
// The overall poll bound still applies, expressed as a deadline.
func (m *machine) consumeStream(ctx context.Context, taskID string) (*models.Transcription, error) {
	deadline := time.Duration(m.pollPolicy.MaxAttempts) * m.pollPolicy.Interval
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	stream, err := m.gateway.StreamTranscription(ctx, taskID)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var segments []models.TranscriptSegment
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, apperrors.TimeoutError("transcription")
			}
			return nil, ctx.Err()
		case event, open := <-stream.Events:
			if !open {
				// Connection dropped: partial progress counts as complete
				// when anything arrived.
				if len(segments) == 0 {
					return nil, apperrors.New(apperrors.ErrCodeRemote, "transcription stream ended without data")
				}
				return assembleTranscription(segments), nil
			}
			if event.Complete {
				return assembleTranscription(segments), nil
			}
			if event.Segment != nil {
				segments = append(segments, *event.Segment)
			}
		}
	}
}

// Ask is a side transition available only while ready. Each question is an
// independent concurrent task: placement in the list follows submission
// order, resolution follows completion order.
func (m *machine) Ask(question string, playbackSeconds float64) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apperrors.ValidationError("question", "must not be empty")
	}

	m.mu.Lock()
	if m.status != models.StatusReady {
		status := m.status
		m.mu.Unlock()
		return "", apperrors.Newf(apperrors.ErrCodeConflict, "video is not ready for questions (status: %s)", status)
	}

	videoID := m.video.ID
	ctx := m.runCtx
	placeholderID := m.newID()
	now := m.now().UnixMilli()

	m.messages = append(m.messages,
		models.ChatMessage{
			ID:        m.newID(),
			Role:      models.RoleUser,
			Content:   question,
			Timestamp: now,
		},
		models.ChatMessage{
			ID:        placeholderID,
			Role:      models.RoleAssistant,
			Timestamp: now,
			IsLoading: true,
		},
	)
	m.mu.Unlock()
	m.notify()

	go m.answer(ctx, videoID, placeholderID, question, playbackSeconds)
	return placeholderID, nil
}

func (m *machine) answer(ctx context.Context, videoID, placeholderID, question string, playbackSeconds float64) {
	if ctx == nil {
		ctx = context.Background()
	}
	timestamp := timecode.FormatHMS(playbackSeconds)

	content, err := m.gateway.AnswerQuestion(ctx, videoID, question, timestamp)
	if err != nil {
		log.Printf("[ERROR] answering question for video %s: %v", videoID, err)
		m.resolvePlaceholder(placeholderID, answerFailureMessage, true)
		return
	}
	m.resolvePlaceholder(placeholderID, content, false)
}

// resolvePlaceholder swaps the placeholder entry in place: the list slot is
// kept, the entry is replaced with a fresh id.
func (m *machine) resolvePlaceholder(placeholderID, content string, isError bool) {
	m.mu.Lock()
	replaced := false
	for i := range m.messages {
		if m.messages[i].ID == placeholderID && m.messages[i].IsLoading {
			m.messages[i] = models.ChatMessage{
				ID:        m.newID(),
				Role:      models.RoleAssistant,
				Content:   content,
				Timestamp: m.now().UnixMilli(),
				IsError:   isError,
			}
			replaced = true
			break
		}
	}
	m.mu.Unlock()

	// The placeholder is gone after a reset; drop the stale answer.
	if replaced {
		m.notify()
	}
}

// Reset cancels in-flight work and clears everything atomically: no partial
// artifact is visible across the reset.
func (m *machine) Reset() {
	m.mu.Lock()
	m.clearLocked()
	m.status = models.StatusIdle
	m.mu.Unlock()
	m.notify()
}

// clearLocked must be called with the mutex held.
func (m *machine) clearLocked() {
	if m.runCancel != nil {
		m.runCancel()
		m.runCancel = nil
		m.runCtx = nil
	}
	// Any goroutine still holding the old generation is now stale.
	m.gen++
	m.video = nil
	m.sections = nil
	m.transcription = nil
	m.messages = nil
	m.errMsg = ""
}

// Snapshot returns a copy of the current state.
func (m *machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *machine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:   m.status,
		Error:    m.errMsg,
		Sections: append([]models.Section(nil), m.sections...),
		Messages: append([]models.ChatMessage(nil), m.messages...),
	}
	if m.video != nil {
		video := *m.video
		snap.Video = &video
	}
	if m.transcription != nil {
		transcription := models.Transcription{
			Segments: append([]models.TranscriptSegment(nil), m.transcription.Segments...),
			FullText: m.transcription.FullText,
		}
		snap.Transcription = &transcription
	}
	return snap
}

// Subscribe registers a state observer.
func (m *machine) Subscribe(fn func(Snapshot)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// advance moves to the next stage and applies mutate under the lock. It
// returns false when the run was cancelled underneath us (reset or session
// switch), in which case nothing is mutated.
func (m *machine) advance(gen uint64, next models.PipelineStatus, mutate func()) bool {
	m.mu.Lock()
	if gen != m.gen || !m.status.CanAdvanceTo(next) {
		m.mu.Unlock()
		return false
	}
	if mutate != nil {
		mutate()
	}
	m.status = next
	m.mu.Unlock()
	m.notify()
	return true
}

// fail transitions to the terminal error state, keeping artifacts from the
// stages that already completed. The caller is notified exactly once.
func (m *machine) fail(gen uint64, stage string, err error) {
	m.mu.Lock()
	if gen != m.gen || m.status.IsTerminal() || m.status == models.StatusIdle {
		// A reset or a newer run already superseded this one.
		m.mu.Unlock()
		return
	}
	m.status = models.StatusError
	m.errMsg = errorMessage(stage, err)
	m.mu.Unlock()

	log.Printf("[ERROR] pipeline failed while %s: %v", stage, err)
	m.notify()
}

func (m *machine) notify() {
	m.mu.Lock()
	observers := append(make([]func(Snapshot), 0, len(m.observers)), m.observers...)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// errorMessage builds the single human-readable message recorded for a
// stage failure.
func errorMessage(stage string, err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "error while " + stage
}

// assembleTranscription joins streamed segments into a transcription.
func assembleTranscription(segments []models.TranscriptSegment) *models.Transcription {
	var full []string
	for _, segment := range segments {
		if segment.Text != "" {
			full = append(full, segment.Text)
		}
	}
	return &models.Transcription{
		Segments: segments,
		FullText: strings.Join(full, " "),
	}
}

// deriveTranscript synthesizes segments and full text from section-level
// sections: one segment per section, summaries concatenated.
func deriveTranscript(sections []models.Section) *models.Transcription {
	segments := make([]models.TranscriptSegment, 0, len(sections))
	var full []string

	for _, section := range sections {
		text := strings.Join(section.Summary, " ")
		segments = append(segments, models.TranscriptSegment{
			Text:  text,
			Start: timecode.Parse(section.Start),
			End:   timecode.Parse(section.End),
		})
		if text != "" {
			full = append(full, text)
		}
	}

	return &models.Transcription{
		Segments: segments,
		FullText: strings.Join(full, " "),
	}
}
