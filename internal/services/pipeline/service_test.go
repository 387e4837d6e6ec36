package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dalmia/vidly/internal/models"
	"github.com/dalmia/vidly/internal/services/backend"
	"github.com/dalmia/vidly/pkg/poll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
const testVideoID = "dQw4w9WgXcQ"

// MockGateway is a mock implementation of the backend.Gateway interface
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) FetchMetadata(ctx context.Context, videoID string) models.VideoRef {
	args := m.Called(ctx, videoID)
	return args.Get(0).(models.VideoRef)
}

func (m *MockGateway) ExtractAudio(ctx context.Context, videoID string) error {
	args := m.Called(ctx, videoID)
	return args.Error(0)
}

func (m *MockGateway) StartTranscription(ctx context.Context, videoID string) (string, error) {
	args := m.Called(ctx, videoID)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) PollTranscription(ctx context.Context, taskID string) (*models.Transcription, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transcription), args.Error(1)
}

func (m *MockGateway) StreamTranscription(ctx context.Context, taskID string) (*backend.SegmentStream, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.SegmentStream), args.Error(1)
}

func (m *MockGateway) CreateSections(ctx context.Context, videoID string) ([]models.Section, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Section), args.Error(1)
}

func (m *MockGateway) AnswerQuestion(ctx context.Context, videoID, question, timestamp string) (string, error) {
	args := m.Called(ctx, videoID, question, timestamp)
	return args.String(0), args.Error(1)
}

func testVideo() models.VideoRef {
	return models.VideoRef{ID: testVideoID, Title: "Test Video", Thumbnail: "thumb", DurationLabel: "10:30"}
}

func testSections() []models.Section {
	return []models.Section{
		{Title: "Intro", Summary: []string{"welcome", "overview"}, Start: "00:00:00", End: "00:00:30"},
		{Title: "Body", Summary: []string{"details"}, Start: "00:00:30", End: "00:01:30"},
	}
}

func fastPoll() Option {
	return WithPollPolicy(poll.Policy{Interval: time.Millisecond, MaxAttempts: 20})
}

func waitForStatus(t *testing.T, svc Service, want models.PipelineStatus) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		snap = svc.Snapshot()
		return snap.Status == want
	}, 2*time.Second, time.Millisecond, "pipeline never reached %s (last: %s)", want, snap.Status)
	return snap
}

func TestProcessHappyPath(t *testing.T) {
	gateway := new(MockGateway)
	gateway.On("FetchMetadata", mock.Anything, testVideoID).Return(testVideo())
	gateway.On("ExtractAudio", mock.Anything, testVideoID).Return(nil)
	gateway.On("StartTranscription", mock.Anything, testVideoID).Return("task-1", nil)
	gateway.On("PollTranscription", mock.Anything, "task-1").Return(nil, backend.ErrStillProcessing).Once()
	gateway.On("PollTranscription", mock.Anything, "task-1").Return(&models.Transcription{}, nil)
	gateway.On("CreateSections", mock.Anything, testVideoID).Return(testSections(), nil)

	svc := NewService(gateway, fastPoll())
	require.NoError(t, svc.Process(testURL))

	snap := waitForStatus(t, svc, models.StatusReady)

	require.NotNil(t, snap.Video)
	assert.Equal(t, "Test Video", snap.Video.Title)
	assert.Len(t, snap.Sections, 2)

	// Section-level granularity: the transcript is derived from sections.
	require.NotNil(t, snap.Transcription)
	require.Len(t, snap.Transcription.Segments, 2)
	assert.Equal(t, "welcome overview", snap.Transcription.Segments[0].Text)
	assert.Equal(t, 0.0, snap.Transcription.Segments[0].Start)
	assert.Equal(t, 30.0, snap.Transcription.Segments[1].Start)
	assert.Equal(t, "welcome overview details", snap.Transcription.FullText)

	gateway.AssertExpectations(t)
}

func TestProcessKeepsSegmentLevelTranscript(t *testing.T) {
	polled := &models.Transcription{
		Segments: []models.TranscriptSegment{{Text: "word level", Start: 0, End: 2}},
		FullText: "word level",
	}

	gateway := new(MockGateway)
	gateway.On("FetchMetadata", mock.Anything, testVideoID).Return(testVideo())
	gateway.On("ExtractAudio", mock.Anything, testVideoID).Return(nil)
	gateway.On("StartTranscription", mock.Anything, testVideoID).Return("task-1", nil)
	gateway.On("PollTranscription", mock.Anything, "task-1").Return(polled, nil)
	gateway.On("CreateSections", mock.Anything, testVideoID).Return(testSections(), nil)

	svc := NewService(gateway, fastPoll())
	require.NoError(t, svc.Process(testURL))

	snap := waitForStatus(t, svc, models.StatusReady)
	assert.Equal(t, "word level", snap.Transcription.FullText)
}

func TestProcessInvalidURL(t *testing.T) {
	svc := NewService(new(MockGateway))
	err := svc.Process("not a url")
	assert.Error(t, err)
	assert.Equal(t, models.StatusIdle, svc.Snapshot().Status)
}

func TestProcessRejectedWhileBusy(t *testing.T) {
	release := make(chan struct{})
	gateway := new(MockGateway)
	gateway.On("FetchMetadata", mock.Anything, testVideoID).Return(testVideo())
	gateway.On("ExtractAudio", mock.Anything, testVideoID).
		Run(func(mock.Arguments) { <-release }).Return(fmt.Errorf("cancelled"))

	svc := NewService(gateway, fastPoll())
	require.NoError(t, svc.Process(testURL))
	defer close(release)

	err := svc.Process(testURL)
	assert.Error(t, err)
}

// A run abandoned by Reset must not mutate the machine once a new run has
// claimed it, even when its in-flight gateway call returns an error late.
func TestStaleRunCannotCorruptFreshRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	gateway := new(MockGateway)
	gateway.On("FetchMetadata", mock.Anything, testVideoID).Return(testVideo())
	gateway.On("ExtractAudio", mock.Anything, testVideoID).
		Run(func(mock.Arguments) { close(started); <-release }).
		Return(fmt.Errorf("context canceled")).Once()
	gateway.On("ExtractAudio", mock.Anything, testVideoID).Return(nil)
	gateway.On("StartTranscription", mock.Anything, testVideoID).Return("task-1", nil)
	gateway.On("PollTranscription", mock.Anything, "task-1").Return(&models.Transcription{}, nil)
	gateway.On("CreateSections", mock.Anything, testVideoID).Return(testSections(), nil)

	svc := NewService(gateway, fastPoll())
	require.NoError(t, svc.Process(testURL))
	<-started

	// Abandon the first run mid-stage and start over.
	svc.Reset()
	require.NoError(t, svc.Process(testURL))

	// The abandoned run's gateway call finally returns with an error; that
	// failure belongs to the dead run and must land nowhere.
	close(release)

	snap := waitForStatus(t, svc, models.StatusReady)
	assert.Empty(t, snap.Error)

	// Give the stale goroutine time to finish before the final check.
	time.Sleep(20 * time.Millisecond)
	final := svc.Snapshot()
	assert.Equal(t, models.StatusReady, final.Status)
	assert.Empty(t, final.Error)
}

func TestFailureAtExtractingAbortsLaterStages(t *testing.T) {
	gateway := new(MockGateway)
	gateway.On("FetchMetadata", mock.Anything, testVideoID).Return(testVideo())
	gateway.On("ExtractAudio", mock.Anything, testVideoID).Return(fmt.Errorf("disk full"))

	svc := NewService(gateway, fastPoll())
	require.NoError(t, svc.Process(testURL))

	snap := waitForStatus(t, svc, models.StatusError)

	assert.NotEmpty(t, snap.Error)
	// Only the failing and subsequent stages are aborted: metadata stays.
	require.NotNil(t, snap.Video)
	assert.Equal(t, "Test Video", snap.Video.Title)
	assert.Empty(t, snap.Sections)

	gateway.AssertNotCalled(t, "StartTranscription", mock.Anything, mock.Anything)
	gateway.AssertNotCalled(t, "CreateSections", mock.Anything, mock.Anything)
}

func TestTranscriptionPollTimesOut(t *testing.T) {
	gateway := new(MockGateway)
	gateway.On("FetchMetadata", mock.Anything, testVideoID).Return(testVideo())
	gateway.On("ExtractAudio", mock.Anything, testVideoID).Return(nil)
	gateway.On("StartTranscription", mock.Anything, testVideoID).Return("task-1", nil)
	gateway.On("PollTranscription", mock.Anything, "task-1").Return(nil, backend.ErrStillProcessing)

	svc := NewService(gateway, WithPollPolicy(poll.Policy{Interval: time.Millisecond, MaxAttempts: 3}))
	require.NoError(t, svc.Process(testURL))

	snap := waitForStatus(t, svc, models.StatusError)
	assert.Contains(t, snap.Error, "timed out")
	gateway.AssertNotCalled(t, "CreateSections", mock.Anything, mock.Anything)
}

func TestResetClearsEverything(t *testing.T) {
	gateway := readyGateway()
	svc := NewService(gateway, fastPoll())
	require.NoError(t, svc.Process(testURL))
	waitForStatus(t, svc, models.StatusReady)

	gateway.On("AnswerQuestion", mock.Anything, testVideoID, "q", mock.Anything).Return("a", nil)
	_, err := svc.Ask("q", 0)
	require.NoError(t, err)

	svc.Reset()

	snap := svc.Snapshot()
	assert.Equal(t, models.StatusIdle, snap.Status)
	assert.Nil(t, snap.Video)
	assert.Empty(t, snap.Sections)
	assert.Nil(t, snap.Transcription)
	assert.Empty(t, snap.Messages)
	assert.Empty(t, snap.Error)
}

func readyGateway() *MockGateway {
	gateway := new(MockGateway)
	gateway.On("FetchMetadata", mock.Anything, testVideoID).Return(testVideo())
	gateway.On("ExtractAudio", mock.Anything, testVideoID).Return(nil)
	gateway.On("StartTranscription", mock.Anything, testVideoID).Return("task-1", nil)
	gateway.On("PollTranscription", mock.Anything, "task-1").Return(&models.Transcription{}, nil)
	gateway.On("CreateSections", mock.Anything, testVideoID).Return(testSections(), nil)
	return gateway
}

func TestAskRequiresReady(t *testing.T) {
	svc := NewService(new(MockGateway))
	_, err := svc.Ask("anything", 0)
	assert.Error(t, err)
}

func TestAskAppendsPlaceholderThenResolves(t *testing.T) {
	gateway := readyGateway()
	svc := NewService(gateway, fastPoll())
	require.NoError(t, svc.Process(testURL))
	waitForStatus(t, svc, models.StatusReady)

	release := make(chan struct{})
	gateway.On("AnswerQuestion", mock.Anything, testVideoID, "what?", "00:01:30").
		Run(func(mock.Arguments) { <-release }).Return("because", nil)

	placeholderID, err := svc.Ask("what?", 90)
	require.NoError(t, err)

	// Placeholder is visible synchronously, still loading.
	snap := svc.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, models.RoleUser, snap.Messages[0].Role)
	assert.Equal(t, "what?", snap.Messages[0].Content)
	assert.Equal(t, placeholderID, snap.Messages[1].ID)
	assert.True(t, snap.Messages[1].IsLoading)

	close(release)
	require.Eventually(t, func() bool {
		msgs := svc.Snapshot().Messages
		return len(msgs) == 2 && !msgs[1].IsLoading
	}, 2*time.Second, time.Millisecond)

	resolved := svc.Snapshot().Messages[1]
	assert.Equal(t, "because", resolved.Content)
	assert.False(t, resolved.IsError)
	// The placeholder id is not reused; the entry was swapped.
	assert.NotEqual(t, placeholderID, resolved.ID)
}

func TestAskFailureResolvesWithFixedMessage(t *testing.T) {
	gateway := readyGateway()
	svc := NewService(gateway, fastPoll())
	require.NoError(t, svc.Process(testURL))
	waitForStatus(t, svc, models.StatusReady)

	gateway.On("AnswerQuestion", mock.Anything, testVideoID, "what?", mock.Anything).
		Return("", fmt.Errorf("backend down"))

	_, err := svc.Ask("what?", 0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		msgs := svc.Snapshot().Messages
		return len(msgs) == 2 && !msgs[1].IsLoading
	}, 2*time.Second, time.Millisecond)

	resolved := svc.Snapshot().Messages[1]
	assert.Equal(t, answerFailureMessage, resolved.Content)
	assert.True(t, resolved.IsError)
}

// Submission order is preserved even when a later question resolves first.
func TestConcurrentAnswersKeepSubmissionOrder(t *testing.T) {
	gateway := readyGateway()
	svc := NewService(gateway, fastPoll())
	require.NoError(t, svc.Process(testURL))
	waitForStatus(t, svc, models.StatusReady)

	releaseA := make(chan struct{})
	releaseB := make(chan struct{})
	gateway.On("AnswerQuestion", mock.Anything, testVideoID, "question A", mock.Anything).
		Run(func(mock.Arguments) { <-releaseA }).Return("answer A", nil)
	gateway.On("AnswerQuestion", mock.Anything, testVideoID, "question B", mock.Anything).
		Run(func(mock.Arguments) { <-releaseB }).Return("answer B", nil)

	_, err := svc.Ask("question A", 0)
	require.NoError(t, err)
	_, err = svc.Ask("question B", 0)
	require.NoError(t, err)

	// B resolves before A.
	close(releaseB)
	require.Eventually(t, func() bool {
		msgs := svc.Snapshot().Messages
		return len(msgs) == 4 && !msgs[3].IsLoading
	}, 2*time.Second, time.Millisecond)

	// A's placeholder is still pending, above B's resolved answer.
	msgs := svc.Snapshot().Messages
	assert.Equal(t, "question A", msgs[0].Content)
	assert.True(t, msgs[1].IsLoading)
	assert.Equal(t, "question B", msgs[2].Content)
	assert.Equal(t, "answer B", msgs[3].Content)

	close(releaseA)
	require.Eventually(t, func() bool {
		msgs := svc.Snapshot().Messages
		return !msgs[1].IsLoading
	}, 2*time.Second, time.Millisecond)

	msgs = svc.Snapshot().Messages
	assert.Equal(t, "answer A", msgs[1].Content)
	assert.Equal(t, "answer B", msgs[3].Content)
}

func TestObserversSeeEveryTransition(t *testing.T) {
	gateway := readyGateway()
	svc := NewService(gateway, fastPoll())

	var mu sync.Mutex
	var seen []models.PipelineStatus
	svc.Subscribe(func(snap Snapshot) {
		mu.Lock()
		seen = append(seen, snap.Status)
		mu.Unlock()
	})

	require.NoError(t, svc.Process(testURL))
	waitForStatus(t, svc, models.StatusReady)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []models.PipelineStatus{
		models.StatusLoading,
		models.StatusExtracting,
		models.StatusTranscribing,
		models.StatusSectioning,
		models.StatusReady,
	}, seen)
}

func TestStreamingTranscription(t *testing.T) {
	events := make(chan backend.StreamEvent, 3)
	events <- backend.StreamEvent{Segment: &models.TranscriptSegment{Text: "streamed", Start: 0, End: 1}}
	events <- backend.StreamEvent{Complete: true}
	close(events)
	stream := &backend.SegmentStream{Events: events}

	gateway := new(MockGateway)
	gateway.On("FetchMetadata", mock.Anything, testVideoID).Return(testVideo())
	gateway.On("ExtractAudio", mock.Anything, testVideoID).Return(nil)
	gateway.On("StartTranscription", mock.Anything, testVideoID).Return("task-1", nil)
	gateway.On("StreamTranscription", mock.Anything, "task-1").Return(stream, nil)
	gateway.On("CreateSections", mock.Anything, testVideoID).Return(testSections(), nil)

	svc := NewService(gateway, fastPoll(), WithStreaming(true))
	require.NoError(t, svc.Process(testURL))

	snap := waitForStatus(t, svc, models.StatusReady)
	require.NotNil(t, snap.Transcription)
	require.Len(t, snap.Transcription.Segments, 1)
	assert.Equal(t, "streamed", snap.Transcription.Segments[0].Text)
	gateway.AssertNotCalled(t, "PollTranscription", mock.Anything, mock.Anything)
}
