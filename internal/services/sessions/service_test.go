package sessions

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dalmia/vidly/internal/models"
	"github.com/dalmia/vidly/internal/services/pipeline"
)

// fakePipeline records resets and lets tests inject snapshots through the
// registered observers, standing in for the real state machine.
type fakePipeline struct {
	mu        sync.Mutex
	resets    int
	observers []func(pipeline.Snapshot)
}

func (p *fakePipeline) Process(string) error { return nil }

func (p *fakePipeline) Ask(string, float64) (string, error) { return "", nil }

func (p *fakePipeline) Reset() {
	p.mu.Lock()
	p.resets++
	p.mu.Unlock()
	p.emit(pipeline.Snapshot{Status: models.StatusIdle})
}

func (p *fakePipeline) Snapshot() pipeline.Snapshot { return pipeline.Snapshot{} }

func (p *fakePipeline) Subscribe(fn func(pipeline.Snapshot)) {
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
}

func (p *fakePipeline) emit(snap pipeline.Snapshot) {
	p.mu.Lock()
	observers := append(make([]func(pipeline.Snapshot), 0, len(p.observers)), p.observers...)
	p.mu.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
}

func (p *fakePipeline) resetCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

func testService(t *testing.T) (*Service, *fakePipeline) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Session{}))

	pipe := &fakePipeline{}
	counter := 0
	svc := NewService(NewRepository(db), pipe, WithIDGenerator(func() string {
		counter++
		return fmt.Sprintf("session-%d", counter)
	}))
	return svc, pipe
}

func TestEnsureInitialCreatesFirstSession(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	session, err := svc.EnsureInitial(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultSessionName, session.Name)
	assert.True(t, session.Active)

	// A second call reuses the existing active session.
	again, err := svc.EnsureInitial(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.ID, again.ID)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateActivatesAndResetsPipeline(t *testing.T) {
	svc, pipe := testService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "First")
	require.NoError(t, err)
	second, err := svc.Create(ctx, "Second")
	require.NoError(t, err)

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	refreshed, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.Active)

	assert.Equal(t, 2, pipe.resetCount())
}

func TestSwitchResetsPipelineAndFlipsActive(t *testing.T) {
	svc, pipe := testService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "First")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "Second")
	require.NoError(t, err)
	resetsBefore := pipe.resetCount()

	switched, err := svc.Switch(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, switched.Active)
	assert.Equal(t, resetsBefore+1, pipe.resetCount())

	_, err = svc.Switch(ctx, "missing")
	assert.Error(t, err)
}

func TestMirrorCopiesSnapshotIntoActiveSession(t *testing.T) {
	svc, pipe := testService(t)
	ctx := context.Background()

	session, err := svc.Create(ctx, "Named by hand")
	require.NoError(t, err)

	pipe.emit(pipeline.Snapshot{
		Status: models.StatusReady,
		Video:  &models.VideoRef{ID: "dQw4w9WgXcQ", Title: "Mirrored"},
		Sections: []models.Section{
			{Title: "Intro", Summary: []string{"hello"}, Start: "00:00:00", End: "00:00:30"},
		},
		Transcription: &models.Transcription{
			Segments: []models.TranscriptSegment{{Text: "hello", Start: 0, End: 30}},
			FullText: "hello",
		},
		Messages: []models.ChatMessage{{ID: "m1", Role: models.RoleUser, Content: "hi"}},
	})

	stored, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Video)
	assert.Equal(t, "Mirrored", stored.Video.Title)
	assert.Len(t, stored.Sections, 1)
	assert.Len(t, stored.Segments, 1)
	assert.Equal(t, "hello", stored.FullText)
	assert.Len(t, stored.Messages, 1)
	// An explicit name is never overwritten.
	assert.Equal(t, "Named by hand", stored.Name)
}

func TestMirrorAutoNamesDefaultSession(t *testing.T) {
	svc, pipe := testService(t)
	ctx := context.Background()

	session, err := svc.Create(ctx, "")
	require.NoError(t, err)
	require.Equal(t, defaultSessionName, session.Name)

	pipe.emit(pipeline.Snapshot{
		Status: models.StatusExtracting,
		Video:  &models.VideoRef{ID: "dQw4w9WgXcQ", Title: "How to Go"},
	})

	stored, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "How to Go", stored.Name)
}

func TestSwitchDoesNotWipeStoredSessions(t *testing.T) {
	svc, pipe := testService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "First")
	require.NoError(t, err)
	pipe.emit(pipeline.Snapshot{
		Status: models.StatusReady,
		Video:  &models.VideoRef{ID: "dQw4w9WgXcQ", Title: "Keep me"},
	})

	second, err := svc.Create(ctx, "Second")
	require.NoError(t, err)

	// Create reset the pipeline; the reset snapshot must not have wiped
	// the first session's mirrored state.
	stored, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Video)
	assert.Equal(t, "Keep me", stored.Video.Title)

	// And switching back must not wipe it either.
	_, err = svc.Switch(ctx, second.ID)
	require.NoError(t, err)
	stored, err = svc.Get(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Video)
}

func TestRename(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	session, err := svc.Create(ctx, "Before")
	require.NoError(t, err)

	renamed, err := svc.Rename(ctx, session.ID, "After")
	require.NoError(t, err)
	assert.Equal(t, "After", renamed.Name)

	_, err = svc.Rename(ctx, session.ID, "   ")
	assert.Error(t, err)
}

func TestDeleteActiveSessionActivatesAnother(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "First")
	require.NoError(t, err)
	second, err := svc.Create(ctx, "Second")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, second.ID))

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
}

func TestDeleteLastSessionRecreatesInitial(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	only, err := svc.Create(ctx, "Only")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, only.ID))

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultSessionName, active.Name)
	assert.NotEqual(t, only.ID, active.ID)
}

func TestDeleteInactiveSessionKeepsActive(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "First")
	require.NoError(t, err)
	second, err := svc.Create(ctx, "Second")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, first.ID))

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}
