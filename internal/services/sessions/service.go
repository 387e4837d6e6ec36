package sessions

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dalmia/vidly/internal/models"
	"github.com/dalmia/vidly/internal/services/pipeline"
	apperrors "github.com/dalmia/vidly/pkg/errors"
)

// defaultSessionName is the name a session carries until metadata for its
// video arrives.
const defaultSessionName = "New Session"

const mirrorTimeout = 5 * time.Second

// Service implements the SessionService interface. It owns the session
// list and keeps the active session in step with the pipeline by
// subscribing to its state changes.
type Service struct {
	repository SessionRepository
	pipeline   pipeline.Service

	mu           sync.Mutex
	activeID     string
	mirrorPaused bool

	newID func() string
}

// Ensure Service implements SessionService interface
var _ SessionService = (*Service)(nil)

// ServiceOption is a functional option for configuring the service
type ServiceOption func(*Service)

// WithIDGenerator replaces the session id source, for tests.
func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *Service) { s.newID = newID }
}

// NewService creates the session registry and wires the one-way mirror
// from the pipeline into the active session.
func NewService(repository SessionRepository, pipe pipeline.Service, opts ...ServiceOption) *Service {
	s := &Service{
		repository: repository,
		pipeline:   pipe,
		newID:      func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}

	if pipe != nil {
		pipe.Subscribe(s.mirror)
	}
	return s
}

// EnsureInitial guarantees at least one session exists and is active,
// creating a fresh one on first start.
func (s *Service) EnsureInitial(ctx context.Context) (*models.Session, error) {
	count, err := s.repository.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return s.Create(ctx, "")
	}

	active, err := s.repository.GetActive(ctx)
	if err == nil {
		s.setActiveID(active.ID)
		return active, nil
	}

	// Sessions exist but none is flagged active; promote the most recent.
	list, err := s.repository.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.Switch(ctx, list[0].ID)
}

// Create makes a new session, activates it, and resets the pipeline: a new
// session always starts from a clean slate.
func (s *Service) Create(ctx context.Context, name string) (*models.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultSessionName
	}

	session := &models.Session{
		ID:   s.newID(),
		Name: name,
	}
	if err := s.repository.Create(ctx, session); err != nil {
		return nil, err
	}
	return s.activate(ctx, session.ID)
}

func (s *Service) List(ctx context.Context) ([]models.Session, error) {
	return s.repository.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Session, error) {
	return s.repository.GetByID(ctx, id)
}

func (s *Service) Active(ctx context.Context) (*models.Session, error) {
	return s.repository.GetActive(ctx)
}

func (s *Service) Rename(ctx context.Context, id, name string) (*models.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ValidationError("name", "must not be empty")
	}

	session, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Name = name
	if err := s.repository.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Switch activates another session. The pipeline is reset first so any
// in-flight work for the previous video is cancelled, not merely ignored.
func (s *Service) Switch(ctx context.Context, id string) (*models.Session, error) {
	if _, err := s.repository.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.activate(ctx, id)
}

// Delete removes a session. Deleting the active session activates the most
// recent remaining one, or recreates a fresh initial session.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	wasActive := s.activeID == id
	s.mu.Unlock()

	if err := s.repository.Delete(ctx, id); err != nil {
		return err
	}
	if !wasActive {
		return nil
	}

	s.setActiveID("")
	list, err := s.repository.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		_, err = s.Create(ctx, "")
		return err
	}
	_, err = s.Switch(ctx, list[0].ID)
	return err
}

// activate flips the active flag and resets the pipeline with the mirror
// paused, so neither the outgoing nor the incoming session is wiped by the
// reset snapshot.
func (s *Service) activate(ctx context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	s.mirrorPaused = true
	s.activeID = ""
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.mirrorPaused = false
		s.mu.Unlock()
	}()

	if s.pipeline != nil {
		s.pipeline.Reset()
	}
	if err := s.repository.SetActive(ctx, id); err != nil {
		return nil, err
	}
	s.setActiveID(id)
	return s.repository.GetByID(ctx, id)
}

func (s *Service) setActiveID(id string) {
	s.mu.Lock()
	s.activeID = id
	s.mu.Unlock()
}

// mirror copies a pipeline snapshot into the active session. One-way only:
// session state never flows back into the pipeline.
func (s *Service) mirror(snap pipeline.Snapshot) {
	s.mu.Lock()
	id := s.activeID
	paused := s.mirrorPaused
	s.mu.Unlock()

	if paused || id == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()

	session, err := s.repository.GetByID(ctx, id)
	if err != nil {
		log.Printf("[ERROR] mirroring pipeline state: %v", err)
		return
	}

	applySnapshot(session, snap)
	if err := s.repository.Update(ctx, session); err != nil {
		log.Printf("[ERROR] mirroring pipeline state: %v", err)
	}
}

func applySnapshot(session *models.Session, snap pipeline.Snapshot) {
	if snap.Video != nil {
		video := models.VideoColumn(*snap.Video)
		session.Video = &video
		// Auto-name on first metadata: an untouched name adopts the
		// video title.
		if session.Name == defaultSessionName && snap.Video.Title != "" {
			session.Name = snap.Video.Title
		}
	} else {
		session.Video = nil
	}

	session.Sections = models.SectionList(snap.Sections)
	session.Messages = models.MessageList(snap.Messages)
	if snap.Transcription != nil {
		session.Segments = models.SegmentList(snap.Transcription.Segments)
		session.FullText = snap.Transcription.FullText
	} else {
		session.Segments = nil
		session.FullText = ""
	}
}
