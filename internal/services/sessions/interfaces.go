package sessions

import (
	"context"

	"github.com/dalmia/vidly/internal/models"
)

// SessionRepository defines the interface for session persistence
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	List(ctx context.Context) ([]models.Session, error)
	GetByID(ctx context.Context, id string) (*models.Session, error)
	GetActive(ctx context.Context) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	SetActive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// SessionService defines the business logic interface for the session
// registry. Exactly one session is active at a time; the pipeline's working
// state mirrors into it on every change.
type SessionService interface {
	// EnsureInitial guarantees at least one session exists and is active.
	EnsureInitial(ctx context.Context) (*models.Session, error)

	Create(ctx context.Context, name string) (*models.Session, error)
	List(ctx context.Context) ([]models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Active(ctx context.Context) (*models.Session, error)
	Rename(ctx context.Context, id, name string) (*models.Session, error)

	// Switch activates another session and resets the pipeline, cancelling
	// any in-flight work for the previous video.
	Switch(ctx context.Context, id string) (*models.Session, error)

	Delete(ctx context.Context, id string) error
}
