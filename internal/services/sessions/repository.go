package sessions

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dalmia/vidly/internal/models"
	apperrors "github.com/dalmia/vidly/pkg/errors"
)

type Repository struct {
	db *gorm.DB
}

// Ensure Repository implements SessionRepository interface
var _ SessionRepository = (*Repository)(nil)

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, session *models.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return apperrors.DatabaseError("creating session", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, apperrors.DatabaseError("listing sessions", err)
	}
	return sessions, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("session", id)
		}
		return nil, apperrors.DatabaseError("getting session", err)
	}
	return &session, nil
}

func (r *Repository) GetActive(ctx context.Context) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("active session", "")
		}
		return nil, apperrors.DatabaseError("getting active session", err)
	}
	return &session, nil
}

func (r *Repository) Update(ctx context.Context, session *models.Session) error {
	result := r.db.WithContext(ctx).Save(session)
	if result.Error != nil {
		return apperrors.DatabaseError("updating session", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("session", session.ID)
	}
	return nil
}

// SetActive flips the single active flag to the given session.
func (r *Repository) SetActive(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Session{}).
			Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Session{}).
			Where("id = ?", id).
			Update("active", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("session", id)
	}
	if err != nil {
		return apperrors.DatabaseError("activating session", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.DatabaseError("deleting session", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("session", id)
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Session{}).Count(&count).Error; err != nil {
		return 0, apperrors.DatabaseError("counting sessions", err)
	}
	return count, nil
}
