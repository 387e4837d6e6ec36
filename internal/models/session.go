package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Session is one user-initiated "new video" workspace: the video reference,
// the derived sections/transcript and the conversation. The registry owns
// the list; the pipeline's working state is mirrored in one-way on every
// change.
type Session struct {
	ID        string         `gorm:"primarykey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	Active    bool           `gorm:"index" json:"active"`
	Video     *VideoColumn   `gorm:"type:json" json:"video,omitempty"`
	Sections  SectionList    `gorm:"type:json" json:"sections,omitempty"`
	Segments  SegmentList    `gorm:"type:json" json:"segments,omitempty"`
	FullText  string         `gorm:"type:text" json:"fullText,omitempty"`
	Messages  MessageList    `gorm:"type:json" json:"messages,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM
func (Session) TableName() string {
	return "sessions"
}

// VideoColumn is a JSON column wrapper around VideoRef.
type VideoColumn VideoRef

// Value implements driver.Valuer for VideoColumn
func (v VideoColumn) Value() (driver.Value, error) {
	return json.Marshal(v)
}

// Scan implements sql.Scanner for VideoColumn
func (v *VideoColumn) Scan(value interface{}) error {
	if value == nil {
		*v = VideoColumn{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, v)
}
