package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Section is a titled, time-ranged chapter of the video with a bullet-point
// summary. Start and End arrive from the backend as either time labels
// ("HH:MM:SS") or bare seconds; both are accepted and normalized downstream.
type Section struct {
	Title   string   `json:"title"`
	Summary []string `json:"summary"`
	Start   any      `json:"start"`
	End     any      `json:"end"`
}

// TranscriptSegment is a finer-grained time-ranged transcript fragment. When
// the backend exposes section-level granularity only, segments are derived
// 1:1 from sections.
type TranscriptSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcription holds the reconstructed transcript for a video.
type Transcription struct {
	Segments []TranscriptSegment `json:"segments"`
	FullText string              `json:"fullText"`
}

// SectionList is a JSON column wrapper for an ordered section sequence.
type SectionList []Section

// Value implements driver.Valuer for SectionList
func (l SectionList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for SectionList
func (l *SectionList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, l)
}

// SegmentList is a JSON column wrapper for an ordered segment sequence.
type SegmentList []TranscriptSegment

// Value implements driver.Valuer for SegmentList
func (l SegmentList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for SegmentList
func (l *SegmentList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, l)
}
