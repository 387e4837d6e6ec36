package models

// VideoRef identifies the subject video. It is created once the metadata
// fetch succeeds and is immutable until the session is reset.
type VideoRef struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Thumbnail     string `json:"thumbnail"`
	DurationLabel string `json:"duration"`
}

// PipelineStatus is the single status enum the processing pipeline exposes.
// Transitions move strictly forward; "error" is reachable from every
// non-terminal state and "idle" only via an explicit reset.
type PipelineStatus string

const (
	StatusIdle         PipelineStatus = "idle"
	StatusLoading      PipelineStatus = "loading"
	StatusExtracting   PipelineStatus = "extracting"
	StatusTranscribing PipelineStatus = "transcribing"
	StatusSectioning   PipelineStatus = "sectioning"
	StatusReady        PipelineStatus = "ready"
	StatusError        PipelineStatus = "error"
)

// statusRank orders the forward-moving states. Error and idle sit outside
// the ordering because they are reached by failure and reset respectively.
var statusRank = map[PipelineStatus]int{
	StatusIdle:         0,
	StatusLoading:      1,
	StatusExtracting:   2,
	StatusTranscribing: 3,
	StatusSectioning:   4,
	StatusReady:        5,
}

// IsTerminal reports whether no further stage will run from this status.
func (s PipelineStatus) IsTerminal() bool {
	return s == StatusReady || s == StatusError
}

// CanAdvanceTo reports whether moving from s to next is a legal forward
// transition.
func (s PipelineStatus) CanAdvanceTo(next PipelineStatus) bool {
	if next == StatusError {
		return !s.IsTerminal()
	}
	if next == StatusIdle {
		// Only reset moves back to idle, from anywhere.
		return true
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to == from+1
}
