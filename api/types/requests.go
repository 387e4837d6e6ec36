package types

// ProcessRequest starts the pipeline for a video URL
type ProcessRequest struct {
	URL string `json:"url" binding:"required" example:"https://www.youtube.com/watch?v=dQw4w9WgXcQ"`
}

// ChatRequest submits a question about the current video
type ChatRequest struct {
	Question        string  `json:"question" binding:"required" example:"What is the main argument?"`
	PlaybackSeconds float64 `json:"playback_seconds,omitempty" example:"93.5"`
	// Instructions, when present, are prepended to the question so the
	// answering model can be steered per-question.
	Instructions string `json:"instructions,omitempty" example:"Answer in one sentence"`
}

// PositionRequest reports the current playback position
type PositionRequest struct {
	Seconds float64 `json:"seconds" example:"45"`
	// ActiveView reports whether the section view is currently visible;
	// hidden views neither recompute nor scroll.
	ActiveView bool `json:"active_view" example:"true"`
}

// SessionCreateRequest creates a new session
type SessionCreateRequest struct {
	Name string `json:"name,omitempty" example:"Conference talk"`
}

// SessionRenameRequest renames a session
type SessionRenameRequest struct {
	Name string `json:"name" binding:"required" example:"Renamed session"`
}
