package types

import "github.com/dalmia/vidly/internal/models"

// Status constants for API responses
const (
	StatusOK         = "ok"
	StatusError      = "error"
	StatusProcessing = "processing"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`  // One of the Status constants above
	Message string `json:"message"` // Human-readable message
}

// PipelineStatusResponse reports the state machine and the video metadata
type PipelineStatusResponse struct {
	BaseResponse
	PipelineStatus models.PipelineStatus `json:"pipeline_status"`
	Error          string                `json:"error,omitempty"`
	Video          *models.VideoRef      `json:"video,omitempty"`
}

// SectionsResponse for the derived section list
type SectionsResponse struct {
	BaseResponse
	Sections []models.Section `json:"sections"`
	Count    int              `json:"count"`
}

// TranscriptResponse for the derived transcript
type TranscriptResponse struct {
	BaseResponse
	Segments []models.TranscriptSegment `json:"segments"`
	FullText string                     `json:"fullText"`
}

// ChatAcceptedResponse acknowledges a submitted question. The answer
// resolves asynchronously into the message list.
type ChatAcceptedResponse struct {
	BaseResponse
	MessageID string               `json:"message_id"`
	Messages  []models.ChatMessage `json:"messages"`
}

// MessagesResponse for the conversation history
type MessagesResponse struct {
	BaseResponse
	Messages []models.ChatMessage `json:"messages"`
	Count    int                  `json:"count"`
}

// PositionResponse carries the sync decision for a playback position
type PositionResponse struct {
	BaseResponse
	ActiveIndex int  `json:"active_index"`
	Scroll      bool `json:"scroll"`
}

// SingleSessionResponse for a single session
type SingleSessionResponse struct {
	BaseResponse
	Session *models.Session `json:"session"`
}

// SessionsResponse for the session list
type SessionsResponse struct {
	BaseResponse
	Sessions []models.Session `json:"sessions"`
	Count    int              `json:"count"`
}

// ErrorResponse for detailed error information
type ErrorResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`   // Error code/type
	Details interface{} `json:"details,omitempty"` // Additional error details
}

// HealthResponse for health check endpoint
type HealthResponse struct {
	BaseResponse
	Version  string                 `json:"version,omitempty"`
	Services map[string]interface{} `json:"services,omitempty"`
}
