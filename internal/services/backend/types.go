package backend

import (
	"context"
	"errors"

	"github.com/dalmia/vidly/internal/models"
)

// ErrStillProcessing is returned by PollTranscription while the backend has
// not finished the task. The poll loop treats it as "keep waiting".
var ErrStillProcessing = errors.New("transcription still processing")

// Gateway is the typed boundary to the remote processing backend. Every
// operation normalizes transport and parse failures into the shared error
// taxonomy; FetchMetadata is the single operation with a non-failing
// fallback path.
type Gateway interface {
	// FetchMetadata looks the video up via the oEmbed endpoint. It never
	// fails: on any error it falls back to a default title/thumbnail/duration.
	FetchMetadata(ctx context.Context, videoID string) models.VideoRef

	// ExtractAudio asks the backend to pull the video's audio track. The
	// response body is opaque and discarded.
	ExtractAudio(ctx context.Context, videoID string) error

	// StartTranscription kicks off transcription and returns the task id to
	// poll or stream against. Backends that key tasks by video return no id;
	// the video id is used as the task key then.
	StartTranscription(ctx context.Context, videoID string) (string, error)

	// PollTranscription checks a transcription task once. It returns
	// ErrStillProcessing while the backend reports 404 for the task.
	PollTranscription(ctx context.Context, taskID string) (*models.Transcription, error)

	// StreamTranscription opens the server-push event stream for a task.
	StreamTranscription(ctx context.Context, taskID string) (*SegmentStream, error)

	// CreateSections asks the backend to divide the video into titled,
	// time-ranged sections with bullet summaries.
	CreateSections(ctx context.Context, videoID string) ([]models.Section, error)

	// AnswerQuestion sends a question plus the playback timestamp
	// ("HH:MM:SS") and returns the plain-text answer.
	AnswerQuestion(ctx context.Context, videoID, question, timestamp string) (string, error)
}

// StreamEvent is one event from the transcription stream: either an
// incremental segment or the terminal completion marker.
type StreamEvent struct {
	Segment  *models.TranscriptSegment
	Complete bool
}

// videoRequest is the common request body for video-keyed operations.
type videoRequest struct {
	VideoURL string `json:"video_url"`
}

// questionRequest is the body for the question-answering operation.
type questionRequest struct {
	VideoURL  string `json:"video_url"`
	Question  string `json:"question"`
	Timestamp string `json:"timestamp"`
}

// transcribeResponse is the (optional) payload of the transcribe call.
type transcribeResponse struct {
	TaskID string `json:"task_id"`
}

// transcriptionPayload is the 200 payload of the transcription poll.
type transcriptionPayload struct {
	Segments []models.TranscriptSegment `json:"segments"`
	FullText string                     `json:"fullText"`
}

// sectionsEnvelope tolerates backends that wrap the section list.
type sectionsEnvelope struct {
	Sections []models.Section `json:"sections"`
}

// oembedResponse is the subset of the oEmbed lookup payload we use.
type oembedResponse struct {
	Title string `json:"title"`
}
