package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalmia/vidly/internal/models"
	apperrors "github.com/dalmia/vidly/pkg/errors"
	"github.com/dalmia/vidly/pkg/videoid"
)

// Defaults used when the metadata lookup fails. The oEmbed endpoint gives
// no duration either way, so the duration label is always the placeholder.
const (
	defaultTitle         = "YouTube Video"
	defaultDurationLabel = "10:30"
	thumbnailURLFormat   = "https://img.youtube.com/vi/%s/maxresdefault.jpg"
)

// Client talks to the remote processing backend and the oEmbed lookup.
type Client struct {
	httpClient *http.Client
	baseURL    string
	oembedURL  string
	userAgent  string
}

// Config holds configuration for the backend client
type Config struct {
	BaseURL   string
	OembedURL string
	UserAgent string
	Timeout   time.Duration
}

// NewClient creates a new backend client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8002"
	}
	if cfg.OembedURL == "" {
		cfg.OembedURL = "https://www.youtube.com/oembed"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Vidly/1.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		oembedURL:  cfg.OembedURL,
		userAgent:  cfg.UserAgent,
	}
}

// FetchMetadata looks the video up via oEmbed. This is the only operation
// with a non-failing fallback: any error degrades to default metadata.
func (c *Client) FetchMetadata(ctx context.Context, videoID string) models.VideoRef {
	ref := models.VideoRef{
		ID:            videoID,
		Title:         defaultTitle,
		Thumbnail:     fmt.Sprintf(thumbnailURLFormat, videoID),
		DurationLabel: defaultDurationLabel,
	}

	lookupURL := fmt.Sprintf("%s?url=%s&format=json",
		c.oembedURL, url.QueryEscape(videoid.WatchURL(videoID)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return ref
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[WARN] oEmbed lookup failed for %s: %v", videoID, err)
		return ref
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("[WARN] oEmbed lookup returned status %d for %s", resp.StatusCode, videoID)
		return ref
	}

	var payload oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Title == "" {
		return ref
	}

	ref.Title = payload.Title
	return ref
}

// ExtractAudio asks the backend to pull the audio track for a video.
func (c *Client) ExtractAudio(ctx context.Context, videoID string) error {
	resp, err := c.post(ctx, "/videos/extract_audio", videoRequest{VideoURL: videoid.WatchURL(videoID)})
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.remoteError("extract audio", resp)
	}
	return nil
}

// StartTranscription kicks off transcription for a video.
func (c *Client) StartTranscription(ctx context.Context, videoID string) (string, error) {
	resp, err := c.post(ctx, "/videos/transcribe", videoRequest{VideoURL: videoid.WatchURL(videoID)})
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.remoteError("start transcription", resp)
	}

	// The response body is opaque for most backends; read the task id when
	// one is present and fall back to keying the task by video.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return videoID, nil
	}
	var payload transcribeResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.TaskID != "" {
		return payload.TaskID, nil
	}
	return videoID, nil
}

// PollTranscription checks a transcription task once. 404 means the backend
// is still processing.
func (c *Client) PollTranscription(ctx context.Context, taskID string) (*models.Transcription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/transcription/%s", c.baseURL, url.PathEscape(taskID)), nil)
	if err != nil {
		return nil, apperrors.TransportError("poll transcription", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.TransportError("poll transcription", err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrStillProcessing
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, c.remoteError("poll transcription", resp)
	}

	var payload transcriptionPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRemote, "malformed transcription payload")
	}

	return &models.Transcription{Segments: payload.Segments, FullText: payload.FullText}, nil
}

// CreateSections asks the backend to divide the video into sections.
func (c *Client) CreateSections(ctx context.Context, videoID string) ([]models.Section, error) {
	resp, err := c.post(ctx, "/videos/create_sections", videoRequest{VideoURL: videoid.WatchURL(videoID)})
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.remoteError("create sections", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.TransportError("create sections", err)
	}

	// The backend answers with a bare array; tolerate the wrapped form too.
	var sections []models.Section
	if err := json.Unmarshal(body, &sections); err == nil {
		return sections, nil
	}
	var envelope sectionsEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Sections != nil {
		return envelope.Sections, nil
	}
	return nil, apperrors.New(apperrors.ErrCodeRemote, "malformed sections payload")
}

// AnswerQuestion sends a question and playback timestamp; the answer comes
// back as plain text.
func (c *Client) AnswerQuestion(ctx context.Context, videoID, question, timestamp string) (string, error) {
	resp, err := c.post(ctx, "/videos/answer_question", questionRequest{
		VideoURL:  videoid.WatchURL(videoID),
		Question:  question,
		Timestamp: timestamp,
	})
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.remoteError("answer question", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.TransportError("answer question", err)
	}

	answer := strings.TrimSpace(string(body))
	// Some backends quote the plain-text answer as a JSON string.
	var unquoted string
	if json.Unmarshal(body, &unquoted) == nil {
		answer = strings.TrimSpace(unquoted)
	}
	return answer, nil
}

// post serializes body as JSON and issues a POST against the backend.
func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encoding request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.TransportError(path, err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.TransportError(path, err)
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
}

// remoteError extracts a human-readable message from a non-success
// response: the body's JSON "detail" field when parseable, the raw status
// line otherwise. The body is consumed here either way.
func (c *Client) remoteError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	message := fmt.Sprintf("%s failed: %s", operation, resp.Status)
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		message = payload.Detail
	}

	log.Printf("[ERROR] backend returned status %d for %s", resp.StatusCode, operation)
	return apperrors.RemoteError(operation, resp.StatusCode, message)
}

// drainAndClose fully consumes the body before closing so the underlying
// connection can be reused instead of leaked.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
