package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/dalmia/vidly/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(backendURL, oembedURL string) *Client {
	return NewClient(Config{BaseURL: backendURL, OembedURL: oembedURL})
}

func TestFetchMetadata(t *testing.T) {
	t.Run("uses oEmbed title on success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.RawQuery, "dQw4w9WgXcQ")
			_ = json.NewEncoder(w).Encode(map[string]string{"title": "Never Gonna Give You Up"})
		}))
		defer server.Close()

		client := newTestClient("http://unused", server.URL)
		ref := client.FetchMetadata(context.Background(), "dQw4w9WgXcQ")

		assert.Equal(t, "dQw4w9WgXcQ", ref.ID)
		assert.Equal(t, "Never Gonna Give You Up", ref.Title)
		assert.Contains(t, ref.Thumbnail, "dQw4w9WgXcQ")
		assert.Equal(t, defaultDurationLabel, ref.DurationLabel)
	})

	t.Run("falls back to defaults on lookup failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := newTestClient("http://unused", server.URL)
		ref := client.FetchMetadata(context.Background(), "dQw4w9WgXcQ")

		assert.Equal(t, defaultTitle, ref.Title)
		assert.Equal(t, "dQw4w9WgXcQ", ref.ID)
	})

	t.Run("falls back when the server is unreachable", func(t *testing.T) {
		client := newTestClient("http://unused", "http://127.0.0.1:1/oembed")
		ref := client.FetchMetadata(context.Background(), "dQw4w9WgXcQ")

		assert.Equal(t, defaultTitle, ref.Title)
	})
}

func TestExtractAudio(t *testing.T) {
	t.Run("posts the watch url", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/videos/extract_audio", r.URL.Path)
			var body videoRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", body.VideoURL)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		assert.NoError(t, client.ExtractAudio(context.Background(), "dQw4w9WgXcQ"))
	})

	t.Run("extracts detail from JSON error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "video unavailable"})
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		err := client.ExtractAudio(context.Background(), "dQw4w9WgXcQ")

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrCodeRemote, appErr.Code)
		assert.Equal(t, "video unavailable", appErr.Message)
	})

	t.Run("uses status line when error body is not JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("<html>boom</html>"))
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		err := client.ExtractAudio(context.Background(), "dQw4w9WgXcQ")

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Contains(t, appErr.Message, "500")
	})

	t.Run("normalizes transport failure", func(t *testing.T) {
		client := newTestClient("http://127.0.0.1:1", "http://unused")
		err := client.ExtractAudio(context.Background(), "dQw4w9WgXcQ")

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrCodeTransport, appErr.Code)
	})
}

func TestStartTranscription(t *testing.T) {
	t.Run("reads task id when present", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"task_id": "task-42"})
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		taskID, err := client.StartTranscription(context.Background(), "dQw4w9WgXcQ")

		require.NoError(t, err)
		assert.Equal(t, "task-42", taskID)
	})

	t.Run("falls back to video id for opaque bodies", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("started"))
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		taskID, err := client.StartTranscription(context.Background(), "dQw4w9WgXcQ")

		require.NoError(t, err)
		assert.Equal(t, "dQw4w9WgXcQ", taskID)
	})
}

func TestPollTranscription(t *testing.T) {
	t.Run("404 means still processing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		_, err := client.PollTranscription(context.Background(), "task-42")

		assert.ErrorIs(t, err, ErrStillProcessing)
	})

	t.Run("200 returns the transcription", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/transcription/task-42", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"segments": []map[string]any{{"text": "hello", "start": 0, "end": 2.5}},
				"fullText": "hello",
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		transcription, err := client.PollTranscription(context.Background(), "task-42")

		require.NoError(t, err)
		require.Len(t, transcription.Segments, 1)
		assert.Equal(t, "hello", transcription.FullText)
		assert.Equal(t, 2.5, transcription.Segments[0].End)
	})

	t.Run("malformed success body is a remote error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		_, err := client.PollTranscription(context.Background(), "task-42")

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrCodeRemote, appErr.Code)
	})
}

func TestCreateSections(t *testing.T) {
	sectionsJSON := `[{"title":"Intro","summary":["welcome"],"start":"00:00:00","end":"00:01:30"}]`

	t.Run("decodes a bare array", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/videos/create_sections", r.URL.Path)
			_, _ = w.Write([]byte(sectionsJSON))
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		sections, err := client.CreateSections(context.Background(), "dQw4w9WgXcQ")

		require.NoError(t, err)
		require.Len(t, sections, 1)
		assert.Equal(t, "Intro", sections[0].Title)
	})

	t.Run("decodes a wrapped object", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"sections":` + sectionsJSON + `}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		sections, err := client.CreateSections(context.Background(), "dQw4w9WgXcQ")

		require.NoError(t, err)
		require.Len(t, sections, 1)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`"oops"`))
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		_, err := client.CreateSections(context.Background(), "dQw4w9WgXcQ")
		assert.Error(t, err)
	})
}

func TestAnswerQuestion(t *testing.T) {
	t.Run("sends question and timestamp, returns plain text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body questionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "what is this about?", body.Question)
			assert.Equal(t, "00:01:30", body.Timestamp)
			_, _ = w.Write([]byte("It is about testing."))
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		answer, err := client.AnswerQuestion(context.Background(), "dQw4w9WgXcQ", "what is this about?", "00:01:30")

		require.NoError(t, err)
		assert.Equal(t, "It is about testing.", answer)
	})

	t.Run("unquotes JSON string answers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`"quoted answer"`))
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		answer, err := client.AnswerQuestion(context.Background(), "dQw4w9WgXcQ", "q", "00:00:00")

		require.NoError(t, err)
		assert.Equal(t, "quoted answer", answer)
	})
}
