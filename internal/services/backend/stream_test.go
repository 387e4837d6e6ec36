package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseHandler(t *testing.T, frames []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		for _, frame := range frames {
			fmt.Fprint(w, frame)
			flusher.Flush()
		}
	}
}

func TestStreamTranscription(t *testing.T) {
	t.Run("delivers segments then complete", func(t *testing.T) {
		frames := []string{
			"event: segment\ndata: {\"text\":\"hello\",\"start\":0,\"end\":2}\n\n",
			"event: segment\ndata: {\"text\":\"world\",\"start\":2,\"end\":4}\n\n",
			"event: complete\ndata: done\n\n",
		}
		server := httptest.NewServer(sseHandler(t, frames))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		stream, err := client.StreamTranscription(context.Background(), "task-1")
		require.NoError(t, err)
		defer stream.Close()

		var texts []string
		complete := false
		for event := range stream.Events {
			if event.Complete {
				complete = true
				continue
			}
			texts = append(texts, event.Segment.Text)
		}

		assert.Equal(t, []string{"hello", "world"}, texts)
		assert.True(t, complete)
	})

	t.Run("skips undecodable segments", func(t *testing.T) {
		frames := []string{
			"event: segment\ndata: not json\n\n",
			"event: segment\ndata: {\"text\":\"ok\",\"start\":0,\"end\":1}\n\n",
			"event: complete\ndata: {}\n\n",
		}
		server := httptest.NewServer(sseHandler(t, frames))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		stream, err := client.StreamTranscription(context.Background(), "task-1")
		require.NoError(t, err)
		defer stream.Close()

		var texts []string
		for event := range stream.Events {
			if event.Segment != nil {
				texts = append(texts, event.Segment.Text)
			}
		}
		assert.Equal(t, []string{"ok"}, texts)
	})

	t.Run("non-200 upgrade fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(server.URL, "http://unused")
		_, err := client.StreamTranscription(context.Background(), "task-1")
		assert.Error(t, err)
	})

	t.Run("close releases a reader blocked on an unread event", func(t *testing.T) {
		hold := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			fmt.Fprint(w, "event: segment\ndata: {\"text\":\"one\",\"start\":0,\"end\":1}\n\n")
			fmt.Fprint(w, "event: segment\ndata: {\"text\":\"two\",\"start\":1,\"end\":2}\n\n")
			flusher.Flush()
			<-hold
		}))
		defer server.Close()
		defer close(hold)

		client := newTestClient(server.URL, "http://unused")
		stream, err := client.StreamTranscription(context.Background(), "task-2")
		require.NoError(t, err)

		// Take one event, then abandon the stream with the second unread.
		<-stream.Events
		stream.Close()

		// The reader must stop sending and close the channel rather than
		// stay blocked on the undelivered event.
		deadline := time.After(2 * time.Second)
		for {
			select {
			case _, open := <-stream.Events:
				if !open {
					return
				}
			case <-deadline:
				t.Fatal("reader stayed blocked after Close")
			}
		}
	})

	t.Run("close is idempotent and ends the event channel", func(t *testing.T) {
		blocked := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.(http.Flusher).Flush()
			<-blocked
		}))
		defer server.Close()
		defer close(blocked)

		client := newTestClient(server.URL, "http://unused")
		stream, err := client.StreamTranscription(context.Background(), "task-1")
		require.NoError(t, err)

		stream.Close()
		stream.Close()

		select {
		case _, open := <-stream.Events:
			assert.False(t, open)
		case <-time.After(2 * time.Second):
			t.Fatal("event channel did not close after Close")
		}
	})
}
