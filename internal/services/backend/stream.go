package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalmia/vidly/internal/models"
	apperrors "github.com/dalmia/vidly/pkg/errors"
)

// SegmentStream is an open server-push transcription stream. Events carry
// incremental segments until the terminal complete event; Close tears down
// the underlying connection and is safe to call more than once.
type SegmentStream struct {
	Events <-chan StreamEvent

	cancel context.CancelFunc
	body   io.Closer
	done   chan struct{}
}

// Close shuts the stream down. An abandoned stream must be closed, not
// ignored: a dangling connection keeps pushing stale segments, and a
// reader blocked on an unread event must be released as well.
func (s *SegmentStream) Close() {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
}

// StreamTranscription opens the SSE stream for a transcription task and
// decodes "segment" and "complete" events. The returned channel closes when
// the stream completes, errors out, or the context is cancelled.
func (c *Client) StreamTranscription(ctx context.Context, taskID string) (*SegmentStream, error) {
	ctx, cancel := context.WithCancel(ctx)

	streamURL := fmt.Sprintf("%s/transcription/%s/stream", c.baseURL, url.PathEscape(taskID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		cancel()
		return nil, apperrors.TransportError("stream transcription", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The stream outlives the client's request timeout by design.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, apperrors.TransportError("stream transcription", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := c.remoteError("stream transcription", resp)
		drainAndClose(resp.Body)
		cancel()
		return nil, err
	}

	events := make(chan StreamEvent)
	done := make(chan struct{})
	stream := &SegmentStream{Events: events, cancel: cancel, body: resp.Body, done: done}

	go readEvents(resp.Body, events, done)

	return stream, nil
}

// readEvents parses the text/event-stream framing: "event:" names the
// event, "data:" carries the payload, a blank line dispatches. Sends race
// against done so a closed stream never strands the reader on the channel.
func readEvents(body io.Reader, events chan<- StreamEvent, done <-chan struct{}) {
	defer close(events)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	send := func(event StreamEvent) bool {
		select {
		case events <- event:
			return true
		case <-done:
			return false
		}
	}

	var eventName string
	var data strings.Builder

	dispatch := func() bool {
		defer func() {
			eventName = ""
			data.Reset()
		}()

		switch eventName {
		case "segment":
			var segment models.TranscriptSegment
			if err := json.Unmarshal([]byte(data.String()), &segment); err != nil {
				log.Printf("[WARN] dropping undecodable stream segment: %v", err)
				return true
			}
			return send(StreamEvent{Segment: &segment})
		case "complete":
			send(StreamEvent{Complete: true})
			return false
		default:
			// Keep-alives and unknown events are skipped.
			return true
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if eventName != "" || data.Len() > 0 {
				if !dispatch() {
					return
				}
			}
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	// Connection dropped mid-event: dispatch whatever is buffered.
	if eventName != "" || data.Len() > 0 {
		dispatch()
	}
}
