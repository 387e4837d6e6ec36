package recognition

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dalmia/vidly/internal/services/dictation"
	apperrors "github.com/dalmia/vidly/pkg/errors"
)

// Config holds the connection settings for the live recognition service.
type Config struct {
	URL              string
	Language         string
	SampleRate       int
	HandshakeTimeout time.Duration
}

// startMessage opens a recognition stream in continuous, interim-enabled
// mode.
type startMessage struct {
	Type       string `json:"type"`
	Language   string `json:"language"`
	SampleRate int    `json:"sample_rate"`
	Interim    bool   `json:"interim_results"`
}

type controlMessage struct {
	Type string `json:"type"`
}

// resultMessage is one recognition tick from the service.
type resultMessage struct {
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"is_final"`
	Error      string `json:"error,omitempty"`
}

// Engine streams audio to a recognition service over a WebSocket: binary
// frames up, transcript results down. It satisfies dictation.Engine.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	conn    *websocket.Conn
	results chan dictation.Result
	runErr  error
	stopped bool
}

// NewEngine creates an engine for the given service. Nothing connects
// until Start.
func NewEngine(cfg Config) *Engine {
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Engine{
		cfg:     cfg,
		results: make(chan dictation.Result, 16),
	}
}

// Start dials the service and begins the read loop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: e.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, e.cfg.URL, nil)
	if err != nil {
		return apperrors.TransportError("recognition connect", err)
	}

	start := startMessage{
		Type:       "start",
		Language:   e.cfg.Language,
		SampleRate: e.cfg.SampleRate,
		Interim:    true,
	}
	if err := conn.WriteJSON(start); err != nil {
		conn.Close()
		return apperrors.TransportError("recognition start", err)
	}

	e.conn = conn
	go e.readLoop(conn)
	return nil
}

// Results returns the recognition tick stream. The channel closes when the
// service ends the stream, naturally or on error.
func (e *Engine) Results() <-chan dictation.Result {
	return e.results
}

// WriteAudio forwards one captured audio frame.
func (e *Engine) WriteAudio(frame []byte) error {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()

	if conn == nil {
		return apperrors.New(apperrors.ErrCodeConflict, "recognition engine is not running")
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return apperrors.TransportError("recognition audio write", err)
	}
	return nil
}

// Stop asks the service to flush and close the stream. The read loop keeps
// draining so a last final result can still land.
func (e *Engine) Stop() error {
	e.mu.Lock()
	conn := e.conn
	alreadyStopped := e.stopped
	e.stopped = true
	e.mu.Unlock()

	if conn == nil || alreadyStopped {
		return nil
	}

	if err := conn.WriteJSON(controlMessage{Type: "stop"}); err != nil {
		// The write side is gone; tear the connection down so the read
		// loop unblocks.
		conn.Close()
		return apperrors.TransportError("recognition stop", err)
	}
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return nil
}

// Err reports the runtime error that ended the stream, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runErr
}

func (e *Engine) readLoop(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		e.mu.Lock()
		e.conn = nil
		e.mu.Unlock()
		close(e.results)
	}()

	for {
		var msg resultMessage
		if err := conn.ReadJSON(&msg); err != nil {
			e.mu.Lock()
			stopped := e.stopped
			e.mu.Unlock()
			if !stopped && !websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ERROR] recognition stream read: %v", err)
				e.setErr(apperrors.TransportError("recognition stream", err))
			}
			return
		}

		if msg.Error != "" {
			e.setErr(apperrors.New(apperrors.ErrCodeRemote,
				fmt.Sprintf("recognition service error: %s", msg.Error)))
			return
		}
		if msg.Transcript == "" {
			continue
		}
		e.results <- dictation.Result{Transcript: msg.Transcript, IsFinal: msg.IsFinal}
	}
}

func (e *Engine) setErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runErr == nil {
		e.runErr = err
	}
}
