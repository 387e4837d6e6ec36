package dictation

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dalmia/vidly/internal/models"
	apperrors "github.com/dalmia/vidly/pkg/errors"
)

type sessionState int

const (
	stateIdle sessionState = iota
	stateListening
	stateFinalizing
)

// Session drives one live dictation: a recognition engine and a parallel
// amplitude sampler, feeding an append-only final transcript to a sink.
// The engine and analyzer handles are owned exclusively by the session for
// its lifetime and released on every exit path; leaking a microphone
// handle is a user-visible failure.
type Session struct {
	mu    sync.Mutex
	cfg   Config
	sink  Sink
	sleep func(time.Duration)

	engine   Engine
	analyzer Analyzer

	state     sessionState
	finalText string
	interim   string
	amplitude []float64
	pushed    bool
	lastErr   error

	loopDone chan struct{}
}

// NewSession wires a session over the given engine and analyzer. Nothing
// runs until Start.
func NewSession(cfg Config, engine Engine, analyzer Analyzer, sink Sink, opts ...Option) *Session {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultConfig().SettleDelay
	}
	if cfg.Bars <= 0 {
		cfg.Bars = DefaultConfig().Bars
	}

	s := &Session{
		cfg:      cfg,
		sink:     sink,
		sleep:    time.Sleep,
		engine:   engine,
		analyzer: analyzer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start acquires the engine and begins listening. Permission denial or
// engine initialization failure leaves the session idle with no resources
// held.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		return apperrors.New(apperrors.ErrCodeConflict, "dictation session already running")
	}
	if s.engine == nil {
		s.mu.Unlock()
		return apperrors.New(apperrors.ErrCodeInternal, "dictation session already torn down")
	}
	engine := s.engine
	s.mu.Unlock()

	if err := engine.Start(ctx); err != nil {
		return apperrors.PermissionError("could not start voice recognition", err)
	}

	s.mu.Lock()
	s.state = stateListening
	s.finalText = ""
	s.interim = ""
	s.pushed = false
	s.lastErr = nil
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	go s.loop(engine)
	return nil
}

// loop consumes recognition results and amplitude frames until the engine
// ends. An engine end while still listening runs the finalize path so the
// accumulated text is delivered and the handles released. The engine is
// captured by value: teardown nulls the session's reference underneath us.
func (s *Session) loop(engine Engine) {
	defer close(s.loopDone)

	var frames <-chan []byte
	if s.analyzer != nil {
		frames = s.analyzer.Frames()
	}
	results := engine.Results()

	for {
		select {
		case result, open := <-results:
			if !open {
				s.onEngineEnd(engine)
				return
			}
			s.onResult(result)
		case frame, open := <-frames:
			if !open {
				frames = nil
				continue
			}
			s.onFrame(frame)
		}
	}
}

func (s *Session) onResult(result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateIdle {
		return
	}

	if !result.IsFinal {
		s.interim = result.Transcript
		return
	}

	// Final text is pushed immediately: partial progress survives an
	// abandoned session.
	s.finalText = appendTranscript(s.finalText, result.Transcript)
	s.interim = ""
	if s.sink != nil {
		s.sink(s.finalText)
	}
}

func (s *Session) onFrame(frame []byte) {
	heights := Waveform(frame, s.cfg.Bars)
	s.mu.Lock()
	s.amplitude = heights
	s.mu.Unlock()
}

// onEngineEnd handles the engine closing its result stream: a runtime
// error stops listening but keeps the accumulated final text.
func (s *Session) onEngineEnd(engine Engine) {
	err := engine.Err()

	s.mu.Lock()
	if err != nil {
		log.Printf("[ERROR] recognition engine ended: %v", err)
		s.lastErr = err
	}
	if s.state != stateListening {
		// Finalize already owns the teardown.
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.finish()
}

// Finalize runs the settle/push/teardown protocol: stop the engine if
// still listening, wait the settle delay for a last recognition tick,
// push the accumulated transcript exactly once and release everything.
// Repeated calls are no-ops.
func (s *Session) Finalize() {
	s.mu.Lock()
	if s.state != stateListening {
		s.mu.Unlock()
		return
	}
	engine := s.engine
	s.mu.Unlock()

	if engine != nil {
		if err := engine.Stop(); err != nil {
			log.Printf("[WARNING] stopping recognition engine: %v", err)
		}
	}
	s.finish()
}

func (s *Session) finish() {
	s.mu.Lock()
	if s.state != stateListening {
		s.mu.Unlock()
		return
	}
	s.state = stateFinalizing
	s.mu.Unlock()

	// Let a last recognition tick land before the final push.
	s.sleep(s.cfg.SettleDelay)

	s.mu.Lock()
	if !s.pushed && s.sink != nil && s.finalText != "" {
		s.sink(s.finalText)
	}
	s.pushed = true
	s.interim = ""
	s.teardownLocked()
	s.state = stateIdle
	s.mu.Unlock()
}

// teardownLocked releases every resource reference and nulls it so
// repeated teardown is a no-op. Must be called with the mutex held.
func (s *Session) teardownLocked() {
	if s.analyzer != nil {
		if err := s.analyzer.Close(); err != nil {
			log.Printf("[WARNING] closing audio analyzer: %v", err)
		}
		s.analyzer = nil
	}
	s.engine = nil
	s.amplitude = nil
}

// State returns a snapshot of the session.
func (s *Session) State() models.DictationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.DictationState{
		IsListening: s.state == stateListening,
		FinalText:   s.finalText,
		InterimText: s.interim,
		Amplitude:   append([]float64(nil), s.amplitude...),
	}
}

// Err returns the engine runtime error that ended the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func appendTranscript(accumulated, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return accumulated
	}
	if accumulated == "" {
		return text
	}
	return accumulated + " " + text
}
