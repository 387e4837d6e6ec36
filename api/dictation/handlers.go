package dictation

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dalmia/vidly/api/types"
	"github.com/dalmia/vidly/internal/services/dictation"
)

// statePushInterval paces the interim/amplitude updates to the client.
const statePushInterval = 100 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser clients connect cross-origin; CORS policy is enforced at
	// the HTTP layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// audioWriter is the upstream half of a recognition engine.
type audioWriter interface {
	WriteAudio(frame []byte) error
}

type clientMessage struct {
	Type string `json:"type"`
}

type serverMessage struct {
	Type        string    `json:"type"`
	Text        string    `json:"text,omitempty"`
	Interim     string    `json:"interim,omitempty"`
	Amplitude   []float64 `json:"amplitude,omitempty"`
	IsListening bool      `json:"is_listening"`
	Message     string    `json:"message,omitempty"`
}

// wsWriter serializes writes: the sink, the state ticker and the control
// path all share one connection.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) send(msg serverMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteJSON(msg); err != nil {
		log.Printf("[WARNING] dictation write: %v", err)
	}
}

// Stream godoc
// @Summary      Live dictation session
// @Description  Upgrades to a WebSocket: the client streams binary audio frames up; the server streams final transcript pushes, interim text and the amplitude bars down. A {"type":"stop"} message finalizes the session.
// @Tags         dictation
// @Success      101 {string} string "Switching protocols"
// @Failure      400 {object} types.ErrorResponse "Upgrade failed"
// @Router       /api/v1/dictation/ws [get]
func Stream(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			log.Printf("[ERROR] dictation upgrade: %v", err)
			return
		}
		defer conn.Close()

		writer := &wsWriter{conn: conn}
		engine := deps.NewEngine()
		analyzer := newStreamAnalyzer()

		session := dictation.NewSession(deps.Dictation, engine, analyzer,
			func(finalText string) {
				writer.send(serverMessage{Type: "final", Text: finalText, IsListening: true})
			})

		if err := session.Start(c.Request.Context()); err != nil {
			writer.send(serverMessage{Type: "error", Message: err.Error()})
			return
		}
		// Every exit path releases the engine and the analyzer.
		defer session.Finalize()

		audio, _ := engine.(audioWriter)

		stopTicker := make(chan struct{})
		defer close(stopTicker)
		go pushState(writer, session, stopTicker)

		for {
			kind, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}

			switch kind {
			case websocket.BinaryMessage:
				analyzer.push(payload)
				if audio != nil {
					if err := audio.WriteAudio(payload); err != nil {
						log.Printf("[WARNING] forwarding audio frame: %v", err)
					}
				}
			case websocket.TextMessage:
				var msg clientMessage
				if err := json.Unmarshal(payload, &msg); err != nil {
					continue
				}
				if msg.Type == "stop" {
					session.Finalize()
					state := session.State()
					writer.send(serverMessage{Type: "done", Text: state.FinalText})
					return
				}
			}
		}
	}
}

func pushState(writer *wsWriter, session *dictation.Session, stop <-chan struct{}) {
	ticker := time.NewTicker(statePushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			state := session.State()
			writer.send(serverMessage{
				Type:        "state",
				Interim:     state.InterimText,
				Amplitude:   state.Amplitude,
				IsListening: state.IsListening,
			})
		}
	}
}

// streamAnalyzer adapts the client's raw audio frames into the session's
// amplitude sampler: each frame is treated as the frequency-domain sample
// array for that tick.
type streamAnalyzer struct {
	mu     sync.Mutex
	frames chan []byte
	closed bool
}

func newStreamAnalyzer() *streamAnalyzer {
	return &streamAnalyzer{frames: make(chan []byte, 8)}
}

func (a *streamAnalyzer) Frames() <-chan []byte {
	return a.frames
}

// push offers a frame without blocking: when the sampler lags, frames are
// dropped rather than queued.
func (a *streamAnalyzer) push(frame []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.frames <- frame:
	default:
	}
}

func (a *streamAnalyzer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.closed = true
		close(a.frames)
	}
	return nil
}
