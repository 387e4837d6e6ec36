package models

// DictationState is a point-in-time snapshot of a live dictation session.
// FinalText is append-only for the session's lifetime; InterimText is
// replaced wholesale on every recognition tick and cleared on finalize.
type DictationState struct {
	IsListening bool      `json:"isListening"`
	FinalText   string    `json:"finalText"`
	InterimText string    `json:"interimText"`
	Amplitude   []float64 `json:"amplitude"`
}
