package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Format converts a seconds value into a compact time label: "M:SS" under an
// hour, "H:MM:SS" at or above. Negative input is clamped to zero.
func Format(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}

	total := int(seconds)
	hours := total / 3600
	mins := (total % 3600) / 60
	secs := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// FormatHMS converts a seconds value into a zero-padded "HH:MM:SS" label.
// This is the form the question-answering backend expects for playback
// timestamps; zero (or invalid) input yields "00:00:00".
func FormatHMS(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}

	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Parse converts a time label into seconds. It accepts bare seconds
// (numeric string or JSON number), "MM:SS" and "HH:MM:SS" forms, tolerating
// surrounding whitespace and stray quotes. Malformed input degrades to zero
// rather than failing: this sits on a hot per-frame path where a wrong but
// harmless value beats an error.
func Parse(label any) float64 {
	switch v := label.(type) {
	case nil:
		return 0
	case float64:
		return nonNegative(v)
	case float32:
		return nonNegative(float64(v))
	case int:
		return nonNegative(float64(v))
	case int64:
		return nonNegative(float64(v))
	case string:
		return parseString(v)
	default:
		return 0
	}
}

func parseString(label string) float64 {
	label = strings.TrimSpace(label)
	label = strings.Trim(label, `"'`)
	label = strings.TrimSpace(label)
	if label == "" {
		return 0
	}

	// Bare seconds, possibly fractional.
	if f, err := strconv.ParseFloat(label, 64); err == nil {
		return nonNegative(f)
	}

	parts := strings.Split(label, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}

	var total float64
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0
		}
		total = total*60 + f
	}
	return nonNegative(total)
}

func nonNegative(f float64) float64 {
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	return f
}
