package videoid

import (
	"net/url"
	"regexp"
	"strings"
)

// idLength is the fixed length of a YouTube video identifier.
const idLength = 11

var patterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(?:www\.)?youtube\.com/watch\?(?:.*&)?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^https?://(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^https?://(?:www\.)?youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^https?://(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^https?://youtu\.be/([a-zA-Z0-9_-]{11})`),
}

// Extract resolves any of the common YouTube URL shapes (watch, embed, /v/,
// shorts, youtu.be) to the 11-character video identifier. It returns false
// for anything that does not carry a valid id.
func Extract(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}

	for _, p := range patterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}

	// Fall back to query parsing for watch URLs with unusual parameter order.
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if host != "youtube.com" {
		return "", false
	}
	id := u.Query().Get("v")
	if len(id) != idLength {
		return "", false
	}
	return id, true
}

// WatchURL builds the canonical watch URL for a video id. The processing
// backend keys every operation by this URL form.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
