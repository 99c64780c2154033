package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID returns the 11 character video id from a bare id or a
// watch, share, embed or shorts URL.
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if videoIDPattern.MatchString(input) {
		return input, nil
	}

	raw := input
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidVideoID
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var candidate string
	switch host {
	case "youtu.be":
		candidate = segments[0]
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		switch {
		case segments[0] == "watch":
			candidate = u.Query().Get("v")
		case len(segments) >= 2 && (segments[0] == "embed" || segments[0] == "shorts" || segments[0] == "v" || segments[0] == "live"):
			candidate = segments[1]
		}
	}

	if !videoIDPattern.MatchString(candidate) {
		return "", ErrInvalidVideoID
	}
	return candidate, nil
}
