package ytdlp

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnreachable covers missing, deleted or otherwise unavailable content
	// and network failures.
	ErrUnreachable = errors.New("media unreachable")
	// ErrPrivate covers content that needs a login or is private.
	ErrPrivate = errors.New("media is private or restricted")
	// ErrInvalid covers malformed URLs, disallowed hosts and unsupported sites.
	ErrInvalid = errors.New("invalid media link")
)

var stderrClasses = []struct {
	marker string
	kind   error
}{
	{"private video", ErrPrivate},
	{"sign in", ErrPrivate},
	{"login required", ErrPrivate},
	{"members-only", ErrPrivate},
	{"age-restricted", ErrPrivate},
	{"unsupported url", ErrInvalid},
	{"is not a valid url", ErrInvalid},
	{"video unavailable", ErrUnreachable},
	{"has been removed", ErrUnreachable},
	{"404", ErrUnreachable},
	{"unable to download", ErrUnreachable},
	{"unable to extract", ErrUnreachable},
}

// classify maps yt-dlp stderr to a fetch error kind. Unknown output is
// treated as unreachable.
func classify(stderr string) error {
	lower := strings.ToLower(stderr)
	for _, class := range stderrClasses {
		if strings.Contains(lower, class.marker) {
			return class.kind
		}
	}
	return ErrUnreachable
}

// lastErrorLine returns the most specific line yt-dlp printed, preferring
// lines tagged ERROR:.
func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func fetchError(op string, stderr string, err error) error {
	detail := lastErrorLine(stderr)
	if detail == "" && err != nil {
		detail = err.Error()
	}
	return fmt.Errorf("yt-dlp %s: %w: %s", op, classify(stderr), detail)
}
