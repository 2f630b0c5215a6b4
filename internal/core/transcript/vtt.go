package transcript

import (
	"regexp"
	"strings"
)

var (
	inlineTagRe = regexp.MustCompile(`<[^>]*>`)
	timestampRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{3}\s+-->\s+\d{2}:\d{2}:\d{2}\.\d{3}`)
)

// parseVTT converts WebVTT subtitle data into plain text. Cue timing,
// positioning hints, and inline styling tags are stripped; consecutive
// duplicate lines (typical of auto-generated rolling captions) are collapsed.
func parseVTT(data string) string {
	var out []string
	prev := ""

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			continue
		}
		if isVTTHeader(trimmed) || timestampRe.MatchString(trimmed) {
			continue
		}
		// Bare cue numbers
		if isDigits(trimmed) {
			continue
		}

		text := inlineTagRe.ReplaceAllString(trimmed, "")
		text = strings.TrimSpace(text)
		if text == "" || text == prev {
			continue
		}
		out = append(out, text)
		prev = text
	}

	return strings.Join(out, "\n")
}

func isVTTHeader(line string) bool {
	switch {
	case line == "WEBVTT",
		strings.HasPrefix(line, "WEBVTT "),
		strings.HasPrefix(line, "Kind:"),
		strings.HasPrefix(line, "Language:"),
		strings.HasPrefix(line, "NOTE"),
		strings.HasPrefix(line, "STYLE"):
		return true
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
