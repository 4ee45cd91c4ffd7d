package transcript

import (
	"bytes"
	"regexp"
	"strings"
)

// Type is the kind of output a simulated process produced.
type Type string

const (
	TypeText       Type = "text"
	TypeBinary     Type = "binary"
	TypeFullscreen Type = "fullscreen"
	TypeInk        Type = "ink"
	TypeMarkdown   Type = "markdown"
)

var (
	colorCode      = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	cursorMovement = regexp.MustCompile(`\x1b\[[0-9;]*[ABCDHf]`)
	markdownLink   = regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`)
)

// Classify inspects output and returns its type and the reason.
func Classify(output []byte) (Type, string) {
	if isBinary(output) {
		return TypeBinary, "null bytes or many non-printable characters"
	}
	s := string(output)
	for _, seq := range []string{"\x1b[?1049h", "\x1b[?47h", "\x1b[2J"} {
		if strings.Contains(s, seq) {
			return TypeFullscreen, "alternate screen or clear screen sequence"
		}
	}
	if markdownScore(s) >= 3 {
		return TypeMarkdown, "markdown formatting"
	}
	if colorCode.MatchString(s) || cursorMovement.MatchString(s) {
		return TypeInk, "ANSI colors or cursor movement"
	}
	return TypeText, "no terminal control sequences"
}

func isBinary(p []byte) bool {
	if len(p) == 0 {
		return false
	}
	if bytes.IndexByte(p, 0) >= 0 {
		return true
	}
	odd := 0
	for _, c := range p {
		if c < 0x20 && c != '\n' && c != '\r' && c != '\t' && c != 0x1b {
			odd++
		}
	}
	return odd*10 > len(p)*3
}

func markdownScore(s string) int {
	score := 0
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "```"):
			score++
		case strings.HasPrefix(trimmed, "#") && strings.Contains(trimmed, "# "):
			score++
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			score++
		case strings.HasPrefix(trimmed, "> "):
			score++
		}
		if markdownLink.MatchString(line) {
			score++
		}
		if strings.Count(line, "**") >= 2 {
			score++
		}
	}
	return score
}
