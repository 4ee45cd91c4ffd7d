// Package transcript renders recorded output logs for humans.
package transcript

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"

	"procsim/pkg/outputlog"
)

// Markdown renders chunks as a markdown document. Consecutive chunks of the
// same stream are merged into one fenced block.
func Markdown(title string, chunks []outputlog.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)

	var stdout []byte
	for i := 0; i < len(chunks); {
		j := i
		var content []byte
		for j < len(chunks) && chunks[j].Stream == chunks[i].Stream {
			content = append(content, chunks[j].Line...)
			j++
		}
		if chunks[i].Stream == "stdout" {
			stdout = append(stdout, content...)
		}

		fmt.Fprintf(&b, "\n### %s at %s\n\n", chunks[i].Stream, chunks[i].Timestamp.UTC().Format("15:04:05.000"))
		text := printable(content)
		fence := fenceFor(text)
		fmt.Fprintf(&b, "%s\n%s\n%s\n", fence, strings.TrimSuffix(text, "\n"), fence)
		i = j
	}

	if len(stdout) > 0 {
		kind, reason := Classify(stdout)
		fmt.Fprintf(&b, "\n---\n\nOutput type: **%s** (%s)\n", kind, reason)
	}
	return b.String()
}

// HTML converts markdown to sanitized HTML.
func HTML(markdown string) string {
	unsafeHTML := blackfriday.Run(
		[]byte(markdown),
		blackfriday.WithExtensions(blackfriday.CommonExtensions|blackfriday.AutoHeadingIDs),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre")
	policy.AllowAttrs("id").Matching(bluemonday.SpaceSeparatedTokens).OnElements("h1", "h2", "h3")
	return string(policy.SanitizeBytes(unsafeHTML))
}

// printable makes control bytes visible. Newlines and tabs are kept.
func printable(p []byte) string {
	var b strings.Builder
	for len(p) > 0 {
		r, size := utf8.DecodeRune(p)
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&b, `\x%02x`, p[0])
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r == '\r':
			b.WriteString(`\r`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
		p = p[size:]
	}
	return b.String()
}

// fenceFor returns a backtick fence longer than any backtick run in text.
func fenceFor(text string) string {
	longest, run := 0, 0
	for _, r := range text {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}
