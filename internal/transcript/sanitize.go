// Package transcript prepares raw call transcripts for analysis. Transcripts
// pasted from web-based call consoles often arrive as HTML exports; Sanitize
// reduces them to plain text before length validation.
package transcript

import (
	"strings"

	"golang.org/x/net/html"
)

// MinLength is the minimum transcript length accepted for analysis.
const MinLength = 10

// Sanitize strips HTML markup from a transcript and collapses whitespace
// runs to single spaces. Plain-text input passes through with only the
// whitespace cleanup.
func Sanitize(raw string) string {
	if !strings.ContainsRune(raw, '<') {
		return collapseWhitespace(raw)
	}

	var sb strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(raw))
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return collapseWhitespace(sb.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skipTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skipTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.WriteString(tokenizer.Token().Data)
				sb.WriteByte(' ')
			}
		}
	}
}

// skipTag reports tags whose text content is never transcript text.
func skipTag(name string) bool {
	return name == "script" || name == "style"
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
