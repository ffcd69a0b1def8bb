// content.go validates and normalises cell text.
//
// Text submitted from the browser arrives as editor markup: line breaks as
// <br>, stray formatting tags and HTML entities. Text imported from
// spreadsheets may carry the _x000D_ carriage-return escape. Both are
// reduced to plain LF-terminated text before storage.

package validate

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Content validates cell text: it must be UTF-8 and no larger than maxLen
// bytes (0 means no limit).
func Content(content string, maxLen int64) error {
	if !utf8.ValidString(content) {
		return ErrInvalidText
	}
	if maxLen > 0 && int64(len(content)) > maxLen {
		return ErrContentTooLarge
	}
	return nil
}

var (
	lineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)
	strict    = bluemonday.StrictPolicy()
)

// SubmittedText turns editor markup into plain text: <br> becomes a newline,
// every other tag is dropped, entities are decoded and line endings are
// normalised to LF.
func SubmittedText(s string) string {
	s = NormaliseLineEndings(s)
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	s = lineBreak.ReplaceAllString(s, "\n")
	s = strict.Sanitize(s)
	return html.UnescapeString(s)
}

// NormaliseLineEndings converts CRLF, lone CR and the spreadsheet _x000D_
// escape to LF.
func NormaliseLineEndings(s string) string {
	if strings.Contains(s, "_x000D_") {
		s = strings.ReplaceAll(s, "_x000D_\n", "\n")
		s = strings.ReplaceAll(s, "_x000D_", "\n")
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
