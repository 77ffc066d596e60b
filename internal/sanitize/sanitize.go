// Package sanitize cleans operator-supplied text before it is stored in the
// knowledge base or embedded in collaborator prompts. It strips control
// characters, markdown hierarchy markers, XML/HTML tags and code fences so a
// review comment cannot smuggle instructions into a prompt.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxCommentLength is the maximum allowed length for review comments.
const MaxCommentLength = 2000

// MaxReviewerLength is the maximum allowed length for reviewer names.
const MaxReviewerLength = 80

// Pre-compiled regular expressions for performance.
var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	// It also matches XML processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?\s*>|<\?[^?]*\?>|</\s+[a-zA-Z][^>]*>`)

	// reHTMLComment matches HTML comments like <!-- anything -->.
	reHTMLComment = regexp.MustCompile(`<!--[\s\S]*?-->`)

	// reMarkdownHeading matches markdown headings at the start of a line (# , ## , etc.).
	reMarkdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)

	// reHorizontalRule matches markdown horizontal rules (---, ***, ___) at the start of a line.
	reHorizontalRule = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)

	// reTripleBacktick matches triple (or more) backtick sequences used in code fences.
	reTripleBacktick = regexp.MustCompile("```+")

	// reExcessiveNewlines matches 3 or more consecutive newlines.
	reExcessiveNewlines = regexp.MustCompile(`\n{3,}`)
)

// Comment sanitizes a free-text review comment.
//
// The pipeline runs in this order:
//  1. Strip null bytes and ASCII control characters (except \n, \t)
//  2. Strip HTML comments and XML/HTML tags
//  3. Replace markdown headings with list markers
//  4. Remove markdown horizontal rules
//  5. Collapse triple backticks to single backtick
//  6. Collapse excessive newlines (3+ -> 2)
//  7. Trim and truncate to MaxCommentLength
func Comment(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reHTMLComment.ReplaceAllString(s, "")
	s = reXMLTag.ReplaceAllString(s, "")
	s = reMarkdownHeading.ReplaceAllString(s, "- ")
	s = reHorizontalRule.ReplaceAllString(s, "")
	s = reTripleBacktick.ReplaceAllString(s, "`")
	s = reExcessiveNewlines.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	return truncate(s, MaxCommentLength, "...")
}

// Reviewer sanitizes a reviewer name: control characters are removed, runs of
// whitespace collapse to one space, and the result is capped at
// MaxReviewerLength.
func Reviewer(input string) string {
	if input == "" {
		return ""
	}
	s := strings.Join(strings.FieldsFunc(stripControlChars(input), unicode.IsSpace), " ")
	return truncate(s, MaxReviewerLength, "")
}

// Answer trims an answer and removes control characters other than newline
// and tab. Markup is kept since answers are shown verbatim to operators.
func Answer(input string) string {
	return strings.TrimSpace(stripControlChars(input))
}

// truncate cuts s to max runes, appending suffix when it had to cut.
func truncate(s string, max int, suffix string) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + suffix
}

// stripControlChars removes ASCII control characters (0x00-0x1F) and DEL (0x7F) from
// the string, except for newline (0x0A) and tab (0x09) which are preserved.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 || r == 0x7F) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
