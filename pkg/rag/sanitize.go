package rag

import (
	"strings"
	"unicode"
)

// SanitizeQuestion strips control characters (other than newline and
// tab) and leading/trailing whitespace before length validation runs,
// so a question padded with invisible characters can't dodge the
// QuestionTooLong check or corrupt the assembled prompt, and a
// whitespace-only question comes back empty.
func SanitizeQuestion(q string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, q))
}
