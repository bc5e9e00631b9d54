package browser

import (
	"regexp"
	"strings"
)

var hasTextRe = regexp.MustCompile(`^(.*?):has-text\((?:"([^"]*)"|'([^']*)')\)\s*$`)

// SplitHasText separates a trailing :has-text("...") filter from a CSS
// selector. ok is false when the selector has no such filter.
//
//	SplitHasText(`a:has-text("Register")`) // "a", "Register", true
func SplitHasText(selector string) (css, text string, ok bool) {
	m := hasTextRe.FindStringSubmatch(selector)
	if m == nil {
		return selector, "", false
	}
	css = strings.TrimSpace(m[1])
	if css == "" {
		css = "*"
	}
	text = m[2]
	if text == "" {
		text = m[3]
	}
	return css, text, true
}

// HasTextPattern is the case-insensitive JavaScript regex literal matching
// a :has-text filter's text, the way playwright applies it.
func HasTextPattern(text string) string {
	return "/" + regexp.QuoteMeta(text) + "/i"
}
