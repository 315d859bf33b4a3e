// Package sanitize cleans free-text input before it is stored.
package sanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag; text inside <script>/<style> is dropped too.
var strict = bluemonday.StrictPolicy()

// Text strips markup, trims surrounding whitespace and caps the result at
// max runes. A max of 0 means no cap. Entities escaped by the policy are
// decoded again so "Tom & Jerry" is stored as typed.
func Text(s string, max int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = html.UnescapeString(strict.Sanitize(s))
	s = strings.TrimSpace(s)
	if max > 0 && utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max])
	}
	return s
}
