package normalize

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s+`)

// Name collapses whitespace and trims the input. Case is preserved because
// provider and payer names are displayed and filtered on verbatim.
func Name(s string) string {
	return multiSpace.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Key lowercases a normalized name for case-insensitive matching.
func Key(s string) string {
	return strings.ToLower(Name(s))
}
