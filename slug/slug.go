package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	separators   = regexp.MustCompile(`[\s_]+`)
	disallowed   = regexp.MustCompile(`[^a-z0-9-]+`)
	repeatedDash = regexp.MustCompile(`-+`)
)

// Generate derives the archive slug from a title. The result is lowercase,
// ASCII-only and uses single hyphens as separators. It is a pure function of
// its input, so a record's slug can always be recomputed from its title.
func Generate(title string) string {
	if title == "" {
		return ""
	}

	s := strings.ToLower(transliterate(title))

	s = separators.ReplaceAllString(s, "-")
	s = disallowed.ReplaceAllString(s, "")
	s = repeatedDash.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}

// Matches reports whether s is the slug of title
func Matches(title, s string) bool {
	return Generate(title) == s
}

// transliterate strips diacritics so "Café" becomes "Cafe"
func transliterate(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// isMn checks if a rune is a nonspacing mark (accents, diacritics)
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
