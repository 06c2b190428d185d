package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`[\s\p{Z}]+`)

	// boilerplateRes strip recurring notices. Matching is lazy so that only
	// the shortest span between the two keywords goes.
	boilerplateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)cookie.*?policy`),
		regexp.MustCompile(`(?i)privacy.*?policy`),
		regexp.MustCompile(`(?i)terms.*?service`),
		regexp.MustCompile(`(?i)subscribe.*?newsletter`),
		regexp.MustCompile(`(?i)follow.*?social`),
		regexp.MustCompile(`(?i)advertisement`),
		regexp.MustCompile(`(?i)sponsored.*?content`),
	}

	// disallowedRe matches everything except letters, digits, underscore,
	// whitespace and . , ! ? ; : - ( )
	disallowedRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:()\-]`)
)

// Clean normalizes extracted text: whitespace runs collapse to one space,
// boilerplate phrases are removed, characters outside the allow-list become
// spaces and the result is trimmed.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	// NFC keeps accented letters as single runes, so they pass the
	// allow-list instead of losing their combining marks.
	text = norm.NFC.String(text)
	text = whitespaceRe.ReplaceAllString(text, " ")

	for _, re := range boilerplateRes {
		text = re.ReplaceAllString(text, "")
	}

	text = disallowedRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}
