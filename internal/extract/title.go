package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxTitleLength is the maximum title length in runes.
const MaxTitleLength = 200

// Untitled is returned when a page has no usable title.
const Untitled = "Untitled"

// titleTagRe finds the <title> element when the document could not be parsed.
var titleTagRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// extractTitle tries <title>, the first <h1>, og:title and name=title meta
// tags, in that order.
func extractTitle(doc *goquery.Document) string {
	candidates := []func() (string, bool){
		func() (string, bool) { return elementText(doc.Find("title").First()) },
		func() (string, bool) { return elementText(doc.Find("h1").First()) },
		func() (string, bool) { return doc.Find(`meta[property="og:title"]`).First().Attr("content") },
		func() (string, bool) { return doc.Find(`meta[name="title"]`).First().Attr("content") },
	}

	for _, candidate := range candidates {
		if title, ok := candidate(); ok && title != "" {
			return truncateRunes(Clean(title), MaxTitleLength)
		}
	}
	return Untitled
}

// elementText returns the trimmed text of the first node in s, reporting
// whether the element exists.
func elementText(s *goquery.Selection) (string, bool) {
	if s.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(s.Text()), true
}

// titleFromRaw extracts the title with a regular expression.
func titleFromRaw(htmlText string) string {
	m := titleTagRe.FindStringSubmatch(htmlText)
	if m == nil {
		return Untitled
	}
	return truncateRunes(Clean(m[1]), MaxTitleLength)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
