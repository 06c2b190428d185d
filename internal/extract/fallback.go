package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// nonContentTags are removed wholesale before text is collected. Some of the
// names are not HTML elements but appear as custom tags on real pages.
var nonContentTags = map[string]bool{
	"script": true, "style": true, "nav": true, "header": true, "footer": true,
	"aside": true, "advertisement": true, "ads": true, "sidebar": true,
	"menu": true, "breadcrumb": true,
}

// nonContentTokens match class tokens exactly and id values by substring.
var nonContentTokens = []string{
	"nav", "navigation", "menu", "header", "footer", "sidebar",
	"advertisement", "ads", "social", "share", "comment",
	"breadcrumb", "pagination", "related",
}

// contentSelectors are tried in order; the first match wins.
var contentSelectors = []string{
	"main",
	"article",
	`[role="main"]`,
	".content",
	"#content",
	".post",
	".entry",
	".story",
	".article-body",
}

// fallbackContent extracts visible text from the densest semantic container
// of the document after removing page chrome. It returns "" if the document
// cannot be parsed.
func fallbackContent(htmlText string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return ""
	}

	removeNonContent(doc)

	container := selectContainer(doc)
	return visibleText(container)
}

// removeNonContent deletes elements whose tag, class token or id marks them
// as navigation, advertising or other chrome.
func removeNonContent(doc *goquery.Document) {
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if isNonContent(s) {
			s.Remove()
		}
	})
}

func isNonContent(s *goquery.Selection) bool {
	if nonContentTags[goquery.NodeName(s)] {
		return true
	}

	if class, ok := s.Attr("class"); ok {
		for _, token := range strings.Fields(class) {
			token = strings.ToLower(token)
			for _, unwanted := range nonContentTokens {
				if token == unwanted {
					return true
				}
			}
		}
	}

	if id, ok := s.Attr("id"); ok {
		id = strings.ToLower(id)
		for _, unwanted := range nonContentTokens {
			if strings.Contains(id, unwanted) {
				return true
			}
		}
	}

	return false
}

// selectContainer returns the first match of contentSelectors, then body,
// then the whole document.
func selectContainer(doc *goquery.Document) *goquery.Selection {
	for _, sel := range contentSelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

// visibleText joins the trimmed text nodes under s with single spaces.
func visibleText(s *goquery.Selection) string {
	parts := make([]string, 0)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range s.Nodes {
		walk(n)
	}

	return strings.Join(parts, " ")
}
