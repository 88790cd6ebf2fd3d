// Package excerpt turns HTML bodies of announcements and articles into short
// plain text teasers.
package excerpt

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// DefaultLength is the teaser length used by list views.
const DefaultLength = 200

const ellipsis = "…"

// Text returns the visible text of an HTML fragment with whitespace collapsed.
// Scripts and styles are dropped.
func Text(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}

	doc.Find("script, style, noscript, iframe").Remove()

	var parts []string

	collect(doc.Find("body"), &parts)

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// collect appends the text nodes below s in document order.
func collect(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) != "#text" {
			collect(c, parts)
			return
		}

		if t := strings.TrimSpace(c.Text()); t != "" {
			*parts = append(*parts, t)
		}
	})
}

// Make returns at most maxRunes characters of the text of html, cut at a word
// boundary and marked with an ellipsis when shortened.
func Make(html string, maxRunes int) string {
	text := Text(html)
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:maxRunes])

	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}

	return strings.TrimRight(cut, " ,.;:") + ellipsis
}

// FirstImage returns the src of the first image in html, empty if none.
func FirstImage(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	src, _ := doc.Find("img[src]").First().Attr("src")

	return strings.TrimSpace(src)
}
