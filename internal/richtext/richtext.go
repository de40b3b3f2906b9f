// Package richtext handles the HTML bodies of posts: sanitizing, blank detection and
// plain-text excerpts for feed cards.
package richtext

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// ExcerptLength is the number of characters a feed card shows before the read-more marker.
const ExcerptLength = 100

// ReadMore is appended to truncated excerpts.
const ReadMore = "... read more"

const blockSelector = "p, div, li, h1, h2, h3, h4, h5, h6, blockquote, pre, tr"

// Sanitizer strips unsafe markup from post bodies.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer creates a sanitizer with the user-generated-content policy.
func NewSanitizer() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return &Sanitizer{policy: p}
}

// Sanitize returns html with scripts, handlers and unknown tags removed.
func (s *Sanitizer) Sanitize(html string) string {
	return strings.TrimSpace(s.policy.Sanitize(html))
}

var defaultSanitizer = NewSanitizer()

// Sanitize uses the package default sanitizer.
func Sanitize(html string) string {
	return defaultSanitizer.Sanitize(html)
}

// IsBlank reports whether html carries no text and no image, as an editor's empty
// document (<p><br></p>) does.
func IsBlank(html string) bool {
	if strings.TrimSpace(html) == "" {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html) == ""
	}
	if doc.Find("img").Length() > 0 {
		return false
	}
	return strings.TrimSpace(doc.Text()) == ""
}

// PlainText renders html as a single line of text. Block elements and line breaks
// become word separators.
func PlainText(html string) string {
	if !strings.Contains(html, "<") {
		return collapse(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapse(html)
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find(blockSelector).AppendHtml(" ")
	return collapse(doc.Text())
}

// Excerpt returns the first limit characters of html's text, followed by ReadMore
// when anything was cut. limit <= 0 uses ExcerptLength.
func Excerpt(html string, limit int) string {
	if limit <= 0 {
		limit = ExcerptLength
	}
	text := PlainText(html)
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:limit]), " ") + ReadMore
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
