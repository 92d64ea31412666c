package content

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// anchorTagPattern matches an anchor element with its inner markup.
// Nested anchors are not valid HTML and are not handled.
var anchorTagPattern = regexp.MustCompile(`(?is)<a\s[^>]*>(.*?)</a>`)

// markupPattern matches any tag, used to keep insertions out of markup.
var markupPattern = regexp.MustCompile(`<[^>]*>`)

// AnchorTag is one link found in a prose span.
type AnchorTag struct {
	Start       int    // Byte offset of '<' of the opening tag
	End         int    // Byte offset just past the closing tag
	Href        string // Target as written in the href attribute
	Text        string // Visible text with nested tags stripped
	Inner       string // Inner markup as written
	OpensNewTab bool   // target="_blank"
	Nofollow    bool   // rel contains nofollow
}

// FindAnchorTags returns the anchor tags in text that carry an href, in order.
func FindAnchorTags(text string) []AnchorTag {
	matches := anchorTagPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	tags := make([]AnchorTag, 0, len(matches))
	for _, m := range matches {
		raw := text[m[0]:m[1]]
		tag, ok := parseAnchorTag(raw)
		if !ok {
			continue
		}
		tag.Start = m[0]
		tag.End = m[1]
		tag.Inner = text[m[2]:m[3]]
		tags = append(tags, tag)
	}
	return tags
}

func parseAnchorTag(raw string) (AnchorTag, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return AnchorTag{}, false
	}
	sel := doc.Find("a").First()
	href, ok := sel.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return AnchorTag{}, false
	}

	target, _ := sel.Attr("target")
	rel, _ := sel.Attr("rel")

	return AnchorTag{
		Href:        href,
		Text:        strings.TrimSpace(sel.Text()),
		OpensNewTab: strings.EqualFold(strings.TrimSpace(target), "_blank"),
		Nofollow:    strings.Contains(strings.ToLower(rel), "nofollow"),
	}, true
}

// TextOf returns the visible text of markup with tags stripped and entities
// decoded.
func TextOf(markup string) string {
	if !strings.ContainsAny(markup, "<&") {
		return strings.TrimSpace(markup)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return strings.TrimSpace(markupPattern.ReplaceAllString(markup, ""))
	}
	return strings.TrimSpace(doc.Text())
}

// Unwrap replaces every tag for which match returns true with its inner
// markup. It returns the new text and the number of tags removed.
func Unwrap(text string, match func(AnchorTag) bool) (string, int) {
	return unwrap(text, match, -1)
}

// UnwrapFirst is Unwrap limited to the first matching tag.
func UnwrapFirst(text string, match func(AnchorTag) bool) (string, bool) {
	out, n := unwrap(text, match, 1)
	return out, n > 0
}

func unwrap(text string, match func(AnchorTag) bool, limit int) (string, int) {
	tags := FindAnchorTags(text)
	if len(tags) == 0 {
		return text, 0
	}

	var b strings.Builder
	last, removed := 0, 0
	for _, tag := range tags {
		if limit >= 0 && removed >= limit {
			break
		}
		if !match(tag) {
			continue
		}
		b.WriteString(text[last:tag.Start])
		b.WriteString(tag.Inner)
		last = tag.End
		removed++
	}
	if removed == 0 {
		return text, 0
	}
	b.WriteString(text[last:])
	return b.String(), removed
}

// IsAlreadyLinked reports whether phrase already appears as the full visible
// text of a link in text.
func IsAlreadyLinked(text, phrase string) bool {
	needle := strings.ToLower(">" + phrase + "</a>")
	return strings.Contains(strings.ToLower(text), needle)
}

// FindPhrase returns the byte range of the first case-insensitive occurrence
// of phrase in text that lies outside markup and existing links.
func FindPhrase(text, phrase string) (int, int, bool) {
	if phrase == "" {
		return 0, 0, false
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(phrase))
	if err != nil {
		return 0, 0, false
	}

	var protected [][2]int
	for _, tag := range FindAnchorTags(text) {
		protected = append(protected, [2]int{tag.Start, tag.End})
	}
	for _, m := range markupPattern.FindAllStringIndex(text, -1) {
		protected = append(protected, [2]int{m[0], m[1]})
	}

	for _, m := range re.FindAllStringIndex(text, -1) {
		if !overlaps(m[0], m[1], protected) {
			return m[0], m[1], true
		}
	}
	return 0, 0, false
}

func overlaps(start, end int, ranges [][2]int) bool {
	for _, r := range ranges {
		if start < r[1] && end > r[0] {
			return true
		}
	}
	return false
}

// Wrap links the first eligible occurrence of phrase in text to url. The
// matched text keeps its original casing. It returns false when the phrase
// is absent or already linked.
func Wrap(text, phrase, url string) (string, bool) {
	if IsAlreadyLinked(text, phrase) {
		return text, false
	}
	start, end, ok := FindPhrase(text, phrase)
	if !ok {
		return text, false
	}
	return text[:start] + BuildTag(url, text[start:end]) + text[end:], true
}

// BuildTag renders the surface form of a link.
func BuildTag(url, text string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), text)
}
