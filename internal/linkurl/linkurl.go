// Package linkurl builds and parses internal article URLs from a template
// such as "/blog/{slug}" or "/{category}/{slug}".
package linkurl

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultPattern is used when no template is configured.
const DefaultPattern = "/blog/{slug}"

const (
	slugPlaceholder     = "{slug}"
	categoryPlaceholder = "{category}"
)

// Template converts between slugs and internal URLs.
type Template struct {
	pattern string
	reverse *regexp.Regexp
}

// New compiles a URL template. The template must contain {slug}.
func New(pattern string) (*Template, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !strings.Contains(pattern, slugPlaceholder) {
		return nil, fmt.Errorf("url pattern %q must contain %s", pattern, slugPlaceholder)
	}

	// Quote the literal parts, then substitute the placeholders. The category
	// segment is optional so URLs built without a category still invert.
	expr := regexp.QuoteMeta(pattern)
	expr = strings.Replace(expr, regexp.QuoteMeta(categoryPlaceholder+"/"), `(?:[^/]+/)?`, -1)
	expr = strings.Replace(expr, regexp.QuoteMeta(categoryPlaceholder), `[^/]*`, -1)
	expr = strings.Replace(expr, regexp.QuoteMeta(slugPlaceholder), `([^/?#]+)`, 1)

	reverse, err := regexp.Compile("^" + expr + "/?$")
	if err != nil {
		return nil, fmt.Errorf("failed to compile url pattern %q: %w", pattern, err)
	}
	return &Template{pattern: pattern, reverse: reverse}, nil
}

// MustNew is New that panics on error.
func MustNew(pattern string) *Template {
	t, err := New(pattern)
	if err != nil {
		panic(err)
	}
	return t
}

// Pattern returns the template string.
func (t *Template) Pattern() string {
	return t.pattern
}

// Build renders the internal URL for slug. When the template has a category
// placeholder and categorySlug is empty, the category segment is dropped.
func (t *Template) Build(slug, categorySlug string) string {
	out := strings.Replace(t.pattern, slugPlaceholder, slug, -1)
	if strings.Contains(out, categoryPlaceholder) {
		if categorySlug == "" {
			out = strings.Replace(out, categoryPlaceholder+"/", "", -1)
			out = strings.Replace(out, categoryPlaceholder, "", -1)
		} else {
			out = strings.Replace(out, categoryPlaceholder, categorySlug, -1)
		}
	}
	return out
}

// SlugFromURL recovers the slug from an internal URL. URLs that do not match
// the template fall back to their last path segment.
func (t *Template) SlugFromURL(raw string) string {
	path := raw
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if m := t.reverse.FindStringSubmatch(path); m != nil {
		return m[1]
	}

	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// IsInternal reports whether raw is a site-relative link.
func IsInternal(raw string) bool {
	return strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//")
}

// Domain returns the lowercased host of an absolute URL with any leading
// "www." removed. It returns "" when raw has no host.
func Domain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a URL slug, folding accents to ASCII.
func Slugify(title string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, title)
	if err != nil {
		folded = title
	}
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}
