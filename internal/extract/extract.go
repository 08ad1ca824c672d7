// Package extract turns raw upstream pages into items.
//
// Extraction is best effort. Missing fields fall back to defaults; a page
// that yields nothing usable returns ErrNoItems so callers can degrade.
package extract

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNoItems means the payload parsed but contained no listings.
var ErrNoItems = errors.New("no items in payload")

// defaultTags are attached to every scraped listing.
var defaultTags = []string{"hackathon", "coding", "technology"}

func tags() []string {
	out := make([]string, len(defaultTags))
	copy(out, defaultTags)
	return out
}

var (
	strict     = bluemonday.StrictPolicy()
	spaceRun   = regexp.MustCompile(`\s+`)
	nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)
)

// CleanText strips markup and collapses whitespace.
func CleanText(s string) string {
	s = strict.Sanitize(s)
	s = strings.NewReplacer("&amp;", "&", "&#39;", "'", "&#34;", `"`, "&lt;", "<", "&gt;", ">").Replace(s)
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// Slug derives a stable id from a title: lowercase ASCII, diacritics folded,
// runs of anything else collapsed to a single dash.
func Slug(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}
	s := nonSlugRun.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(s, "-")
}
