package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
)

const (
	devfolioBase        = "https://devfolio.co"
	devfolioTitle       = "Unnamed Hackathon"
	devfolioDescription = "Join this exciting hackathon on Devfolio."
	devfolioPrize       = "Exciting prizes to be won"
)

// Anchors on the listing page that point at hackathons use a styled-components
// class whose hash suffix changes between deploys.
const devfolioLinkSelector = `a[class*="Link__LinkBase"]`

// "March 8, 2025", "Mar 8 - Mar 10, 2025"
var monthDayYear = regexp.MustCompile(`((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2})(?:\s*-\s*((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2}))?,?\s*(\d{4})`)

// DevfolioLinks returns the unique hackathon links on the listing page, in page order.
func DevfolioLinks(raw []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("devfolio: parse html: %w", err)
	}

	var links []string
	seen := map[string]bool{}
	doc.Find(devfolioLinkSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		href = absolute(devfolioBase, href)
		if href == "" || seen[href] || skipDevfolioLink(href) {
			return
		}
		seen[href] = true
		links = append(links, href)
	})
	return links, nil
}

func skipDevfolioLink(href string) bool {
	for _, s := range []string{"open", "explore", "login"} {
		if strings.Contains(href, s) {
			return true
		}
	}
	return false
}

// DevfolioID derives the item id from a hackathon URL: the subdomain for
// <name>.devfolio.co, otherwise the last path segment.
func DevfolioID(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if sub, ok := strings.CutSuffix(host, ".devfolio.co"); ok && sub != "www" && sub != "" {
		return sub
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	return Slug(parts[len(parts)-1])
}

// DevfolioDetail extracts one hackathon page. Only the title is required;
// everything else has a default.
func DevfolioDetail(raw []byte, pageURL string, now time.Time) (models.Item, error) {
	id := DevfolioID(pageURL)
	if id == "" {
		return models.Item{}, fmt.Errorf("devfolio: no id in %q", pageURL)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return models.Item{}, fmt.Errorf("devfolio: parse html: %w", err)
	}

	title := CleanText(doc.Find("h1").First().Text())
	if title == "" {
		title = CleanText(meta(doc, "og:title"))
	}
	if title == "" {
		title = devfolioTitle
	}

	desc := CleanText(meta(doc, "og:description"))
	if desc == "" {
		desc = CleanText(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	}
	if desc == "" {
		desc = devfolioDescription
	}

	start, end := devfolioDates(doc.Find("body").Text(), now)

	return models.Item{
		ID:          id,
		Source:      models.SourceDevfolio,
		Title:       title,
		Description: desc,
		StartDate:   start,
		EndDate:     end,
		Location:    defaultLocation,
		Mode:        models.ModeOnline,
		URL:         pageURL,
		ImageURL:    meta(doc, "og:image"),
		Tags:        tags(),
		Extras: &models.Extras{
			Prize:    devfolioPrize,
			Sponsors: []string{},
			TeamSize: &models.TeamSize{Min: 1, Max: 4},
		},
	}, nil
}

func meta(doc *goquery.Document, property string) string {
	return strings.TrimSpace(doc.Find(`meta[property="` + property + `"]`).AttrOr("content", ""))
}

// devfolioDates finds the first "Month D[ - Month D], YYYY" on the page.
// Without one the event is assumed to span the next two days.
func devfolioDates(text string, now time.Time) (time.Time, time.Time) {
	m := monthDayYear.FindStringSubmatch(text)
	if m == nil {
		return now, now.Add(48 * time.Hour)
	}
	start, ok := parseMonthDay(m[1], m[3])
	if !ok {
		return now, now.Add(48 * time.Hour)
	}
	if m[2] != "" {
		if end, ok := parseMonthDay(m[2], m[3]); ok && !end.Before(start) {
			return start, end
		}
	}
	return start, start.Add(48 * time.Hour)
}

func parseMonthDay(monthDay, year string) (time.Time, bool) {
	for _, layout := range []string{"January 2 2006", "Jan 2 2006"} {
		if t, err := time.Parse(layout, monthDay+" "+year); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
