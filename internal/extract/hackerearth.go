package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
)

const (
	hackerEarthBase        = "https://www.hackerearth.com"
	hackerEarthDescription = "Join this exciting hackathon organized by HackerEarth."
	hackerEarthPrize       = "Prizes worth thousands of dollars"
	defaultLocation        = "India"
)

var (
	cardDate     = regexp.MustCompile(`\d{1,2}\s+[A-Za-z]{3}\s+\d{4}`)
	onlineMarker = regexp.MustCompile(`(?i)online|virtual`)
)

// HackerEarthListing parses the challenges page. Payloads that are RSS or Atom
// feeds are handled too, since HackerEarth serves both depending on the path.
func HackerEarthListing(raw []byte, now time.Time) ([]models.Item, error) {
	if looksLikeFeed(raw) {
		return hackerEarthFeed(raw, now)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("hackerearth: parse html: %w", err)
	}

	var items []models.Item
	seen := map[string]bool{}
	doc.Find(".challenge-card").Each(func(_ int, card *goquery.Selection) {
		item, ok := hackerEarthCard(card, now)
		if !ok || seen[item.ID] {
			return
		}
		seen[item.ID] = true
		items = append(items, item)
	})
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

func hackerEarthCard(card *goquery.Selection, now time.Time) (models.Item, bool) {
	title := CleanText(card.Find(".challenge-name").First().Text())
	if title == "" {
		title = "Untitled Hackathon"
	}
	id := Slug(title)
	if id == "" {
		return models.Item{}, false
	}

	link, _ := card.Find("a[href]").First().Attr("href")
	link = absolute(hackerEarthBase, link)

	start, end := now, now
	if dates := cardDate.FindAllString(card.Find(".date-container").Text(), -1); len(dates) >= 2 {
		s, err1 := time.Parse("2 Jan 2006", normalizeSpace(dates[0]))
		e, err2 := time.Parse("2 Jan 2006", normalizeSpace(dates[1]))
		if err1 == nil && err2 == nil {
			start, end = s, e
		}
	}

	location, mode := defaultLocation, models.ModeOnline
	if loc := CleanText(card.Find(".location").Text()); loc != "" && !onlineMarker.MatchString(loc) {
		location, mode = loc, models.ModeInPerson
	}

	desc := CleanText(card.Find(".challenge-desc").Text())
	if desc == "" {
		desc = hackerEarthDescription
	}

	return models.Item{
		ID:          id,
		Source:      models.SourceHackerEarth,
		Title:       title,
		Description: desc,
		StartDate:   start,
		EndDate:     end,
		Location:    location,
		Mode:        mode,
		URL:         link,
		Tags:        tags(),
		Extras:      &models.Extras{Prize: hackerEarthPrize},
	}, true
}

func hackerEarthFeed(raw []byte, now time.Time) ([]models.Item, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("hackerearth: parse feed: %w", err)
	}

	items := make([]models.Item, 0, len(feed.Items))
	seen := map[string]bool{}
	for _, fi := range feed.Items {
		title := CleanText(fi.Title)
		id := Slug(title)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		start := now
		if fi.PublishedParsed != nil {
			start = *fi.PublishedParsed
		}
		end := start
		if fi.UpdatedParsed != nil && fi.UpdatedParsed.After(start) {
			end = *fi.UpdatedParsed
		}
		desc := CleanText(fi.Description)
		if desc == "" {
			desc = hackerEarthDescription
		}
		img := ""
		if fi.Image != nil {
			img = fi.Image.URL
		}

		items = append(items, models.Item{
			ID:          id,
			Source:      models.SourceHackerEarth,
			Title:       title,
			Description: desc,
			StartDate:   start,
			EndDate:     end,
			Location:    defaultLocation,
			Mode:        models.ModeOnline,
			URL:         absolute(hackerEarthBase, fi.Link),
			ImageURL:    img,
			Tags:        append(tags(), fi.Categories...),
		})
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

func looksLikeFeed(raw []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(raw))
	if len(head) > 512 {
		head = head[:512]
	}
	if bytes.Contains(head, []byte("<html")) {
		return false
	}
	return bytes.HasPrefix(head, []byte("<?xml")) || bytes.Contains(head, []byte("<rss")) || bytes.Contains(head, []byte("<feed"))
}

func absolute(base, href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "/"):
		return base + href
	default:
		return base + "/" + href
	}
}

func normalizeSpace(s string) string {
	return spaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
}
