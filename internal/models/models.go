package models

import (
	"strings"
	"time"
)

// Source identifies the upstream a listing was scraped from.
type Source string

const (
	SourceHackerEarth Source = "hackerearth"
	SourceDevfolio    Source = "devfolio"

	// SourceLoading marks the synthetic placeholder served while nothing is held yet.
	SourceLoading Source = "loading"
)

// Sources lists the real upstreams in the order their items are merged.
func Sources() []Source {
	return []Source{SourceHackerEarth, SourceDevfolio}
}

// ParseSource accepts a source tag case-insensitively. Only real upstreams are valid.
func ParseSource(s string) (Source, bool) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceHackerEarth:
		return SourceHackerEarth, true
	case SourceDevfolio:
		return SourceDevfolio, true
	}
	return "", false
}

// Mode is how an event is attended.
type Mode string

const (
	ModeOnline   Mode = "online"
	ModeInPerson Mode = "in-person"
	ModeHybrid   Mode = "hybrid"
)

// FallbackTag is appended to the tags of seed records.
const FallbackTag = "fallback"

// Item is a normalized hackathon listing. Identity is (Source, ID).
// Items are never mutated after they are produced; a refresh replaces them.
type Item struct {
	ID          string    `json:"id"`
	Source      Source    `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Location    string    `json:"location"`
	Mode        Mode      `json:"mode"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"imageUrl"`
	Tags        []string  `json:"tags,omitempty"`

	// Extras is nil for basic listings. Its fields are flattened into the JSON object.
	*Extras
}

// Extras carries the optional fields only some listings provide.
type Extras struct {
	Prize    string    `json:"prize,omitempty"`
	Sponsors []string  `json:"sponsors,omitempty"`
	TeamSize *TeamSize `json:"teamSize,omitempty"`
}

// TeamSize is an inclusive range of allowed team members.
type TeamSize struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// HasExtras reports whether the item is the extended variant.
func (i Item) HasExtras() bool { return i.Extras != nil }

// IsFallback reports whether the item is a seed record.
func (i Item) IsFallback() bool {
	for _, t := range i.Tags {
		if t == FallbackTag {
			return true
		}
	}
	return false
}

// MatchesLocation does a case-insensitive substring match on the location field.
// An empty filter or "all" matches everything.
func (i Item) MatchesLocation(filter string) bool {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" || filter == "all" {
		return true
	}
	return strings.Contains(strings.ToLower(i.Location), filter)
}

// Placeholder builds the synthetic item returned when no data is held yet.
func Placeholder(title, description string, now time.Time) Item {
	return Item{
		ID:          "loading",
		Source:      SourceLoading,
		Title:       title,
		Description: description,
		StartDate:   now,
		EndDate:     now.Add(24 * time.Hour),
		Location:    "Loading...",
		Mode:        ModeOnline,
	}
}

// Refresh trigger statuses.
const (
	TriggerInProgress = "in_progress"
	TriggerCacheFresh = "cache_fresh"
	TriggerStarted    = "started"
)

// TriggerResult is the answer to a refresh request.
type TriggerResult struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ETASeconds *int   `json:"etaSeconds,omitempty"`
}

// Counts summarizes how many items each source holds.
type Counts struct {
	PerSource map[Source]int `json:"perSource"`
	Total     int            `json:"total"`
}

// RefreshStatus describes the refresh state without exposing the items.
type RefreshStatus struct {
	IsRefreshing         bool       `json:"isRefreshing"`
	LastFetchTime        *time.Time `json:"lastFetchTime"`
	Counts               Counts     `json:"counts"`
	CacheDurationSeconds int        `json:"cacheDurationSeconds"`
	SecondsUntilRefresh  *int       `json:"secondsUntilRefresh,omitempty"`
}
