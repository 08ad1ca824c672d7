package api_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/aggregator"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/api"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/clock"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeService struct {
	mu        sync.Mutex
	items     []models.Item
	locations []string
	triggers  []bool
	status    models.RefreshStatus
}

func (f *fakeService) GetItems(location string) []models.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locations = append(f.locations, location)
	var out []models.Item
	for _, it := range f.items {
		if it.MatchesLocation(location) {
			out = append(out, it)
		}
	}
	return out
}

func (f *fakeService) GetItemDetail(source, id string) (models.Item, error) {
	src, ok := models.ParseSource(source)
	if !ok {
		return models.Item{}, aggregator.ErrUnknownSource
	}
	for _, it := range f.items {
		if it.Source == src && it.ID == id {
			return it, nil
		}
	}
	return models.Item{}, aggregator.ErrNotFound
}

func (f *fakeService) TriggerRefresh(force bool) models.TriggerResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, force)
	return models.TriggerResult{Status: models.TriggerStarted, Message: "started"}
}

func (f *fakeService) GetRefreshStatus() models.RefreshStatus { return f.status }

func setup() (*api.Server, *fakeService) {
	svc := &fakeService{items: []models.Item{
		{ID: "h1", Source: models.SourceHackerEarth, Title: "Code Horizon", Location: "Bangalore, India"},
		{ID: "d1", Source: models.SourceDevfolio, Title: "BitBox", Location: "Berlin",
			Extras: &models.Extras{Prize: "Exciting prizes to be won", TeamSize: &models.TeamSize{Min: 1, Max: 4}}},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := api.New(svc, logger, api.Options{
		DefaultLocation: "India",
		Clock:           clock.NewFake(epoch),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("# metrics"))
		}),
	})
	return srv, svc
}

func get(srv http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setup()

	rec := get(srv, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["status"] != "healthy" || body["version"] != "1.0.0" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestListUsesDefaultLocation(t *testing.T) {
	srv, svc := setup()

	rec := get(srv, "/api/hackathons")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var items []models.Item
	json.NewDecoder(rec.Body).Decode(&items)
	if len(items) != 1 || items[0].ID != "h1" {
		t.Fatalf("expected only the India item, got %+v", items)
	}
	if svc.locations[0] != "India" {
		t.Fatalf("expected default location India, got %q", svc.locations[0])
	}
}

func TestListAllLocations(t *testing.T) {
	srv, _ := setup()

	rec := get(srv, "/api/hackathons?location=all")

	var items []models.Item
	json.NewDecoder(rec.Body).Decode(&items)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[1].Extras == nil || items[1].TeamSize.Max != 4 {
		t.Fatalf("expected extras to round-trip, got %+v", items[1])
	}
}

func TestListForceTriggersRefreshAndReturnsData(t *testing.T) {
	srv, svc := setup()

	rec := get(srv, "/api/hackathons?location=all&force=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(svc.triggers) != 1 || !svc.triggers[0] {
		t.Fatalf("expected one forced trigger, got %v", svc.triggers)
	}

	var items []models.Item
	json.NewDecoder(rec.Body).Decode(&items)
	if len(items) != 2 {
		t.Fatalf("expected current data alongside the refresh, got %d items", len(items))
	}
}

func TestExtrasAreFlattened(t *testing.T) {
	srv, _ := setup()

	body := get(srv, "/api/hackathons/devfolio/d1").Body.String()
	if !strings.Contains(body, `"prize":"Exciting prizes to be won"`) || !strings.Contains(body, `"teamSize":{"min":1,"max":4}`) {
		t.Fatalf("expected flat extras, got %s", body)
	}

	body = get(srv, "/api/hackathons/hackerearth/h1").Body.String()
	if strings.Contains(body, "prize") {
		t.Fatalf("expected no extras on a basic item, got %s", body)
	}
}

func TestItemDetailErrors(t *testing.T) {
	srv, _ := setup()

	if rec := get(srv, "/api/hackathons/devfolio/missing"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := get(srv, "/api/hackathons/meetup/x"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown source, got %d", rec.Code)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	srv, svc := setup()

	rec := get(srv, "/api/refresh?force=TRUE")
	var res models.TriggerResult
	json.NewDecoder(rec.Body).Decode(&res)

	if res.Status != models.TriggerStarted {
		t.Fatalf("expected started, got %q", res.Status)
	}
	if len(svc.triggers) != 1 || !svc.triggers[0] {
		t.Fatalf("expected force to be passed through, got %v", svc.triggers)
	}

	get(srv, "/api/refresh")
	if svc.triggers[1] {
		t.Fatal("expected unforced trigger")
	}
}

func TestRefreshStatusEndpoint(t *testing.T) {
	srv, svc := setup()
	last := epoch.Add(-2 * time.Minute)
	left := 180
	svc.status = models.RefreshStatus{
		LastFetchTime:        &last,
		SecondsUntilRefresh:  &left,
		CacheDurationSeconds: 300,
		Counts:               models.Counts{PerSource: map[models.Source]int{models.SourceDevfolio: 3}, Total: 3},
	}

	rec := get(srv, "/api/refresh-status")
	var body map[string]any
	json.NewDecoder(rec.Body).Decode(&body)

	if body["status"] != "idle" {
		t.Fatalf("expected idle, got %v", body["status"])
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "2 minutes ago") || !strings.Contains(msg, "Next auto-refresh in 3 minutes") {
		t.Fatalf("unexpected message %q", msg)
	}
	if body["cacheDurationSeconds"].(float64) != 300 {
		t.Fatalf("expected flattened status fields, got %v", body)
	}
}

func TestMetricsRoute(t *testing.T) {
	srv, _ := setup()

	rec := get(srv, "/metrics")
	if rec.Code != http.StatusOK || rec.Body.String() != "# metrics" {
		t.Fatalf("expected metrics handler, got %d %q", rec.Code, rec.Body.String())
	}
}
