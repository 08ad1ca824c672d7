package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/aggregator"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/clock"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
)

const version = "1.0.0"

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Service is what the handlers need from the core. *aggregator.Aggregator implements it.
type Service interface {
	GetItems(location string) []models.Item
	GetItemDetail(source, id string) (models.Item, error)
	TriggerRefresh(force bool) models.TriggerResult
	GetRefreshStatus() models.RefreshStatus
}

// Options configures a Server.
type Options struct {
	// DefaultLocation is used when a listing request has no location parameter.
	DefaultLocation string
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
	Clock   clock.Clock
}

// Server holds dependencies for the HTTP handlers.
type Server struct {
	svc    Service
	opts   Options
	logger *slog.Logger
	mux    *http.ServeMux
}

// New wires up routes and returns a ready-to-use Server.
func New(svc Service, logger *slog.Logger, opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	srv := &Server{svc: svc, opts: opts, logger: logger, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

// ServeHTTP makes Server satisfy the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ---------- Routes ----------

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/hackathons", s.handleListItems)
	s.mux.HandleFunc("GET /api/hackathons/{source}/{id}", s.handleItemDetail)

	s.mux.HandleFunc("GET /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /api/refresh-status", s.handleRefreshStatus)

	if s.opts.Metrics != nil {
		s.mux.Handle("GET /metrics", s.opts.Metrics)
	}
}

// ---------- Handlers ----------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": version})
}

// handleListItems serves the merged listing. force=true also starts a forced
// background refresh; the response still carries the data held right now.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	location := s.opts.DefaultLocation
	if q.Has("location") {
		location = q.Get("location")
	}

	if isTrue(q.Get("force")) {
		res := s.svc.TriggerRefresh(true)
		s.logger.Info("forced refresh requested", "status", res.Status)
	}

	writeJSON(w, http.StatusOK, s.svc.GetItems(location))
}

func (s *Server) handleItemDetail(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.GetItemDetail(r.PathValue("source"), r.PathValue("id"))
	switch {
	case errors.Is(err, aggregator.ErrUnknownSource):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown source"})
		return
	case err != nil:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Event not found"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	force := isTrue(r.URL.Query().Get("force"))
	res := s.svc.TriggerRefresh(force)
	s.logger.Info("refresh requested", "force", force, "status", res.Status)
	writeJSON(w, http.StatusOK, res)
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	models.RefreshStatus
}

func (s *Server) handleRefreshStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.svc.GetRefreshStatus()
	resp := statusResponse{Status: "idle", RefreshStatus: st}
	if st.IsRefreshing {
		resp.Status = "in_progress"
	}
	resp.Message = statusMessage(st, s.opts.Clock.Now())
	writeJSON(w, http.StatusOK, resp)
}

// ---------- Helpers ----------

func statusMessage(st models.RefreshStatus, now time.Time) string {
	var b strings.Builder
	if st.IsRefreshing {
		b.WriteString("Refresh operation in progress")
	} else {
		b.WriteString("No refresh operation is currently running")
	}
	if st.LastFetchTime == nil {
		return b.String()
	}

	fmt.Fprintf(&b, ". Last update was %s ago.", ago(now.Sub(*st.LastFetchTime)))
	switch left := st.SecondsUntilRefresh; {
	case left == nil || *left <= 0:
		b.WriteString(" Cache is stale. A refresh will occur on the next data request.")
	case *left >= 60:
		fmt.Fprintf(&b, " Next auto-refresh in %s.", plural(*left/60, "minute"))
	default:
		fmt.Fprintf(&b, " Next auto-refresh in %d seconds.", *left)
	}
	return b.String()
}

func ago(d time.Duration) string {
	if d < time.Hour {
		return plural(int(d/time.Minute), "minute")
	}
	return plural(int(d/time.Hour), "hour")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func isTrue(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	codec.NewEncoder(w).Encode(data)
}
