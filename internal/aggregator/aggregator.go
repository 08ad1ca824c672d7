// Package aggregator serves merged, filtered items from memory and decides
// when a background refresh is due. It never blocks on the network.
package aggregator

import (
	"errors"
	"log/slog"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/clock"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/store"
)

var (
	ErrNotFound      = errors.New("item not found")
	ErrUnknownSource = errors.New("unknown source")
)

const (
	loadingTitle       = "Loading Events..."
	loadingDescription = "Please wait or check back in a minute while we fetch the latest hackathons."

	refreshingTitle       = "Refreshing Events..."
	refreshingDescription = "We're currently refreshing event data from our sources. This may take a minute or two. Please check back soon!"
)

// Refresher is the part of the refresh coordinator the aggregator drives.
// *refresh.Coordinator implements it.
type Refresher interface {
	RefreshAsync() bool
	RestoreFromCache() bool
	Stale() bool
	Trigger(force bool) models.TriggerResult
	Status() models.RefreshStatus
}

// Aggregator answers reads from memory and schedules refreshes.
type Aggregator struct {
	state     *store.Store
	refresher Refresher
	clock     clock.Clock
	logger    *slog.Logger
}

// New returns an Aggregator reading from state. clk and logger may be nil.
func New(state *store.Store, r Refresher, clk clock.Clock, logger *slog.Logger) *Aggregator {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{state: state, refresher: r, clock: clk, logger: logger}
}

// GetItems returns held items whose location contains filter, case-insensitively.
// "all" or "" disables the filter. With nothing held it returns a single
// placeholder and makes sure a refresh is on its way.
func (a *Aggregator) GetItems(filter string) []models.Item {
	if a.state.Empty() {
		if a.state.IsRefreshing() {
			return []models.Item{models.Placeholder(refreshingTitle, refreshingDescription, a.clock.Now())}
		}
		if !a.refresher.RestoreFromCache() {
			if a.refresher.RefreshAsync() {
				a.logger.Info("initial load started")
			}
			return []models.Item{models.Placeholder(loadingTitle, loadingDescription, a.clock.Now())}
		}
	}
	if a.refresher.Stale() {
		if a.refresher.RefreshAsync() {
			a.logger.Info("stale data, refresh started")
		}
	}

	all := a.state.All()
	out := make([]models.Item, 0, len(all))
	for _, it := range all {
		if it.MatchesLocation(filter) {
			out = append(out, it)
		}
	}
	return out
}

// GetItemDetail looks up one held item.
func (a *Aggregator) GetItemDetail(source, id string) (models.Item, error) {
	src, ok := models.ParseSource(source)
	if !ok {
		return models.Item{}, ErrUnknownSource
	}
	it, ok := a.state.Find(src, id)
	if !ok {
		return models.Item{}, ErrNotFound
	}
	return it, nil
}

// TriggerRefresh requests a refresh; see refresh.Coordinator.Trigger.
func (a *Aggregator) TriggerRefresh(force bool) models.TriggerResult {
	return a.refresher.Trigger(force)
}

// GetRefreshStatus reports the refresh state without the items.
func (a *Aggregator) GetRefreshStatus() models.RefreshStatus {
	return a.refresher.Status()
}
