package feed

import (
	"context"
	"log/slog"
	"sync"

	"wendle/internal/changefeed"
	"wendle/internal/observability"
)

// State is a view controller's lifecycle phase.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
)

// FetchFunc loads a fresh feed snapshot from the entity store.
type FetchFunc func(ctx context.Context) ([]PostView, error)

// FeedView keeps an aggregated feed current. While mounted it listens for
// post and like changes and re-pulls; overlapping refreshes resolve
// last-issued-wins, so a slow early response never overwrites a newer one.
type FeedView struct {
	mu      sync.Mutex
	state   State
	posts   []PostView
	seq     uint64
	applied uint64

	fetch  FetchFunc
	broker *changefeed.Broker
	subs   []*changefeed.Subscription
	logger *slog.Logger
}

// NewFeedView creates an unmounted FeedView in the idle state.
func NewFeedView(fetch FetchFunc, broker *changefeed.Broker, logger *slog.Logger) *FeedView {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedView{
		state:  StateIdle,
		fetch:  fetch,
		broker: broker,
		logger: logger,
	}
}

// Mount subscribes to post and like changes and starts the initial load.
// Mounting twice is a no-op.
func (v *FeedView) Mount(ctx context.Context) {
	v.mu.Lock()
	if len(v.subs) > 0 {
		v.mu.Unlock()
		return
	}
	if v.broker != nil {
		onChange := func(changefeed.Change) {
			// handlers must not block; the refresh pulls from the DB
			go v.Refresh(context.Background())
		}
		v.subs = append(v.subs,
			v.broker.Subscribe(changefeed.TablePosts, changefeed.Filter{}, onChange),
			v.broker.Subscribe(changefeed.TableLikes, changefeed.Filter{}, onChange),
		)
	}
	v.mu.Unlock()

	v.Refresh(ctx)
}

// Unmount drops the change subscriptions. The last snapshot stays readable.
func (v *FeedView) Unmount() {
	v.mu.Lock()
	subs := v.subs
	v.subs = nil
	v.mu.Unlock()

	for _, sub := range subs {
		v.broker.Unsubscribe(sub)
	}
}

// Refresh re-pulls the feed. Each call gets a sequence number when issued;
// a result is applied only if no later-issued refresh has landed first.
func (v *FeedView) Refresh(ctx context.Context) {
	v.mu.Lock()
	v.seq++
	mine := v.seq
	if v.state == StateIdle {
		v.state = StateLoading
	}
	v.mu.Unlock()

	posts, err := v.fetch(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()

	if mine <= v.applied {
		observability.FeedRefreshes.WithLabelValues("feed", observability.RefreshDiscarded).Inc()
		return
	}
	v.applied = mine

	if err != nil {
		// a failed pull keeps the previous snapshot intact
		v.logger.Error("feed refresh failed", "error", err)
		observability.FeedRefreshes.WithLabelValues("feed", observability.RefreshFailed).Inc()
		if v.state == StateLoading {
			v.state = StateIdle
		}
		return
	}

	v.posts = posts
	v.state = StateReady
	observability.FeedRefreshes.WithLabelValues("feed", observability.RefreshApplied).Inc()
}

// Snapshot returns the current state and a copy of the feed entries.
func (v *FeedView) Snapshot() (State, []PostView) {
	v.mu.Lock()
	defer v.mu.Unlock()

	posts := make([]PostView, len(v.posts))
	copy(posts, v.posts)
	return v.state, posts
}
