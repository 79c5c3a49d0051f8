// Package changefeed fans table-change notifications out to in-process
// subscribers and bridges them across instances over Redis pub/sub.
package changefeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/redis/go-redis/v9"

	"wendle/internal/observability"
)

// Table names carried on Change events.
const (
	TableProfiles = "profiles"
	TablePosts    = "posts"
	TableLikes    = "likes"
	TableComments = "comments"
	TableFollows  = "follows"
	TableReports  = "reports"
)

// Change is a notification that rows in a table changed. It carries no row
// data; consumers re-pull from the database. PostID is set for tables scoped
// to a single post (likes, comments) so subscribers can filter.
type Change struct {
	Table  string `json:"table"`
	PostID uint   `json:"post_id,omitempty"`
}

// Handler receives change notifications. Handlers must not block; they run
// on the publisher's (or the Redis bridge's) goroutine.
type Handler func(Change)

// Filter narrows a subscription. The zero Filter matches every change on the
// subscribed table; a non-zero PostID matches only that post's changes.
type Filter struct {
	PostID uint
}

func (f Filter) matches(ch Change) bool {
	return f.PostID == 0 || f.PostID == ch.PostID
}

// Subscription is a handle returned by Subscribe, used to unsubscribe.
type Subscription struct {
	table   string
	filter  Filter
	handler Handler
}

// Broker delivers Change events to local subscribers and, when a Redis
// client is configured, publishes them so other instances see them too.
// Delivery is at-least-once: an instance hears its own publishes both
// directly and through the bridge, which is harmless because consumers
// re-pull state rather than apply deltas.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}

	rdb    *redis.Client
	logger *slog.Logger
}

// NewBroker creates a Broker. rdb may be nil, in which case events stay
// within the process.
func NewBroker(rdb *redis.Client, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subs:   make(map[string]map[*Subscription]struct{}),
		rdb:    rdb,
		logger: logger,
	}
}

// Subscribe registers a handler for changes on a table. The returned
// Subscription stays active until passed to Unsubscribe.
func (b *Broker) Subscribe(table string, filter Filter, fn Handler) *Subscription {
	sub := &Subscription{table: table, filter: filter, handler: fn}

	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[table]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[table] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscription. Safe to call more than once.
func (b *Broker) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.table]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.table)
		}
	}
}

// Publish dispatches a change to local subscribers and relays it over Redis.
// A Redis publish failure is logged and does not affect local delivery.
func (b *Broker) Publish(ctx context.Context, ch Change) {
	b.dispatch(ch)

	if b.rdb == nil {
		return
	}
	payload, err := json.Marshal(ch)
	if err != nil {
		b.logger.Error("changefeed: marshal change", "table", ch.Table, "error", err)
		return
	}
	if err := b.rdb.Publish(ctx, Channel(ch.Table), string(payload)).Err(); err != nil {
		b.logger.Error("changefeed: redis publish", "table", ch.Table, "error", err)
	}
}

func (b *Broker) dispatch(ch Change) {
	observability.ChangefeedEvents.WithLabelValues(ch.Table).Inc()

	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs[ch.Table]))
	for sub := range b.subs[ch.Table] {
		if sub.filter.matches(ch) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("changefeed: handler panic",
						"table", ch.Table, "panic", r, "stack", string(debug.Stack()))
				}
			}()
			sub.handler(ch)
		}()
	}
}

// StartBridge subscribes to changefeed channels on Redis and replays remote
// events to local subscribers. It returns after the subscription is set up;
// delivery runs on a background goroutine until ctx is cancelled.
func (b *Broker) StartBridge(ctx context.Context) error {
	if b.rdb == nil {
		return nil
	}
	sub := b.rdb.PSubscribe(ctx, "changes:*")
	msgs := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ch Change
				if err := json.Unmarshal([]byte(msg.Payload), &ch); err != nil {
					b.logger.Error("changefeed: bad bridge payload",
						"channel", msg.Channel, "error", err)
					continue
				}
				b.dispatch(ch)
			}
		}
	}()

	return nil
}

// Channel derives the Redis channel name for a table's changes.
func Channel(table string) string {
	return "changes:" + table
}
