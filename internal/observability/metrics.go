package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wendle_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// FeedRefreshes counts controller refresh passes by outcome.
	FeedRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wendle_feed_refreshes_total",
		Help: "Total feed and thread refresh passes by controller and outcome",
	}, []string{"controller", "outcome"})

	// ChangefeedEvents counts change notifications dispatched per table.
	ChangefeedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wendle_changefeed_events_total",
		Help: "Total change notifications dispatched by table",
	}, []string{"table"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wendle_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wendle_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// RefreshOutcome labels for FeedRefreshes.
const (
	RefreshApplied   = "applied"
	RefreshDiscarded = "discarded"
	RefreshFailed    = "failed"
)
