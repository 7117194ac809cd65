package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis failures by operation.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldnews_redis_errors_total",
		Help: "Total number of Redis errors by operation",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by key family and result (hit, miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldnews_cache_lookups_total",
		Help: "Cache lookups by key family and result",
	}, []string{"family", "result"})

	// LikeToggles counts like toggles by resulting direction.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldnews_like_toggles_total",
		Help: "Like toggles by resulting state",
	}, []string{"state"})

	// WebSocketConnections is the gauge of open realtime connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "worldnews_websocket_connections",
		Help: "Number of open WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped because a client send buffer was full.
	WebSocketBackpressureDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worldnews_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	})
)
