package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoomsLoaded is the number of rooms owned by this node.
	RoomsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomsync_rooms_loaded",
		Help: "Number of rooms owned by this node",
	})

	// Connections is the number of open websocket connections on this node.
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomsync_connections",
		Help: "Number of open websocket connections on this node",
	})

	// RelayDropped counts relayed requests dropped because a room's queue was full.
	RelayDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomsync_relay_dropped_total",
		Help: "Total number of relayed room requests dropped",
	})

	// RoomRequests counts processed room requests by type and outcome.
	RoomRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomsync_room_requests_total",
		Help: "Total number of room requests processed",
	}, []string{"type", "result"})

	// RelayMessages counts relay channel messages by outcome.
	RelayMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomsync_relay_messages_total",
		Help: "Total number of relayed room requests received",
	}, []string{"result"})

	// TickDuration records how long one registry tick took.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "roomsync_tick_duration_seconds",
		Help:    "Duration of a registry tick in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// StatCounters mirrors the usage counters written to redis.
	StatCounters = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomsync_stat_counter_total",
		Help: "Usage counters by name",
	}, []string{"counter"})
)
