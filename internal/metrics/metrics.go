package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsActive tracks currently registered socket connections.
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "motorchat_connections_active",
			Help: "Currently connected sockets",
		},
	)

	// MessagesSent counts successfully persisted messages by entry point.
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motorchat_messages_sent_total",
			Help: "Total messages persisted",
		},
		[]string{"entry"}, // "socket" or "rest"
	)

	// MessagesRead counts message rows flipped to read.
	MessagesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "motorchat_messages_read_total",
			Help: "Total message rows marked read",
		},
	)

	// EventsDelivered counts real-time events handed to a connection.
	EventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motorchat_events_delivered_total",
			Help: "Total real-time events delivered",
		},
		[]string{"channel"}, // "room", "direct" or "broadcast"
	)

	// EventsDropped counts events dropped on slow or full connections.
	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "motorchat_events_dropped_total",
			Help: "Total real-time events dropped",
		},
	)

	// HandshakeRejections counts refused socket handshakes by reason.
	HandshakeRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motorchat_handshake_rejections_total",
			Help: "Total websocket handshakes refused",
		},
		[]string{"reason"},
	)

	// RateLimitHits counts inbound socket events refused by the limiter.
	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "motorchat_rate_limit_hits_total",
			Help: "Total socket events rejected by rate limiting",
		},
	)
)
