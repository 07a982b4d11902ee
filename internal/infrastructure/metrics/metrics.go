package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "woonruil_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "woonruil_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	ListingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "woonruil_listings_created_total",
			Help: "Total listings created",
		},
	)

	ConversationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "woonruil_conversations_created_total",
			Help: "Total conversations started",
		},
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "woonruil_messages_sent_total",
			Help: "Total chat messages sent",
		},
	)

	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "woonruil_geocode_lookups_total",
			Help: "Geocode lookups by source and result",
		},
		[]string{"source", "result"}, // source: cache|nominatim|google, result: hit|miss|ok|not_found|error
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "woonruil_rate_limit_hits_total",
			Help: "Total rate limit rejections",
		},
		[]string{"scope"}, // "api", "send_message", "create_chat"
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "woonruil_websocket_connections",
			Help: "Open WebSocket connections",
		},
	)
)
