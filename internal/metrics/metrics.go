package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for PeerFetchesTotal.
const (
	OutcomeSuccess     = "success"
	OutcomeHTTPError   = "http_error"
	OutcomeUnreachable = "unreachable"
	OutcomeMalformed   = "malformed"
)

// Result labels for SchemaLookupsTotal.
const (
	LookupHit        = "hit"
	LookupResolved   = "resolved"
	LookupUnresolved = "unresolved"
)

var (
	// PeerFetchesTotal counts topology fetches from peers by outcome
	PeerFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgtopology_peer_fetches_total",
			Help: "Total number of peer topology fetches",
		},
		[]string{"outcome"},
	)

	// PeerFetchDuration tracks how long a single peer fetch takes in seconds
	PeerFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "msgtopology_peer_fetch_duration_seconds",
			Help:    "Duration of peer topology fetches in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
	)

	// SchemaLookupsTotal counts schema lookups by cache result
	SchemaLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgtopology_schema_lookups_total",
			Help: "Total number of channel schema lookups",
		},
		[]string{"result"},
	)

	// TopologySavesTotal counts snapshot writes by status
	TopologySavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgtopology_topology_saves_total",
			Help: "Total number of local topology snapshot writes",
		},
		[]string{"status"},
	)

	// MessagesSentTotal counts messages published through the send side channel
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgtopology_messages_sent_total",
			Help: "Total number of messages published through the send endpoint",
		},
		[]string{"channel"},
	)

	// KnownPeers tracks the number of peers visible in the registry at the last aggregation
	KnownPeers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "msgtopology_known_peers",
			Help: "Number of peers listed in the registry at the last aggregation",
		},
	)
)
