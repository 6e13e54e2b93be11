// Package metrics holds the Prometheus collectors of the vote server and
// exposes them through fiber.
package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics holds all Prometheus collectors. They are usable before Init, which
// only registers them.
var Metrics = struct {
	VotesStarted     *prometheus.CounterVec
	VotesCast        *prometheus.CounterVec
	VotesPassed      *prometheus.CounterVec
	VotesFailed      *prometheus.CounterVec
	CallVoteFailures *prometheus.CounterVec
	BallotsPersisted prometheus.Counter
	BallotErrors     prometheus.Counter
	EventsPublished  prometheus.Counter
	EventsDropped    prometheus.Counter
	MessagesDropped  prometheus.Counter
	TickDuration     prometheus.Histogram
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
}{
	VotesStarted: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callvote_votes_started_total",
			Help: "Ballots opened, by team restriction.",
		},
		[]string{"team"},
	),
	VotesCast: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callvote_votes_cast_total",
			Help: "Votes cast, by option.",
		},
		[]string{"option"},
	),
	VotesPassed: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callvote_votes_passed_total",
			Help: "Ballots passed, by team restriction.",
		},
		[]string{"team"},
	),
	VotesFailed: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callvote_votes_failed_total",
			Help: "Ballots failed, by reason.",
		},
		[]string{"reason"},
	),
	CallVoteFailures: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callvote_callvote_rejected_total",
			Help: "Vote creation requests rejected, by reason.",
		},
		[]string{"reason"},
	),
	BallotsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
		Name: "callvote_ballots_persisted_total",
		Help: "Resolved ballots written to the history table.",
	}),
	BallotErrors: prometheus.NewCounter(prometheus.CounterOpts{
		Name: "callvote_ballot_persist_errors_total",
		Help: "Failed ballot history writes.",
	}),
	EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
		Name: "callvote_events_published_total",
		Help: "Envelopes published to Redis.",
	}),
	EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
		Name: "callvote_events_dropped_total",
		Help: "Envelopes dropped because the publish queue was full.",
	}),
	MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
		Name: "callvote_client_messages_dropped_total",
		Help: "Client messages evicted from full mailboxes.",
	}),
	TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "callvote_tick_duration_seconds",
		Help:    "Time spent in one game loop tick.",
		Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025},
	}),
	RequestDuration: prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "callvote_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	),
	RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "callvote_requests_in_flight",
		Help: "Number of HTTP requests currently being served.",
	}),
	CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
		Name: "callvote_cache_hits_total",
		Help: "Total Redis cache hits.",
	}),
	CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
		Name: "callvote_cache_misses_total",
		Help: "Total Redis cache misses.",
	}),
}

var registerOnce sync.Once

// Init registers all collectors with the default registry. Pool gauges are
// added when pool is non-nil. Safe to call more than once.
func Init(pool *pgxpool.Pool) {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			Metrics.VotesStarted,
			Metrics.VotesCast,
			Metrics.VotesPassed,
			Metrics.VotesFailed,
			Metrics.CallVoteFailures,
			Metrics.BallotsPersisted,
			Metrics.BallotErrors,
			Metrics.EventsPublished,
			Metrics.EventsDropped,
			Metrics.MessagesDropped,
			Metrics.TickDuration,
			Metrics.RequestDuration,
			Metrics.RequestsInFlight,
			Metrics.CacheHits,
			Metrics.CacheMisses,
		)

		// DB pool gauges read live stats from pgxpool
		if pool != nil {
			prometheus.MustRegister(
				prometheus.NewGaugeFunc(
					prometheus.GaugeOpts{
						Name: "callvote_db_connection_pool_active",
						Help: "Number of active database connections.",
					},
					func() float64 {
						return float64(pool.Stat().AcquiredConns())
					},
				),
				prometheus.NewGaugeFunc(
					prometheus.GaugeOpts{
						Name: "callvote_db_connection_pool_idle",
						Help: "Number of idle database connections.",
					},
					func() float64 {
						return float64(pool.Stat().IdleConns())
					},
				),
			)
		}
	})
}

// Middleware records request duration and in-flight count for Prometheus.
func Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		// Don't instrument the /metrics endpoint itself
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Copy path and method into owned strings BEFORE c.Next(). Fiber
		// returns slices backed by the fasthttp buffer which handlers may reuse.
		path := string([]byte(c.Path()))
		method := string([]byte(c.Method()))
		endpoint := sanitizeEndpoint(path)

		Metrics.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())

		Metrics.RequestDuration.WithLabelValues(endpoint, method, status).Observe(duration)
		Metrics.RequestsInFlight.Dec()

		return err
	}
}

// sanitizeEndpoint normalizes paths to avoid cardinality explosion.
func sanitizeEndpoint(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/clients/"):
		return "/api/clients/:slot/messages"
	case strings.HasPrefix(path, "/api/admin/players/"):
		if strings.HasSuffix(path, "/team") {
			return "/api/admin/players/:slot/team"
		}
		return "/api/admin/players/:slot"
	default:
		return path
	}
}

// Handler serves the Prometheus /metrics endpoint via Fiber.
func Handler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
