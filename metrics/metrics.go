package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the planner's prometheus instruments behind a private
// registry so the default registry stays untouched.
type Collector struct {
	reg *prometheus.Registry

	PlanRequests   prometheus.Counter
	RoutesReturned prometheus.Counter
	PlanDuration   prometheus.Histogram

	SuggestionRequests    prometheus.Counter
	SuggestionCacheHits   prometheus.Counter
	SuggestionCacheMiss   prometheus.Counter
	GeocoderErrsSwallowed prometheus.Counter

	ActiveSessions prometheus.Gauge
	PositionFixes  prometheus.Counter
	SegmentsDone   prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		PlanRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_plan_requests_total",
			Help: "Total route planning calls.",
		}),
		RoutesReturned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_routes_returned_total",
			Help: "Total route options returned across all planning calls.",
		}),
		PlanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_plan_duration_seconds",
			Help:    "Duration of a full planning call.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		SuggestionRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_suggestion_requests_total",
			Help: "Total suggestion queries served.",
		}),
		SuggestionCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_suggestion_cache_hits_total",
			Help: "Geocoder responses served from the TTL cache.",
		}),
		SuggestionCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_suggestion_cache_misses_total",
			Help: "Suggestion queries that went to the geocoder.",
		}),
		GeocoderErrsSwallowed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_geocoder_errors_swallowed_total",
			Help: "Geocoder failures recovered by returning local results only.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planner_navigation_active_sessions",
			Help: "Navigation sessions currently running.",
		}),
		PositionFixes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_navigation_position_fixes_total",
			Help: "Position fixes processed across all sessions.",
		}),
		SegmentsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_navigation_segments_completed_total",
			Help: "Itinerary segments completed across all sessions.",
		}),
	}

	reg.MustRegister(
		c.PlanRequests, c.RoutesReturned, c.PlanDuration,
		c.SuggestionRequests, c.SuggestionCacheHits, c.SuggestionCacheMiss,
		c.GeocoderErrsSwallowed,
		c.ActiveSessions, c.PositionFixes, c.SegmentsDone,
	)

	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
