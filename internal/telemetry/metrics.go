package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by route, method and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foodgram",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests handled",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "foodgram",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	RecipesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "foodgram",
		Name:      "recipes_created_total",
		Help:      "Recipes created",
	})

	// ShortLinkResolutions counts /s/{code} lookups by outcome (hit, miss).
	ShortLinkResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foodgram",
		Name:      "short_link_resolutions_total",
		Help:      "Short link lookups by outcome",
	}, []string{"outcome"})

	ShoppingListDownloads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "foodgram",
		Name:      "shopping_list_downloads_total",
		Help:      "Shopping list files served",
	})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foodgram",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by a rate limiter",
	}, []string{"limiter"})
)
