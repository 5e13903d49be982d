package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	VenueFetches      *prometheus.CounterVec
	ViewportCache     *prometheus.CounterVec
	SharedCache       *prometheus.CounterVec
	APIRequestSeconds *prometheus.HistogramVec
	APIErrors         *prometheus.CounterVec
	TokenRefreshes    *prometheus.CounterVec
	GeocodingSeconds  *prometheus.HistogramVec
	ActiveMaps        prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		VenueFetches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "venuemap_venue_fetches_total",
			Help: "Total number of viewport venue fetches by outcome (success, failure, stale).",
		}, []string{"status"}),
		ViewportCache: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "venuemap_viewport_cache_total",
			Help: "Total number of viewport cache lookups by result (hit, miss).",
		}, []string{"result"}),
		SharedCache: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "venuemap_shared_cache_total",
			Help: "Total number of shared venue cache lookups by result (hit, miss, bypass, error).",
		}, []string{"result"}),
		APIRequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "venuemap_api_request_duration_seconds",
			Help:    "Duration of requests to the places API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		APIErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "venuemap_api_errors_total",
			Help: "Total number of failed requests to the places API.",
		}, []string{"endpoint"}),
		TokenRefreshes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "venuemap_token_refreshes_total",
			Help: "Total number of access token refresh attempts by outcome.",
		}, []string{"status"}),
		GeocodingSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "venuemap_geocoding_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ActiveMaps: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "venuemap_active_maps",
			Help: "Current number of open map views with a running viewport loader.",
		}),
	}
}
