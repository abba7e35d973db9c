// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threads_http_requests_total",
		Help: "The total number of HTTP requests",
	}, []string{"method", "path", "status_code"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threads_http_request_duration_seconds",
		Help:    "Histogram of HTTP request latency in seconds",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"method", "path"})

	postsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threads_posts_created_total",
		Help: "The total number of created posts",
	})

	postsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threads_posts_deleted_total",
		Help: "The total number of deleted posts",
	})

	profileCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threads_profile_cache_lookups_total",
		Help: "Profile cache lookups by result",
	}, []string{"result"})

	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threads_websocket_clients",
		Help: "Currently connected websocket clients",
	})
)

func ObserveRequest(method, path string, status int, elapsed time.Duration) {
	requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	requestLatency.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func PostCreated() { postsCreated.Inc() }
func PostDeleted() { postsDeleted.Inc() }

func ProfileCacheHit()  { profileCache.WithLabelValues("hit").Inc() }
func ProfileCacheMiss() { profileCache.WithLabelValues("miss").Inc() }

func SetWebsocketClients(n int) { wsClients.Set(float64(n)) }

func Handler() http.Handler {
	return promhttp.Handler()
}
