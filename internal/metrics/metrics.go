package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imgbed",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "imgbed",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imgbed",
		Name:      "uploads_total",
		Help:      "Processed files by outcome.",
	}, []string{"result"})

	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imgbed",
		Name:      "cache_lookups_total",
		Help:      "Upload cache lookups by result.",
	}, []string{"result"})

	rateLimitDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imgbed",
		Name:      "rate_limit_decisions_total",
		Help:      "Rate limiter decisions.",
	}, []string{"decision"})

	compressionAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "imgbed",
		Name:      "compression_attempts",
		Help:      "Encode attempts used per compressed image.",
		Buckets:   prometheus.LinearBuckets(1, 1, 10),
	})
)

// InitMetrics registers the collectors once per process.
func InitMetrics() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, uploads, cacheLookups, rateLimitDecisions, compressionAttempts)
	})
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// ObserveUpload counts one processed file; result is "success", "cached" or a failure class.
func ObserveUpload(result string) {
	uploads.WithLabelValues(result).Inc()
}

// ObserveCacheLookup counts a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// ObserveRateLimit counts an admission decision.
func ObserveRateLimit(allowed bool) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	rateLimitDecisions.WithLabelValues(decision).Inc()
}

// ObserveCompression records how many encode attempts a compression used.
func ObserveCompression(attempts int) {
	compressionAttempts.Observe(float64(attempts))
}
