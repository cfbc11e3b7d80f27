package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 进度台账业务指标
	EnrollmentCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_enrollments_total",
			Help: "Total number of successful student enrollments",
		},
	)

	LessonCompletionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_lesson_completions_total",
			Help: "Total number of recorded lesson completions",
		},
	)

	ModuleCompletionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_module_completions_total",
			Help: "Total number of modules completed by students",
		},
	)

	EventPublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_event_publish_failures_total",
			Help: "Total number of failed progress event publications",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(EnrollmentCounter)
	prometheus.MustRegister(LessonCompletionCounter)
	prometheus.MustRegister(ModuleCompletionCounter)
	prometheus.MustRegister(EventPublishFailures)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
