package monitor

import (
	"net/http"
	"strconv"
	"time"

	"acrevista-api/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Recorder owns the service's Prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	latency          *prometheus.HistogramVec
	papersSubmitted  prometheus.Counter
	reviewsSubmitted *prometheus.CounterVec
	transitions      *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		papersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papers_submitted_total",
			Help: "Papers submitted.",
		}),
		reviewsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_submitted_total",
			Help: "Reviews submitted, split by whether the reviewer was the paper editor.",
		}, []string{"editor_review"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paper_status_transitions_total",
			Help: "Paper status transitions.",
		}, []string{"from", "to"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requests,
		r.latency,
		r.papersSubmitted,
		r.reviewsSubmitted,
		r.transitions,
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) PaperSubmitted() {
	r.papersSubmitted.Inc()
}

func (r *Recorder) ReviewSubmitted(editorReview bool) {
	r.reviewsSubmitted.WithLabelValues(strconv.FormatBool(editorReview)).Inc()
}

func (r *Recorder) StatusTransition(from, to models.PaperStatus) {
	r.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// Middleware counts and times every request by its route template.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		r.latency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// RegisterRoutes mounts /metrics and /health.
func RegisterRoutes(router *gin.Engine, r *Recorder, db *gorm.DB) {
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})))
	router.GET("/health", Health(db))
}

// Health reports whether the database answers.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
