package metrics

import (
	"net/http"
	"strconv"
	"time"

	"csrdesk/model"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exports HTTP and notification polling metrics.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	pollsTotal         *prometheus.CounterVec
	notificationsAdded *prometheus.CounterVec
	acknowledgements   *prometheus.CounterVec
	importedRecords    *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csrdesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "csrdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		pollsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csrdesk_notification_polls_total",
				Help: "Notification source polls by outcome",
			},
			[]string{"source", "status"},
		),
		notificationsAdded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csrdesk_notifications_added_total",
				Help: "Notifications that appeared in a feed",
			},
			[]string{"source"},
		),
		acknowledgements: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csrdesk_notification_acknowledgements_total",
				Help: "Notifications marked as read",
			},
			[]string{"source"},
		),
		importedRecords: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csrdesk_imported_records_total",
				Help: "Records loaded from CSV files",
			},
			[]string{"resource"},
		),
	}
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) PollCompleted(source model.SourceType, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.pollsTotal.WithLabelValues(string(source), status).Inc()
}

func (c *Collector) NotificationsAdded(source model.SourceType, n int) {
	if n > 0 {
		c.notificationsAdded.WithLabelValues(string(source)).Add(float64(n))
	}
}

func (c *Collector) Acknowledged(source model.SourceType) {
	c.acknowledgements.WithLabelValues(string(source)).Inc()
}

func (c *Collector) RecordsImported(resource string, n int) {
	c.importedRecords.WithLabelValues(resource).Add(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency labelled by route template.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		c.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		c.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
