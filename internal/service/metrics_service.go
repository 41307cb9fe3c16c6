package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the domain counters.
type MetricsService struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	smsSent         prometheus.Counter
	smsFailed       prometheus.Counter
	rankingDuration prometheus.Histogram
}

// NewMetricsService constructs and registers all collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &MetricsService{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		smsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sms_sent_total",
			Help: "SMS messages delivered successfully.",
		}),
		smsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sms_failed_total",
			Help: "SMS messages that failed to deliver.",
		}),
		rankingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ranking_generation_duration_seconds",
			Help:    "Time spent rebuilding a monthly ranking.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	registry.MustRegister(m.httpRequests, m.httpDuration, m.smsSent, m.smsFailed, m.rankingDuration)
	return m
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// CountSms records delivery outcomes from a dispatch.
func (m *MetricsService) CountSms(sent, failed int) {
	if sent > 0 {
		m.smsSent.Add(float64(sent))
	}
	if failed > 0 {
		m.smsFailed.Add(float64(failed))
	}
}

// ObserveRankingGeneration records one ranking rebuild.
func (m *MetricsService) ObserveRankingGeneration(duration time.Duration) {
	m.rankingDuration.Observe(duration.Seconds())
}

// Handler exposes the registry for the /metrics endpoint.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
