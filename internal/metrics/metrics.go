package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver.
type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	ingestTotal       *prometheus.CounterVec
	historyLen        prometheus.Gauge
	occupied          prometheus.Gauge
	evictions         prometheus.Counter
	viewers           prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seatbus_ingest_total",
			Help: "Snapshots pushed by the publisher, by transport and result.",
		}, []string{"transport", "result"}),
		historyLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seatbus_history_length",
			Help: "Snapshots currently retained in history.",
		}),
		occupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seatbus_occupied_seats",
			Help: "Occupant count of the latest snapshot.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seatbus_history_evictions_total",
			Help: "Snapshots dropped from the front of history.",
		}),
		viewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seatbus_live_viewers",
			Help: "Websocket viewers currently subscribed.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.ingestTotal,
		m.historyLen,
		m.occupied,
		m.evictions,
		m.viewers,
	)

	return m
}

// Middleware records request count and duration per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		if m == nil {
			return
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Ingested(transport string, count, historyLen int, evicted bool) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(transport, "ok").Inc()
	m.occupied.Set(float64(count))
	m.historyLen.Set(float64(historyLen))
	if evicted {
		m.evictions.Inc()
	}
}

func (m *Metrics) Rejected(transport string) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(transport, "invalid").Inc()
}

func (m *Metrics) ViewerJoined() {
	if m == nil {
		return
	}
	m.viewers.Inc()
}

func (m *Metrics) ViewerLeft() {
	if m == nil {
		return
	}
	m.viewers.Dec()
}
