package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/avvvet/manavault/internal/importsvc/importer"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns its registry so two services in one test binary don't
// collide on metric names.
type Collector struct {
	registry *prometheus.Registry

	importRuns      *prometheus.CounterVec
	importDuration  prometheus.Histogram
	cardsFetched    prometheus.Gauge
	cardsInserted   prometheus.Gauge
	batchesInserted prometheus.Counter
	batchDuration   prometheus.Histogram
	lastSuccess     prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		importRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "card_import_runs_total",
			Help: "Import runs by final state",
		}, []string{"state"}),
		importDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "card_import_duration_seconds",
			Help:    "Wall time of a full import run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		cardsFetched: f.NewGauge(prometheus.GaugeOpts{
			Name: "card_import_fetched_cards",
			Help: "Cards in the last downloaded payload",
		}),
		cardsInserted: f.NewGauge(prometheus.GaugeOpts{
			Name: "card_import_inserted_cards",
			Help: "Cards inserted so far in the current or last run",
		}),
		batchesInserted: f.NewCounter(prometheus.CounterOpts{
			Name: "card_import_batches_inserted_total",
			Help: "Insert batches executed",
		}),
		batchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "card_import_batch_duration_seconds",
			Help:    "Time taken by one insert batch",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "card_import_last_success_timestamp_seconds",
			Help: "Unix time of the last successful import",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Report implements importer.Reporter.
func (c *Collector) Report(_ context.Context, r importer.Report) {
	c.importRuns.WithLabelValues(r.State).Inc()
	c.importDuration.Observe(r.Duration().Seconds())
	c.cardsFetched.Set(float64(r.Fetched))
	if r.Succeeded() {
		c.cardsInserted.Set(float64(r.Inserted))
		c.lastSuccess.Set(float64(r.FinishedAt.Unix()))
	}
}

// ObserveBatch matches writer.Progress.
func (c *Collector) ObserveBatch(inserted, total int, took time.Duration) {
	c.batchesInserted.Inc()
	c.batchDuration.Observe(took.Seconds())
	c.cardsInserted.Set(float64(inserted))
}

// Middleware counts requests. route is the chi pattern, never the raw path,
// to keep label cardinality bounded.
func (c *Collector) Middleware(route func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			name := route(r)
			c.httpRequests.WithLabelValues(r.Method, name, strconv.Itoa(status)).Inc()
			c.httpDuration.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
		})
	}
}
