package telemetry

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/solatis/browscap/internal/types"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browscap_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "browscap_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browscap_lookups_total",
			Help: "User-Agent lookups by outcome",
		},
		[]string{"result"},
	)
	lookupDur = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "browscap_lookup_duration_seconds",
		Help:    "User-Agent lookup duration in seconds",
		Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
	})

	updates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browscap_updates_total",
			Help: "Definitions updates by outcome",
		},
		[]string{"result"},
	)
	ShardsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browscap_shards_written_total",
			Help: "Shards written to the store per index",
		},
		[]string{"index"},
	)
	DatasetVersion = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "browscap_dataset_version",
		Help: "Definitions version currently served",
	})
	DroppedRules = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "browscap_dropped_rules",
		Help: "Rules dropped while compiling the served dataset",
	})
)

var initOnce sync.Once

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpReqs, httpDur, lookups, lookupDur, updates,
			ShardsWritten, DatasetVersion, DroppedRules)
	})
}

// ObserveLookup records one lookup that started at start.
func ObserveLookup(start time.Time, err error) {
	lookupDur.Observe(time.Since(start).Seconds())
	lookups.WithLabelValues(LookupResult(err)).Inc()
}

// LookupResult maps a lookup error to its metric label.
func LookupResult(err error) string {
	switch {
	case err == nil:
		return "match"
	case errors.Is(err, types.ErrNoMatchingRule):
		return "no_match"
	default:
		return "error"
	}
}

// ObserveUpdate records the outcome of a definitions update.
func ObserveUpdate(meta *types.Metadata, err error) {
	switch {
	case err == nil:
		updates.WithLabelValues("published").Inc()
		ObserveDataset(meta)
	case errors.Is(err, types.ErrUpToDate):
		updates.WithLabelValues("up_to_date").Inc()
	default:
		updates.WithLabelValues("failed").Inc()
	}
}

// ObserveDataset sets the gauges describing the served dataset.
func ObserveDataset(meta *types.Metadata) {
	if meta == nil {
		return
	}
	DatasetVersion.Set(float64(meta.Version))
	DroppedRules.Set(float64(meta.DroppedRules))
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// route pattern is only known once chi has routed the request
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
