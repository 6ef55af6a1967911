package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mchmarny/raschctl/pkg/rasch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "raschctl"

	StatusOK           = "ok"
	StatusInvalid      = "invalid"
	StatusInsufficient = "insufficient"
	StatusError        = "error"
)

// Metrics holds the collectors of one process on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal     *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	EMIterations      prometheus.Histogram
	DegenerateItems   prometheus.Counter
	NonConvergedTotal *prometheus.CounterVec
	RequestCounter    *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// New creates and registers all collectors, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Total number of analyses by outcome",
			},
			[]string{"status"},
		),
		AnalysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Duration of successful analyses",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		),
		EMIterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "em_iterations",
				Help:      "EM iterations used by item calibration",
				Buckets:   []float64{5, 10, 20, 50, 100},
			},
		),
		DegenerateItems: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "degenerate_items_total",
				Help:      "Items excluded from calibration for zero variance",
			},
		),
		NonConvergedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "convergence_warnings_total",
				Help:      "Iteration caps reached without meeting tolerance",
			},
			[]string{"stage"},
		),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
	}

	m.registry.MustRegister(
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.EMIterations,
		m.DegenerateItems,
		m.NonConvergedTotal,
		m.RequestCounter,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveAnalysis records the outcome of one engine run.
func (m *Metrics) ObserveAnalysis(res *rasch.AnalysisResult, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(AnalysisStatus(err)).Inc()
	if err != nil || res == nil {
		return
	}
	m.AnalysisDuration.Observe(d.Seconds())
	m.EMIterations.Observe(float64(res.Metadata.EMIterations))
	m.DegenerateItems.Add(float64(len(res.Metadata.DegenerateItems)))
	for _, w := range res.Metadata.Warnings {
		m.NonConvergedTotal.WithLabelValues(w.Stage).Inc()
	}
}

// AnalysisStatus maps an engine error to the status label.
func AnalysisStatus(err error) string {
	var ive *rasch.InvalidResponseValueError
	var ide *rasch.InsufficientDataError
	switch {
	case err == nil:
		return StatusOK
	case errors.As(err, &ive), errors.Is(err, rasch.ErrShape):
		return StatusInvalid
	case errors.As(err, &ide):
		return StatusInsufficient
	default:
		return StatusError
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts and times requests by their mux pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}
