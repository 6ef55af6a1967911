package metrics

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mchmarny/raschctl/pkg/rasch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, StatusOK},
		{"invalid value", &rasch.InvalidResponseValueError{Row: 1, Column: 2, Value: 3}, StatusInvalid},
		{"shape", fmt.Errorf("reading: %w", rasch.ErrShape), StatusInvalid},
		{"insufficient", &rasch.InsufficientDataError{Reason: "too few"}, StatusInsufficient},
		{"other", io.ErrUnexpectedEOF, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnalysisStatus(tt.err))
		})
	}
}

func TestObserveAnalysis(t *testing.T) {
	m := New()

	mat, err := rasch.NewResponseMatrix([]string{"a", "b", "c"}, [][]float64{
		{1, 1, 0},
		{1, 0, 1},
		{1, 1, 1},
		{1, 0, 0},
	})
	require.NoError(t, err)
	res, err := rasch.Analyze(mat, rasch.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	m.ObserveAnalysis(res, nil, 20*time.Millisecond)
	m.ObserveAnalysis(nil, &rasch.InsufficientDataError{Reason: "x"}, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(StatusInsufficient)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DegenerateItems))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AnalysisDuration))

	var nilMetrics *Metrics
	nilMetrics.ObserveAnalysis(res, nil, time.Second)
}

func TestMiddleware(t *testing.T) {
	m := New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/runs/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := m.Middleware(mux)

	for range 2 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/abc", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues(http.MethodGet, "GET /v1/runs/{id}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues(http.MethodGet, "unmatched", "404")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.AnalysesTotal.WithLabelValues(StatusOK).Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `raschctl_analyses_total{status="ok"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
