package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *Config
		path      string
		namespace string
	}{
		{"custom", &Config{Namespace: "ops", Path: "/internal/metrics"}, "/internal/metrics", "ops"},
		{"defaults", &Config{}, "/metrics", "jobkit"},
		{"default config", DefaultConfig(), "/metrics", "jobkit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewMetrics(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.path, c.GetPath())
			assert.Equal(t, tt.namespace, c.namespace)
		})
	}
}

func TestNewMetrics_NilConfig(t *testing.T) {
	c, err := NewMetrics(nil)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrNilConfig)

	assert.Panics(t, func() { MustNewMetrics(nil) })
	assert.NotPanics(t, func() { MustNewMetrics(DefaultConfig()) })
}

func TestCollectorsAreIsolated(t *testing.T) {
	a := MustNewMetrics(DefaultConfig())
	b := MustNewMetrics(DefaultConfig())

	a.RecordJobSkip("only-a")

	rec := httptest.NewRecorder()
	b.GetHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.NotContains(t, rec.Body.String(), "only-a")

	rec = httptest.NewRecorder()
	a.GetHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `jobkit_scheduler_job_skipped_total{job="only-a"} 1`)
}

func TestRuntimeCollectors(t *testing.T) {
	with := MustNewMetrics(&Config{Runtime: true})
	without := MustNewMetrics(&Config{})

	scrape := func(c *PrometheusCollector) string {
		rec := httptest.NewRecorder()
		c.GetHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return rec.Body.String()
	}
	assert.Contains(t, scrape(with), "go_goroutines")
	assert.NotContains(t, scrape(without), "go_goroutines")
	assert.Contains(t, scrape(without), "promhttp_metric_handler_requests_total")
}

func TestJobBuckets(t *testing.T) {
	c := MustNewMetrics(&Config{JobBuckets: []float64{1, 2}})
	c.RecordJobExecution("bucketed", ResultSuccess, 1500*time.Millisecond)

	rec := httptest.NewRecorder()
	c.GetHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `jobkit_scheduler_job_duration_seconds_bucket{job="bucketed",le="1"} 0`)
	assert.Contains(t, body, `jobkit_scheduler_job_duration_seconds_bucket{job="bucketed",le="2"} 1`)
}

func TestRegister(t *testing.T) {
	c := MustNewMetrics(DefaultConfig())
	extra := prometheus.NewCounter(prometheus.CounterOpts{Name: "extra_total", Help: "extra"})

	require.NoError(t, c.Register(extra))
	assert.ErrorIs(t, c.Register(extra), ErrRegisterMetric)
}
