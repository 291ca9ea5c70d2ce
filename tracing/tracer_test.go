package tracing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracerTestSuite TracerProvider 构建测试套件.
type TracerTestSuite struct {
	suite.Suite
	providers []*sdktrace.TracerProvider
}

func TestTracerSuite(t *testing.T) {
	suite.Run(t, new(TracerTestSuite))
}

func (s *TracerTestSuite) TearDownTest() {
	for _, tp := range s.providers {
		_ = tp.Shutdown(context.Background())
	}
	s.providers = nil
}

func (s *TracerTestSuite) newTracer(cfg *TracingConfig, name string) (*sdktrace.TracerProvider, error) {
	tp, err := NewTracer(cfg, name, "1.0.0")
	if tp != nil {
		s.providers = append(s.providers, tp)
	}
	return tp, err
}

func enabled(endpoint string) *TracingConfig {
	return &TracingConfig{Enabled: true, OTLP: &OTLPConfig{Endpoint: endpoint}}
}

func (s *TracerTestSuite) TestRejectsInvalidConfig() {
	tests := []struct {
		name    string
		cfg     *TracingConfig
		service string
		want    error
	}{
		{"nil config", nil, "jobd", ErrNilConfig},
		{"empty service", enabled("localhost:4318"), "", ErrEmptyServiceName},
		{"nil otlp", &TracingConfig{Enabled: true}, "jobd", ErrEmptyEndpoint},
		{"empty endpoint", enabled(""), "jobd", ErrEmptyEndpoint},
		{"bad scheme", enabled("grpc://collector:4317"), "jobd", ErrInvalidEndpoint},
		{"no host", enabled("http://"), "jobd", ErrInvalidEndpoint},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			tp, err := s.newTracer(tt.cfg, tt.service)
			s.Nil(tp)
			s.ErrorIs(err, tt.want)
		})
	}
}

func (s *TracerTestSuite) TestDisabledNeedsNothingElse() {
	tp, err := s.newTracer(&TracingConfig{}, "")
	s.Require().NoError(err)
	s.NotNil(tp)
}

func (s *TracerTestSuite) TestEnabled() {
	for _, endpoint := range []string{
		"localhost:4318",
		"http://localhost:4318",
		"https://otel.example.com/custom/traces",
	} {
		s.Run(endpoint, func() {
			cfg := enabled(endpoint)
			cfg.SamplingRate = 0.5
			cfg.OTLP.Headers = map[string]string{"Authorization": "Bearer token"}
			cfg.OTLP.Timeout = 3 * time.Second

			tp, err := s.newTracer(cfg, "jobd")
			s.Require().NoError(err)
			s.NotNil(tp.Tracer(TracerName))
		})
	}
}

func (s *TracerTestSuite) TestMustNewTracer() {
	s.Panics(func() { MustNewTracer(nil, "jobd", "1.0.0") })
	s.NotPanics(func() {
		s.providers = append(s.providers, MustNewTracer(&TracingConfig{}, "jobd", "1.0.0"))
	})
}

func (s *TracerTestSuite) TestEndpointURL() {
	tests := map[string]string{
		"localhost:4318":                  "http://localhost:4318/v1/traces",
		"http://collector:4318/":          "http://collector:4318/v1/traces",
		"https://otel.example.com":        "https://otel.example.com/v1/traces",
		"https://otel.example.com/ingest": "https://otel.example.com/ingest",
	}
	for in, want := range tests {
		got, err := endpointURL(in)
		s.Require().NoError(err, in)
		s.Equal(want, got, in)
	}
}

func (s *TracerTestSuite) TestSampler() {
	for rate, want := range map[float64]string{
		0:    "AlwaysOnSampler",
		-1:   "AlwaysOnSampler",
		1.5:  "AlwaysOnSampler",
		1:    "AlwaysOnSampler",
		0.25: "TraceIDRatioBased{0.25}",
	} {
		cfg := &TracingConfig{SamplingRate: rate}
		s.Contains(cfg.sampler().Description(), want)
	}
}
