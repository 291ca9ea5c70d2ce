package tracing

import "errors"

var (
	ErrNilConfig        = errors.New("tracing: config is nil")
	ErrEmptyServiceName = errors.New("tracing: service name is empty")
	ErrEmptyEndpoint    = errors.New("tracing: otlp endpoint is empty")
	ErrInvalidEndpoint  = errors.New("tracing: invalid otlp endpoint")
	ErrCreateExporter   = errors.New("tracing: failed to create otlp exporter")
	ErrCreateResource   = errors.New("tracing: failed to create resource")
)
