package config

// OtelConfig holds OpenTelemetry tracing configuration.
type OtelConfig struct {
	// Empty disables tracing.
	ExporterEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ServiceName      string  `env:"OTEL_SERVICE_NAME"            envDefault:"osf-crud"`
	SamplingRate     float64 `env:"OTEL_SAMPLING_RATE"           envDefault:"1.0"`
}

func (c OtelConfig) Enabled() bool {
	return c.ExporterEndpoint != ""
}
