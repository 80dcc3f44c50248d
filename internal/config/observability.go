package config

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	// Enabled turns span export on. When false the no-op tracer is used.
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// Endpoint is the OTLP/HTTP collector address (host:port).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`

	// Environment tags exported spans (dev, staging, prod).
	Environment string `mapstructure:"environment" json:"environment"`

	// ServiceName is the service.name resource attribute.
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
