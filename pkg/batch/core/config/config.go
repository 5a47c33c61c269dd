// Package config provides the configuration model of the batch framework and the loader that
// builds it from defaults, an embedded YAML document, a `.env` file and the environment.
package config

// EmbeddedConfig holds the raw bytes of the application YAML, typically embedded by main.
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level ("DEBUG", "INFO", "WARN", "ERROR", "FATAL"; "TRACE" aliases DEBUG).
	Level string `yaml:"level" validate:"required,oneof=TRACE DEBUG INFO WARN ERROR FATAL trace debug info warn error fatal"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo").
	Timezone string `yaml:"timezone" validate:"required"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// BatchConfig holds configuration specific to the batch engine.
type BatchConfig struct {
	// JobName is the JSL job id launched at startup.
	JobName string `yaml:"job_name" validate:"required"`
}

// InfrastructureConfig selects the backing implementations of framework services.
type InfrastructureConfig struct {
	// JobRepositoryType is "inmemory" or "sql".
	JobRepositoryType string `yaml:"job_repository_type" validate:"required,oneof=inmemory sql"`
	// JobRepositoryDBRef is the database connection name used when JobRepositoryType is "sql".
	JobRepositoryDBRef string `yaml:"job_repository_db_ref"`
}

// MetricsConfig controls the Prometheus recorder.
type MetricsConfig struct {
	// Enabled switches between the Prometheus recorder and a no-op recorder.
	Enabled bool `yaml:"enabled"`
	// TextfilePath, when set, receives the registry in text exposition format after the job.
	TextfilePath string `yaml:"textfile_path"`
}

// TracingConfig controls the OpenTelemetry tracer.
type TracingConfig struct {
	// Enabled switches between the OpenTelemetry tracer and a no-op tracer.
	Enabled bool `yaml:"enabled"`
	// Exporter is "stdout" (pretty-printed spans on standard output) or "none".
	Exporter string `yaml:"exporter" validate:"omitempty,oneof=stdout none"`
	// ServiceName is recorded as the service.name resource attribute.
	ServiceName string `yaml:"service_name"`
	// SampleRatio is the fraction of jobs traced, between 0 and 1.
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// MaskedParameterKeys lists JobParameters keys whose values are masked in logs.
	MaskedParameterKeys []string `yaml:"masked_parameter_keys"`
}

// SurfinConfig holds all configuration under the "surfin" top-level key.
type SurfinConfig struct {
	Batch          BatchConfig          `yaml:"batch"`
	System         SystemConfig         `yaml:"system"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Tracing        TracingConfig        `yaml:"tracing"`
	Security       SecurityConfig       `yaml:"security"`
	// AdapterConfigs holds raw adapter sections keyed by adapter kind ("database", "storage"),
	// each a map of connection name to settings. Adapter packages decode their own section.
	AdapterConfigs map[string]interface{} `yaml:"adapter"`
}

// Config is the root structure of the application configuration.
type Config struct {
	Surfin SurfinConfig `yaml:"surfin"`
	// EmbeddedConfig keeps the source bytes; it is not part of the YAML document.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// GlobalConfig is the configuration instance shared across the application.
// It is set by NewConfigProvider.
var GlobalConfig *Config

// GetMaskedParameterKeys returns the keys to mask from the global configuration.
func GetMaskedParameterKeys() []string {
	if GlobalConfig == nil {
		return []string{}
	}
	return GlobalConfig.Surfin.Security.MaskedParameterKeys
}

// AdapterSection returns the raw settings for one adapter kind, keyed by connection name.
// The result is empty, never nil, when the section is absent or malformed.
func (c *Config) AdapterSection(kind string) map[string]interface{} {
	out := map[string]interface{}{}
	raw, ok := c.Surfin.AdapterConfigs[kind]
	if !ok {
		return out
	}
	section, ok := raw.(map[string]interface{})
	if !ok {
		return out
	}
	for name, v := range section {
		out[name] = v
	}
	return out
}

// NewConfig returns a Config populated with default values.
func NewConfig() *Config {
	return &Config{
		Surfin: SurfinConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Infrastructure: InfrastructureConfig{
				JobRepositoryType:  "inmemory",
				JobRepositoryDBRef: "metadata",
			},
			Tracing: TracingConfig{
				Exporter:    "none",
				ServiceName: "temperature-etl",
				SampleRatio: 1.0,
			},
			Security: SecurityConfig{
				MaskedParameterKeys: []string{"password", "api_key", "secret"},
			},
			AdapterConfigs: map[string]interface{}{},
		},
	}
}
