package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string              `name:"envFilePath" optional:"true"`
	Expander       EnvironmentExpander `optional:"true"`
}

// LoadConfig builds the configuration in four layers, each overriding the previous one:
//  1. defaults from NewConfig
//  2. the embedded YAML, after placeholder expansion (non-zero values only)
//  3. variables from the `.env` file at envFilePath, exported into the process environment
//  4. environment variables named after the upper-cased yaml path, e.g. SURFIN_SYSTEM_LOGGING_LEVEL
//
// A missing `.env` file is not an error.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Debugf(".env file (%s) not loaded: %v", envFilePath, err)
		}
	}
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}

	cfg := NewConfig()

	expanded, err := expander.Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders", err, false, false)
	}

	var yamlConfig Config
	if err := yaml.Unmarshal(expanded, &yamlConfig); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}
	mergeConfig(cfg, &yamlConfig)

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	cfg.EmbeddedConfig = embeddedConfig
	return cfg, nil
}

// NewConfigProvider is an fx provider that loads, validates and publishes *Config.
// It also applies the configured log level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig, params.Expander)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, "configuration validation failed", err, false, false)
	}

	GlobalConfig = cfg

	logger.SetLogLevel(cfg.Surfin.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Surfin.System.Logging.Level)
	return cfg, nil
}

// mergeConfig copies every non-zero value of source into dest.
func mergeConfig(dest, source *Config) {
	s, d := &source.Surfin, &dest.Surfin

	if s.Batch.JobName != "" {
		d.Batch.JobName = s.Batch.JobName
	}

	if s.System.Timezone != "" {
		d.System.Timezone = s.System.Timezone
	}
	if s.System.Logging.Level != "" {
		d.System.Logging.Level = s.System.Logging.Level
	}

	if s.Infrastructure.JobRepositoryType != "" {
		d.Infrastructure.JobRepositoryType = s.Infrastructure.JobRepositoryType
	}
	if s.Infrastructure.JobRepositoryDBRef != "" {
		d.Infrastructure.JobRepositoryDBRef = s.Infrastructure.JobRepositoryDBRef
	}

	if s.Metrics.Enabled {
		d.Metrics.Enabled = true
	}
	if s.Metrics.TextfilePath != "" {
		d.Metrics.TextfilePath = s.Metrics.TextfilePath
	}

	if s.Tracing.Enabled {
		d.Tracing.Enabled = true
	}
	if s.Tracing.Exporter != "" {
		d.Tracing.Exporter = s.Tracing.Exporter
	}
	if s.Tracing.ServiceName != "" {
		d.Tracing.ServiceName = s.Tracing.ServiceName
	}
	if s.Tracing.SampleRatio != 0 {
		d.Tracing.SampleRatio = s.Tracing.SampleRatio
	}

	if s.Security.MaskedParameterKeys != nil {
		d.Security.MaskedParameterKeys = s.Security.MaskedParameterKeys
	}

	if s.AdapterConfigs != nil {
		if d.AdapterConfigs == nil {
			d.AdapterConfigs = make(map[string]interface{})
		}
		for key, value := range s.AdapterConfigs {
			d.AdapterConfigs[key] = value
		}
	}
}

// loadStructFromEnv walks val recursively and sets every field whose environment variable,
// built from the chain of yaml tags joined by "_", is present. Map fields are left to the
// adapters that own them.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		yamlTag, _, _ := strings.Cut(fieldType.Tag.Get("yaml"), ",")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}
		if field.Kind() == reflect.Map {
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField converts value to the kind of field and assigns it.
// Slices of strings are read as a comma-separated list.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element kind %s", field.Type().Elem().Kind())
		}
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	}
	return nil
}
