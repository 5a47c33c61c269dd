package logging

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/fx"

	port "github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	jsl "github.com/tigerroll/temperature-etl/pkg/batch/core/config/jsl"
	support "github.com/tigerroll/temperature-etl/pkg/batch/core/config/support"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

const (
	// JobListenerName is the JSL reference name of LoggingJobListener.
	JobListenerName = "loggingJobListener"
	// StepListenerName is the JSL reference name of LoggingStepListener.
	StepListenerName = "loggingStepListener"
)

func decodeConfig(properties map[string]interface{}) (ListenerConfig, error) {
	var cfg ListenerConfig
	if err := mapstructure.Decode(properties, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode logging listener properties: %w", err)
	}
	return cfg, nil
}

// NewLoggingJobListenerBuilder creates a builder for LoggingJobListener.
func NewLoggingJobListenerBuilder() jsl.JobExecutionListenerBuilder {
	return func(_ *config.Config, properties map[string]interface{}) (port.JobExecutionListener, error) {
		cfg, err := decodeConfig(properties)
		if err != nil {
			return nil, err
		}
		return NewLoggingJobListener(cfg), nil
	}
}

// NewLoggingStepListenerBuilder creates a builder for LoggingStepListener.
func NewLoggingStepListenerBuilder() jsl.StepExecutionListenerBuilder {
	return func(_ *config.Config, properties map[string]interface{}) (port.StepExecutionListener, error) {
		cfg, err := decodeConfig(properties)
		if err != nil {
			return nil, err
		}
		return NewLoggingStepListener(cfg), nil
	}
}

// RegisterListeners registers the logging listeners with the JobFactory as defaults,
// so every job and every step gets one.
func RegisterListeners(jf *support.JobFactory) {
	jf.RegisterDefaultJobListenerBuilder(JobListenerName, NewLoggingJobListenerBuilder())
	jf.RegisterDefaultStepExecutionListenerBuilder(StepListenerName, NewLoggingStepListenerBuilder())
	logger.Debugf("Logging listeners registered with JobFactory.")
}

// Module registers the logging listeners.
var Module = fx.Options(
	fx.Invoke(RegisterListeners),
)
