package metrics

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/temperature-etl/pkg/batch/core/application/port"
	config "github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	jsl "github.com/tigerroll/temperature-etl/pkg/batch/core/config/jsl"
	support "github.com/tigerroll/temperature-etl/pkg/batch/core/config/support"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// StepListenerName is the JSL reference name of MetricsStepListener.
const StepListenerName = "metricsStepListener"

// NewMetricsStepListenerBuilder creates a builder for MetricsStepListener bound to recorder.
func NewMetricsStepListenerBuilder(recorder metrics.MetricRecorder) jsl.StepExecutionListenerBuilder {
	return func(_ *config.Config, _ map[string]interface{}) (port.StepExecutionListener, error) {
		return NewMetricsStepListener(recorder), nil
	}
}

// RegisterListeners registers MetricsStepListener with the JobFactory as a default step listener.
func RegisterListeners(jf *support.JobFactory, recorder metrics.MetricRecorder) {
	jf.RegisterDefaultStepExecutionListenerBuilder(StepListenerName, NewMetricsStepListenerBuilder(recorder))
	logger.Debugf("Metrics listeners registered with JobFactory.")
}

// Module registers the metrics listeners.
var Module = fx.Options(
	fx.Invoke(RegisterListeners),
)
