package metrics

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	metrics "github.com/tigerroll/temperature-etl/pkg/batch/core/metrics"
	logger "github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// NewMetricRecorder returns a PrometheusRecorder when metrics are enabled and a no-op recorder
// otherwise. With a textfile path configured, the registry is written on stop.
func NewMetricRecorder(lc fx.Lifecycle, cfg *config.Config) metrics.MetricRecorder {
	mc := cfg.Surfin.Metrics
	if !mc.Enabled {
		return metrics.NewNoOpMetricRecorder()
	}
	recorder := NewPrometheusRecorder()
	if mc.TextfilePath != "" {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if err := recorder.WriteToTextfile(mc.TextfilePath); err != nil {
					logger.Errorf("Metrics: failed to write %s: %v", mc.TextfilePath, err)
					return err
				}
				return nil
			},
		})
	}
	return recorder
}

// NewTracer returns an OpenTelemetryTracer when tracing is enabled and a no-op tracer otherwise.
// The provider is shut down, flushing pending spans, on stop.
func NewTracer(lc fx.Lifecycle, cfg *config.Config) (metrics.Tracer, error) {
	tc := cfg.Surfin.Tracing
	if !tc.Enabled {
		return metrics.NewNoOpTracer(), nil
	}
	tracer, err := NewOpenTelemetryTracer(tc)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: tracer.Shutdown,
	})
	return tracer, nil
}

// Module is an Fx module that provides the metrics.MetricRecorder and metrics.Tracer selected by configuration.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
