// Package tasklet holds the tasklets of the temperature ETL job. The tasklets exchange
// frames through a shared dataframe.Session under the names configured in job.yaml.
package tasklet

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/tigerroll/temperature-etl/pkg/batch/component/dataframe"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// Frame names used when a step does not configure its own.
const (
	FrameRaw      = "raw"
	FrameFilled   = "filled"
	FrameCleaned  = "cleaned"
	FrameReshaped = "reshaped"
	FrameReread   = "reread"
)

const previewRows = 5

// frameTasklet carries what every tasklet of the job shares: the session and the step
// ExecutionContext.
type frameTasklet struct {
	name    string
	session *dataframe.Session
	ec      model.ExecutionContext
}

func (t *frameTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	if ec == nil {
		ec = model.NewExecutionContext()
	}
	t.ec = ec
	return nil
}

func (t *frameTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	if t.ec == nil {
		t.ec = model.NewExecutionContext()
	}
	return t.ec, nil
}

// Close does nothing; frames belong to the session.
func (t *frameTasklet) Close(ctx context.Context) error {
	logger.Debugf("%s closed.", t.name)
	return nil
}

func (t *frameTasklet) put(key string, value interface{}) {
	if t.ec == nil {
		t.ec = model.NewExecutionContext()
	}
	t.ec.Put(key, value)
}

func (t *frameTasklet) input(name string) (*dataframe.Frame, error) {
	f, err := t.session.Get(name)
	if err != nil {
		return nil, exception.NewBatchError(t.name, fmt.Sprintf("input frame '%s' is not available", name), err, false, false)
	}
	return f, nil
}

func (t *frameTasklet) output(name string, f *dataframe.Frame) error {
	if err := t.session.Put(name, f); err != nil {
		return exception.NewBatchError(t.name, fmt.Sprintf("failed to store frame '%s'", name), err, false, false)
	}
	logger.Debugf("%s stored frame '%s' (%d rows).", t.name, name, f.Len())
	return nil
}

// decodeProperties decodes JSL properties into out. Scalars are converted weakly, so
// `firstYear: "1961"` and `firstYear: 1961` decode alike.
func decodeProperties(name string, properties map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return exception.NewBatchError(name, "failed to create property decoder", err, false, false)
	}
	if err := decoder.Decode(properties); err != nil {
		return exception.NewBatchError(name, "failed to decode properties", err, false, false)
	}
	return nil
}
