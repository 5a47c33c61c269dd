// Package serialization converts execution state to and from the JSON columns of the SQL
// job repository, and masks sensitive job parameters before they are persisted or logged.
package serialization

import (
	"encoding/json"

	"github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
)

const module = "serialization"

const maskedValue = "********"

// GetMaskedJobParametersMap returns a copy of params with the configured sensitive keys masked.
func GetMaskedJobParametersMap(params map[string]interface{}) map[string]interface{} {
	masked := make(map[string]interface{}, len(params))
	for k, v := range params {
		masked[k] = v
	}
	for _, key := range config.GetMaskedParameterKeys() {
		if _, ok := masked[key]; ok {
			masked[key] = maskedValue
		}
	}
	return masked
}

// MarshalExecutionContext serializes an ExecutionContext map; nil becomes "{}".
func MarshalExecutionContext(ctx map[string]interface{}) ([]byte, error) {
	if ctx == nil {
		return []byte("{}"), nil
	}
	return marshal(ctx, "ExecutionContext")
}

// UnmarshalExecutionContext deserializes data into a fresh map stored in *ctx.
func UnmarshalExecutionContext(data []byte, ctx *map[string]interface{}) error {
	*ctx = make(map[string]interface{})
	return unmarshal(data, ctx, "ExecutionContext")
}

// MarshalJobParameters serializes job parameters with sensitive keys masked.
func MarshalJobParameters(params map[string]interface{}) ([]byte, error) {
	return marshal(GetMaskedJobParametersMap(params), "JobParameters")
}

// UnmarshalJobParameters deserializes data into a fresh map stored in *params.
func UnmarshalJobParameters(data []byte, params *map[string]interface{}) error {
	*params = make(map[string]interface{})
	return unmarshal(data, params, "JobParameters")
}

// MarshalFailures serializes failure messages; nil becomes "[]".
func MarshalFailures(failures []string) ([]byte, error) {
	if failures == nil {
		return []byte("[]"), nil
	}
	return marshal(failures, "Failures")
}

// UnmarshalFailures deserializes data into *msgs, which is never left nil.
func UnmarshalFailures(data []byte, msgs *[]string) error {
	*msgs = []string{}
	return unmarshal(data, msgs, "Failures")
}

func marshal(v interface{}, what string) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, exception.NewBatchError(module, "Failed to serialize "+what, err, false, false)
	}
	return data, nil
}

func unmarshal(data []byte, v interface{}, what string) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return exception.NewBatchError(module, "Failed to deserialize "+what, err, false, false)
	}
	return nil
}
