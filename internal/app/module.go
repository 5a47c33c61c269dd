package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/temperature-etl/pkg/batch/component/dataframe"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/config/jsl"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// SessionName names the dataframe session of the process.
const SessionName = "temperature-etl"

// NewSession opens the dataframe session shared by the tasklets and closes it on stop.
func NewSession(lc fx.Lifecycle) *dataframe.Session {
	session := dataframe.NewSession(SessionName)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Debugf("Closing dataframe session '%s'.", session.Name())
			return session.Close()
		},
	})
	return session
}

// LoadJobDefinition registers the embedded JSL. A job id already loaded in this process is
// left in place.
func LoadJobDefinition(data jsl.JSLDefinitionBytes) error {
	def, err := jsl.ParseJSLDefinition(data)
	if err != nil {
		return err
	}
	if _, loaded := jsl.GetJobDefinition(def.ID); loaded {
		logger.Debugf("JSL job '%s' already loaded.", def.ID)
		return nil
	}
	return jsl.LoadJSLDefinitionFromBytes(data)
}

// Module provides the application-scoped resources.
var Module = fx.Options(
	fx.Provide(NewSession),
	fx.Invoke(LoadJobDefinition),
)
