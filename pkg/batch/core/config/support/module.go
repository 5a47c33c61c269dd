package support

import (
	"go.uber.org/fx"
)

// Module provides the JobFactory. Tasklet builders arrive through the `tasklet_builders`
// group; listener and job builders register themselves with fx.Invoke.
var Module = fx.Options(
	fx.Provide(NewJobFactory),
)
