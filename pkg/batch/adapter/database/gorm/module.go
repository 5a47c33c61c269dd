package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/database"
)

// Module provides the connection resolver and closes every pooled connection on stop.
// Driver providers are contributed by the sqlite, postgres and mysql sub-packages.
var Module = fx.Options(
	fx.Provide(NewGormDBConnectionResolver),
	fx.Provide(func(r *GormDBConnectionResolver) database.DBConnectionResolver { return r }),
	fx.Invoke(func(lc fx.Lifecycle, r *GormDBConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return r.CloseAll()
			},
		})
	}),
)
