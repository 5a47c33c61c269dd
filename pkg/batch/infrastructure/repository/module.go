// Package repository wires the JobRepository implementation selected by
// `surfin.infrastructure.job_repository_type`.
package repository

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/database"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	domainrepo "github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/temperature-etl/pkg/batch/infrastructure/repository/inmemory"
	sqlrepo "github.com/tigerroll/temperature-etl/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// JobRepositoryParams holds the dependencies of NewJobRepository.
type JobRepositoryParams struct {
	fx.In
	Lifecycle  fx.Lifecycle
	Cfg        *config.Config
	DBResolver database.DBConnectionResolver `optional:"true"`
}

// NewJobRepository builds the configured JobRepository and closes it on stop.
func NewJobRepository(p JobRepositoryParams) (domainrepo.JobRepository, error) {
	repo, err := Build(context.Background(), p.Cfg, p.DBResolver)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return repo.Close()
		},
	})
	return repo, nil
}

// Build returns the JobRepository named by cfg.
func Build(ctx context.Context, cfg *config.Config, dbResolver database.DBConnectionResolver) (domainrepo.JobRepository, error) {
	infra := cfg.Surfin.Infrastructure
	switch infra.JobRepositoryType {
	case "", "inmemory":
		logger.Debugf("Using in-memory JobRepository.")
		return inmemory.NewInMemoryJobRepository(), nil
	case "sql":
		if dbResolver == nil {
			return nil, fmt.Errorf("job repository type 'sql' requires a database connection resolver")
		}
		return sqlrepo.NewSQLJobRepository(ctx, dbResolver, infra.JobRepositoryDBRef)
	default:
		return nil, fmt.Errorf("unknown job repository type '%s'", infra.JobRepositoryType)
	}
}

// Module provides the configured domainrepo.JobRepository.
var Module = fx.Options(
	fx.Provide(NewJobRepository),
)
