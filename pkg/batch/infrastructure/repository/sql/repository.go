// Package sql provides a JobRepository persisted through gorm. Tables are created with
// AutoMigrate when the repository is constructed.
package sql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/database"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

const module = "SQLJobRepository"

// SQLJobRepository implements repository.JobRepository over a named database connection.
type SQLJobRepository struct {
	dbResolver database.DBConnectionResolver
	// dbName is the connection name under `surfin.adapter.database` (e.g. "metadata").
	dbName string
}

// NewSQLJobRepository creates the repository and migrates its tables.
//
// Parameters:
//
//	ctx: Context for the migration.
//	dbResolver: Resolver of the metadata connection.
//	dbName: Name of the database connection to be used by this repository.
//
// Returns:
//
//	A ready SQLJobRepository, or an error when the connection or the migration fails.
func NewSQLJobRepository(ctx context.Context, dbResolver database.DBConnectionResolver, dbName string) (*SQLJobRepository, error) {
	r := &SQLJobRepository{dbResolver: dbResolver, dbName: dbName}
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(entities...); err != nil {
		return nil, exception.NewBatchError(module, "Failed to migrate job repository tables", err, false, false)
	}
	logger.Infof("SQLJobRepository ready on connection '%s'.", dbName)
	return r, nil
}

func (r *SQLJobRepository) db(ctx context.Context) (*gorm.DB, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("Failed to resolve DB connection '%s'", r.dbName), err, false, true)
	}
	return conn.DB(ctx), nil
}

// Close is a no-op; pooled connections are owned by the resolver.
func (r *SQLJobRepository) Close() error {
	return nil
}

// updateVersioned writes entity when the stored version equals version and bumps the version.
// It returns notFound when no row has the id, and an optimistic locking failure when the
// row exists with another version.
func updateVersioned(db *gorm.DB, entity interface{}, id string, version int, notFound error) error {
	result := db.Model(entity).
		Where("id = ? AND version = ?", id, version).
		Select("*").
		Updates(entity)
	if result.Error != nil {
		return exception.NewBatchError(module, fmt.Sprintf("Failed to update record '%s'", id), result.Error, false, true)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(entity).Where("id = ?", id).Count(&count).Error; err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("Failed to check record '%s'", id), err, false, true)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return exception.NewOptimisticLockingFailureException(module, fmt.Sprintf("record '%s' was modified concurrently (expected version %d)", id, version), nil)
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

var _ repository.JobRepository = (*SQLJobRepository)(nil)
