package postgres_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dbconfig "github.com/tigerroll/temperature-etl/pkg/batch/adapter/database/config"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/database/gorm/postgres"
)

func TestConnectionString(t *testing.T) {
	cfg := dbconfig.DatabaseConfig{Host: "db", Port: 5432, User: "etl", Password: "pw", Database: "batch"}
	assert.Equal(t, "host=db port=5432 user=etl password=pw dbname=batch sslmode=disable", postgres.ConnectionString(cfg))

	cfg.Sslmode = "require"
	cfg.Schema = "meta"
	assert.Equal(t, "host=db port=5432 user=etl password=pw dbname=batch sslmode=require search_path=meta", postgres.ConnectionString(cfg))
}
