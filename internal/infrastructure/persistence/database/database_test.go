package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/pkg/config"
)

func TestDataSourceName(t *testing.T) {
	assert.Equal(t, "file:bernice.db", DataSourceName(config.DriverSQLite, "file:bernice.db", "tok"))
	assert.Equal(t, "libsql://db.turso.io?authToken=tok", DataSourceName(config.DriverLibSQL, "libsql://db.turso.io", "tok"))
	assert.Equal(t, "libsql://db.turso.io?tls=1&authToken=tok", DataSourceName(config.DriverLibSQL, "libsql://db.turso.io?tls=1", "tok"))
	assert.Equal(t, "libsql://db.turso.io", DataSourceName(config.DriverLibSQL, "libsql://db.turso.io", ""))
}

func TestSQLiteMemoryConnection(t *testing.T) {
	db, err := NewConnection(config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, config.DriverSQLite, db.Driver)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	assert.NoError(t, TestConnectionWithLogger(config.DriverSQLite, ":memory:", logging.NewDiscardLogger()))
}
