package database

import (
	"fmt"
	"time"

	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/pkg/config"
)

// TestConnectionWithLogger opens a connection, runs SELECT 1 and closes it.
// Used by the CLI to check a Turso or SQLite target before migrating.
func TestConnectionWithLogger(driverName, dataSourceName string, logger *logging.ChanneledLogger) error {
	start := time.Now()
	logger.Database().Debug("Testing database connection", "driverName", driverName)

	db, err := NewConnectionWithLogger(driverName, dataSourceName, logger)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer db.Close()

	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		logger.Database().Error("Connection test query failed", "error", err.Error(), "driverName", driverName)
		return fmt.Errorf("connection test query failed: %w", err)
	}
	if result != 1 {
		logger.Database().Error("Unexpected query result", "result", result, "expected", 1)
		return fmt.Errorf("unexpected query result: %d", result)
	}

	logger.Database().Info("Connection test successful", "driverName", driverName, "duration", time.Since(start))
	return nil
}

// GetSlowQueryThreshold returns the configured slow query threshold
func GetSlowQueryThreshold() time.Duration {
	return config.SlowQueryThreshold
}
