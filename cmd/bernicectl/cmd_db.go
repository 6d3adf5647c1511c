package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bernice-stories/bernice/internal/application/container"
	schema "github.com/bernice-stories/bernice/internal/infrastructure/database"
	"github.com/bernice-stories/bernice/internal/infrastructure/persistence/database"
	"github.com/bernice-stories/bernice/pkg/config"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the story database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create any missing tables",
	RunE:  runDBMigrate,
}

var dbCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Connect to the configured database and report its tables",
	RunE:  runDBCheck,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo story when the store is empty",
	RunE:  runSeed,
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbCheckCmd)
}

func openDatabase() (*database.DB, error) {
	settings, logger, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if settings.DatabaseDriver == config.DriverMemory {
		return nil, fmt.Errorf("BERNICE_DB_DRIVER is %q; set sqlite3 or libsql", config.DriverMemory)
	}
	dsn := database.DataSourceName(settings.DatabaseDriver, settings.DatabaseURL, settings.DatabaseAuthToken)
	if err := database.TestConnectionWithLogger(settings.DatabaseDriver, dsn, logger); err != nil {
		return nil, err
	}
	return database.NewConnectionWithLogger(settings.DatabaseDriver, dsn, logger)
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	tc := schema.NewTableCreator()
	if err := tc.CreateSchema(db.DB); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema ready on %s: %v\n", db.Driver, tc.TableNames())
	return nil
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	for _, table := range schema.NewTableCreator().TableNames() {
		var count int
		// Table names come from the fixed schema list.
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s missing (%v)\n", table, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-12s %d rows\n", table, count)
	}
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	settings, logger, err := loadSettings()
	if err != nil {
		return err
	}
	if settings.DatabaseDriver == config.DriverMemory {
		return fmt.Errorf("seeding the memory store has no lasting effect; set BERNICE_DEMO_SEED=true for the server instead")
	}
	// Seeding never needs the contract.
	settings.RPCURL = ""

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	c, err := container.NewContainer(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	seeded, err := c.StoryService.SeedDemo(ctx)
	if err != nil {
		return err
	}
	if !seeded {
		fmt.Fprintln(cmd.OutOrStdout(), "Store already has stories, nothing seeded")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Demo story seeded")
	return nil
}
