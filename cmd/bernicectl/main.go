// Command bernicectl runs maintenance tasks against a Bernice deployment:
// schema setup, demo seeding, key and token generation and contract reads.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bernice-stories/bernice/internal/application/container"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/pkg/config"
)

var (
	verbose bool
	timeout time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bernicectl",
	Short: "Maintenance tool for the Bernice storytelling service",
	Long: `bernicectl reads the same environment and .env file as the server.

Available commands:
  db       - Create the schema or check the configured database
  seed     - Insert the demo story into the configured store
  keygen   - Generate a JWT secret and a signer key
  token    - Issue a demo session token for an address
  networks - List known networks and their deployments
  chain    - Read stories from the deployed contract`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(networksCmd)
	rootCmd.AddCommand(chainCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSettings returns the environment settings and a logger that is silent
// unless --verbose is set.
func loadSettings() (*config.Settings, *logging.ChanneledLogger, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if !verbose {
		return settings, logging.NewDiscardLogger(), nil
	}
	logger, err := container.NewLogger(settings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return settings, logger, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
