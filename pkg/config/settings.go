package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Database drivers understood by the persistence layer.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite3"
	DriverLibSQL = "libsql"
)

// Settings is the typed process configuration for the service and the CLI.
type Settings struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"debug"`

	DatabaseDriver    string `env:"BERNICE_DB_DRIVER" envDefault:"memory"`
	DatabaseURL       string `env:"BERNICE_DB_URL" envDefault:"file:bernice.db?_foreign_keys=on"`
	DatabaseAuthToken string `env:"BERNICE_DB_AUTH_TOKEN"`

	RPCURL          string `env:"BERNICE_RPC_URL"`
	ChainID         uint64 `env:"BERNICE_CHAIN_ID"`
	ContractAddress string `env:"BERNICE_CONTRACT_ADDRESS"`
	SignerKey       string `env:"BERNICE_SIGNER_KEY"`
	WatchEvents     bool   `env:"BERNICE_WATCH_EVENTS" envDefault:"true"`

	JWTSecret   string `env:"BERNICE_JWT_SECRET"`
	DemoAddress string `env:"BERNICE_DEMO_ADDRESS" envDefault:"user123"`
	DemoSeed    bool   `env:"BERNICE_DEMO_SEED" envDefault:"false"`

	LogDirectory string `env:"BERNICE_LOG_DIR" envDefault:"logs"`
	LogJSON      bool   `env:"BERNICE_LOG_JSON" envDefault:"true"`
	LogToFile    bool   `env:"BERNICE_LOG_TO_FILE" envDefault:"false"`
	LogLevel     string `env:"BERNICE_LOG_LEVEL" envDefault:"info"`

	AllowedOrigins []string `env:"BERNICE_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000,http://[::1]:3000"`
}

// Load reads .env (once) and parses the environment into Settings.
func Load() (*Settings, error) {
	loadEnvFile()

	settings := &Settings{}
	if err := env.Parse(settings); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks the combinations the environment parser cannot express.
func (s *Settings) Validate() error {
	switch s.DatabaseDriver {
	case DriverMemory, DriverSQLite, DriverLibSQL:
	default:
		return fmt.Errorf("unsupported database driver %q", s.DatabaseDriver)
	}
	if s.DatabaseDriver == DriverLibSQL && !strings.HasPrefix(s.DatabaseURL, "libsql://") && !strings.HasPrefix(s.DatabaseURL, "https://") {
		return fmt.Errorf("libsql driver requires a libsql:// or https:// database URL")
	}
	if s.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	return nil
}

// ChainEnabled reports whether an RPC endpoint was configured.
func (s *Settings) ChainEnabled() bool {
	return s.RPCURL != ""
}

// WritesEnabled reports whether contract writes can be signed.
func (s *Settings) WritesEnabled() bool {
	return s.ChainEnabled() && s.SignerKey != ""
}
