// Package container provides dependency injection for all singleton services
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/bernice-stories/bernice/internal/application/services"
	"github.com/bernice-stories/bernice/internal/domain/repositories"
	"github.com/bernice-stories/bernice/internal/infrastructure/caching/interfaces"
	"github.com/bernice-stories/bernice/internal/infrastructure/caching/stores"
	"github.com/bernice-stories/bernice/internal/infrastructure/chain"
	schema "github.com/bernice-stories/bernice/internal/infrastructure/database"
	"github.com/bernice-stories/bernice/internal/infrastructure/messaging"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/performance"
	"github.com/bernice-stories/bernice/internal/infrastructure/persistence/database"
	"github.com/bernice-stories/bernice/internal/infrastructure/persistence/memory"
	sqlstore "github.com/bernice-stories/bernice/internal/infrastructure/persistence/story"
	"github.com/bernice-stories/bernice/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	Settings *config.Settings

	// Story Services
	StoryService *services.StoryService
	DraftService *services.DraftService
	ChainService *services.ChainService
	EventService *services.EventService
	AuthService  *services.AuthService

	// Infrastructure Dependencies
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker
	DB          *database.DB
	Hub         *messaging.Hub
	Broadcaster *messaging.EventBroadcaster
	ReadCache   interfaces.ReadCache
	TxTracker   *chain.TxTracker
	ChainClient *chain.Client
}

// NewLogger builds the channeled logger described by settings.
func NewLogger(settings *config.Settings) (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToFile = settings.LogToFile
	cfg.LogDirectory = settings.LogDirectory
	cfg.JSONFormat = settings.LogJSON
	cfg.DefaultLevel = logging.ParseLevel(settings.LogLevel)
	return logging.NewChanneledLogger(cfg)
}

// NewContainer creates and wires all singleton services. A chain that cannot
// be reached or has no deployment leaves the chain service in unavailable
// mode instead of failing startup.
func NewContainer(ctx context.Context, settings *config.Settings, logger *logging.ChanneledLogger) (*Container, error) {
	c := &Container{
		Settings:    settings,
		Logger:      logger,
		PerfTracker: performance.NewTracker(nil),
		Hub:         messaging.NewHub(logger),
		ReadCache:   stores.NewReadStore(config.ReadCacheTTL),
	}
	c.Broadcaster = messaging.NewEventBroadcaster(c.Hub, logger)
	c.TxTracker = chain.NewTxTracker(c.Broadcaster)

	repos, err := c.openStores(settings)
	if err != nil {
		return nil, err
	}

	c.StoryService = services.NewStoryService(repos, c.Broadcaster, logger, c.PerfTracker)
	c.DraftService = services.NewDraftService(repos.Drafts, logger)

	c.AuthService, err = services.NewAuthService(settings.JWTSecret, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	c.wireChain(ctx, settings)
	return c, nil
}

func (c *Container) openStores(settings *config.Settings) (repositories.Stores, error) {
	if settings.DatabaseDriver == config.DriverMemory {
		c.Logger.Startup().Info("Using in-memory story store")
		return memory.NewStores(), nil
	}

	start := time.Now()
	dsn := database.DataSourceName(settings.DatabaseDriver, settings.DatabaseURL, settings.DatabaseAuthToken)
	db, err := database.NewConnectionWithLogger(settings.DatabaseDriver, dsn, c.Logger)
	if err != nil {
		return repositories.Stores{}, fmt.Errorf("failed to connect to %s database: %w", settings.DatabaseDriver, err)
	}
	if err := schema.NewTableCreator().CreateSchema(db.DB); err != nil {
		db.Close()
		return repositories.Stores{}, fmt.Errorf("failed to create schema: %w", err)
	}
	c.DB = db
	c.Logger.Startup().Info("Using SQL story store", "driver", settings.DatabaseDriver, "duration", time.Since(start))
	return sqlstore.NewStores(db.DB, c.Logger), nil
}

func (c *Container) wireChain(ctx context.Context, settings *config.Settings) {
	var (
		gateway     *chain.Gateway
		network     chain.Network
		unavailable error
	)

	client, err := chain.Connect(ctx, settings, c.TxTracker, c.Logger)
	if err != nil {
		unavailable = err
		if settings.ChainID != 0 {
			network, _ = chain.LookupNetwork(settings.ChainID)
		}
		c.Logger.Startup().Warn("Contract gateway unavailable", "error", err.Error())
	} else {
		c.ChainClient = client
		gateway = client.Gateway
		network = client.Network
	}

	c.ChainService = services.NewChainService(gateway, network, unavailable, c.TxTracker, c.ReadCache, c.Logger, c.PerfTracker)
	c.EventService = services.NewEventService(c.ChainService, c.Broadcaster, c.Logger)
	if c.ChainClient != nil {
		c.EventService.Attach(c.ChainClient.Listener)
	}
}

// Close releases the chain connection and the database.
func (c *Container) Close() error {
	if c.ChainClient != nil {
		c.ChainClient.Close()
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
