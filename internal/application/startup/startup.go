// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bernice-stories/bernice/internal/application/container"
	"github.com/bernice-stories/bernice/internal/infrastructure/caching/cleanup"
	"github.com/bernice-stories/bernice/internal/presentation/http/server"
	"github.com/bernice-stories/bernice/pkg/config"
)

// Initialize performs the complete startup sequence and blocks until a
// shutdown signal arrives.
func Initialize() error {
	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `
  ┏┓ ┏━┓┏━┓┏┓╻╻┏━╸┏━╸
  ┣┻┓┣╸ ┣┳┛┃┗┫┃┃  ┣╸
  ┗━┛┗━╸╹┗╸╹ ╹╹┗━╸┗━╸
` + "\033[97m" + `  collaborative storytelling
` + "\033[0m")

	// Step 1: Load configuration
	log.Println("Loading configuration...")
	settings, err := config.Load()
	if err != nil {
		return err
	}
	setupGinMode(settings.GinMode)

	// Step 2: Create the channeled logger
	logger, err := container.NewLogger(settings)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Logger initialized - switching to channeled logging", "level", settings.LogLevel)

	// Step 3: Create dependency injection container
	stepStart := time.Now()
	appContainer, err := container.NewContainer(ctx, settings, logger)
	if err != nil {
		logger.LogStartupPhase("container", time.Since(stepStart), false, map[string]any{"error": err.Error()})
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	logger.LogStartupPhase("container", time.Since(stepStart), true, map[string]any{
		"store": settings.DatabaseDriver,
		"chain": appContainer.ChainService.Status().Enabled,
	})

	// Step 4: Seed demo data
	if settings.DemoSeed {
		if seeded, err := appContainer.StoryService.SeedDemo(ctx); err != nil {
			logger.Startup().Error("Demo seed failed", "error", err.Error())
		} else if seeded {
			logger.Startup().Info("Demo story seeded")
		}
	}

	// Step 5: Start stream hub and cache cleanup
	go appContainer.Hub.Run(ctx)

	cleanupWorker := cleanup.NewWorker(appContainer.ReadCache, logger, cleanup.NewConfig())
	go cleanupWorker.Start(ctx)
	logger.Startup().Info("Background workers started")

	// Step 6: Start contract event listener
	if appContainer.ChainClient != nil && settings.WatchEvents {
		listener := appContainer.ChainClient.Listener
		go func() {
			if err := listener.Run(ctx); err != nil {
				logger.Events().Error("Event listener stopped with error", "error", err.Error())
			}
		}()
		logger.Startup().Info("Contract event listener started")
	}

	// Step 7: Start HTTP server
	httpServer := server.New(settings.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", settings.Port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	shutdownStart := time.Now()

	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	if err := appContainer.Close(); err != nil {
		logger.Shutdown().Error("Error closing container", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))
	return nil
}

func setupGinMode(mode string) {
	switch mode {
	case gin.ReleaseMode:
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
}
