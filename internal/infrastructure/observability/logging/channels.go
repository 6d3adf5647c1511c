// Package logging provides structured logging channels for Bernice components.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Channel represents a logical logging channel for different system components
type Channel string

const (
	// System channels
	ChannelSystem   Channel = "system"   // General system operations
	ChannelStartup  Channel = "startup"  // Application startup and initialization
	ChannelShutdown Channel = "shutdown" // Application shutdown and cleanup

	// Business logic channels
	ChannelStory  Channel = "story"  // Demo story store operations
	ChannelChain  Channel = "chain"  // Contract reads and transactions
	ChannelEvents Channel = "events" // Contract event delivery
	ChannelAuth   Channel = "auth"   // Demo identity tokens

	// Infrastructure channels
	ChannelDatabase Channel = "database" // Database operations and queries
	ChannelCache    Channel = "cache"    // Read cache operations
	ChannelSSE      Channel = "sse"      // Server-sent events and websockets

	// Performance channels
	ChannelPerf      Channel = "performance" // Operation timings
	ChannelSlowQuery Channel = "slow-query"  // Slow database queries

	ChannelDebug Channel = "debug"
)

var allChannels = []Channel{
	ChannelSystem, ChannelStartup, ChannelShutdown,
	ChannelStory, ChannelChain, ChannelEvents, ChannelAuth,
	ChannelDatabase, ChannelCache, ChannelSSE,
	ChannelPerf, ChannelSlowQuery,
	ChannelDebug,
}

// ChanneledLogger provides structured logging with multiple channels
type ChanneledLogger struct {
	channels map[Channel]*slog.Logger
	files    []*os.File
	config   *LoggerConfig
	configMu sync.RWMutex
}

// LoggerConfig contains configuration options for the channeled logger
type LoggerConfig struct {
	OutputToFile    bool      `json:"outputToFile"`
	OutputToConsole bool      `json:"outputToConsole"`
	LogDirectory    string    `json:"logDirectory"`
	JSONFormat      bool      `json:"jsonFormat"`
	IncludeSource   bool      `json:"includeSource"`
	Writer          io.Writer `json:"-"` // replaces console output when set

	DefaultLevel  slog.Level             `json:"defaultLevel"`
	ChannelLevels map[Channel]slog.Level `json:"channelLevels"`
}

// DefaultLoggerConfig returns a sensible default configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: true,
		LogDirectory:    "logs",
		JSONFormat:      true,
		IncludeSource:   false,
		DefaultLevel:    slog.LevelInfo,
		ChannelLevels:   make(map[Channel]slog.Level),
	}
}

// ParseLevel maps a textual level to slog, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewChanneledLogger creates a new channeled logger with the given configuration
func NewChanneledLogger(config *LoggerConfig) (*ChanneledLogger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if config.ChannelLevels == nil {
		config.ChannelLevels = make(map[Channel]slog.Level)
	}

	logger := &ChanneledLogger{
		channels: make(map[Channel]*slog.Logger),
		config:   config,
	}

	if config.OutputToFile {
		if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	for _, channel := range allChannels {
		channelLogger, err := logger.createChannelLogger(channel)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger for channel %s: %w", channel, err)
		}
		logger.channels[channel] = channelLogger
	}

	return logger, nil
}

// NewDiscardLogger returns a logger that drops everything. Used by tests and
// by the CLI when quiet output is requested.
func NewDiscardLogger() *ChanneledLogger {
	logger, _ := NewChanneledLogger(&LoggerConfig{
		OutputToConsole: true,
		Writer:          io.Discard,
		DefaultLevel:    slog.LevelError,
	})
	return logger
}

// createChannelLogger creates a slog.Logger for a specific channel
func (cl *ChanneledLogger) createChannelLogger(channel Channel) (*slog.Logger, error) {
	level := cl.config.DefaultLevel
	if channelLevel, exists := cl.config.ChannelLevels[channel]; exists {
		level = channelLevel
	}

	var writers []io.Writer

	if cl.config.OutputToConsole {
		if cl.config.Writer != nil {
			writers = append(writers, cl.config.Writer)
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	if cl.config.OutputToFile {
		path := filepath.Join(cl.config.LogDirectory, fmt.Sprintf("%s.log", string(channel)))
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		cl.files = append(cl.files, file)
		writers = append(writers, file)
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = writers[0]
	default:
		writer = io.MultiWriter(writers...)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cl.config.IncludeSource,
	}

	var handler slog.Handler
	if cl.config.JSONFormat {
		handler = slog.NewJSONHandler(writer, handlerOpts)
	} else {
		handler = slog.NewTextHandler(writer, handlerOpts)
	}

	return slog.New(handler).With(slog.String("channel", string(channel))), nil
}

func (cl *ChanneledLogger) get(channel Channel) *slog.Logger {
	cl.configMu.RLock()
	defer cl.configMu.RUnlock()
	return cl.channels[channel]
}

func (cl *ChanneledLogger) System() *slog.Logger    { return cl.get(ChannelSystem) }
func (cl *ChanneledLogger) Startup() *slog.Logger   { return cl.get(ChannelStartup) }
func (cl *ChanneledLogger) Shutdown() *slog.Logger  { return cl.get(ChannelShutdown) }
func (cl *ChanneledLogger) Story() *slog.Logger     { return cl.get(ChannelStory) }
func (cl *ChanneledLogger) Chain() *slog.Logger     { return cl.get(ChannelChain) }
func (cl *ChanneledLogger) Events() *slog.Logger    { return cl.get(ChannelEvents) }
func (cl *ChanneledLogger) Auth() *slog.Logger      { return cl.get(ChannelAuth) }
func (cl *ChanneledLogger) Database() *slog.Logger  { return cl.get(ChannelDatabase) }
func (cl *ChanneledLogger) Cache() *slog.Logger     { return cl.get(ChannelCache) }
func (cl *ChanneledLogger) SSE() *slog.Logger       { return cl.get(ChannelSSE) }
func (cl *ChanneledLogger) Perf() *slog.Logger      { return cl.get(ChannelPerf) }
func (cl *ChanneledLogger) SlowQuery() *slog.Logger { return cl.get(ChannelSlowQuery) }
func (cl *ChanneledLogger) Debug() *slog.Logger     { return cl.get(ChannelDebug) }

// GetChannel returns a logger for a specific channel
func (cl *ChanneledLogger) GetChannel(channel Channel) *slog.Logger {
	if logger := cl.get(channel); logger != nil {
		return logger
	}
	return cl.get(ChannelSystem)
}

// WithOperation returns a logger with operation context
func (cl *ChanneledLogger) WithOperation(channel Channel, operation string) *slog.Logger {
	return cl.GetChannel(channel).With(slog.String("operation", operation))
}

// LogSlowQuery logs a slow database query
func (cl *ChanneledLogger) LogSlowQuery(query string, duration time.Duration) {
	cl.SlowQuery().Warn("Slow query detected",
		slog.String("query", cl.sanitizeQuery(query)),
		slog.Duration("duration", duration),
	)
}

// LogCacheOperation logs cache operations
func (cl *ChanneledLogger) LogCacheOperation(operation, key string, hit bool) {
	logger := cl.Cache().With(
		slog.String("operation", operation),
		slog.String("key", key),
		slog.Bool("hit", hit),
	)
	if hit {
		logger.Debug("Cache hit")
	} else {
		logger.Debug("Cache miss")
	}
}

// LogError logs an error with operation context on the given channel
func (cl *ChanneledLogger) LogError(channel Channel, operation string, err error, metadata map[string]any) {
	logger := cl.GetChannel(channel).With(
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
	for key, value := range metadata {
		logger = logger.With(slog.Any(key, value))
	}
	logger.Error("Operation failed")
}

// LogStartupPhase logs application startup phases
func (cl *ChanneledLogger) LogStartupPhase(phase string, duration time.Duration, success bool, metadata map[string]any) {
	logger := cl.Startup().With(
		slog.String("phase", phase),
		slog.Duration("duration", duration),
		slog.Bool("success", success),
	)
	for key, value := range metadata {
		logger = logger.With(slog.Any(key, value))
	}
	if success {
		logger.Info("Startup phase completed")
	} else {
		logger.Error("Startup phase failed")
	}
}

// LogStreamEvent logs a broadcast to streaming clients
func (cl *ChanneledLogger) LogStreamEvent(event string, clientCount int) {
	cl.SSE().Debug("Stream event broadcasted",
		slog.String("event", event),
		slog.Int("clientCount", clientCount),
	)
}

// sanitizeQuery flattens and truncates SQL for logging
func (cl *ChanneledLogger) sanitizeQuery(query string) string {
	query = strings.ReplaceAll(query, "\n", " ")
	query = strings.ReplaceAll(query, "\t", " ")
	if len(query) > 500 {
		query = query[:500] + "..."
	}
	return query
}

// SetChannelLevel dynamically sets the log level for a specific channel
func (cl *ChanneledLogger) SetChannelLevel(channel Channel, level slog.Level) error {
	cl.configMu.Lock()
	defer cl.configMu.Unlock()

	if _, exists := cl.channels[channel]; !exists {
		return fmt.Errorf("channel %s does not exist", channel)
	}

	cl.config.ChannelLevels[channel] = level
	newLogger, err := cl.createChannelLogger(channel)
	if err != nil {
		return fmt.Errorf("failed to recreate logger for channel %s: %w", channel, err)
	}
	cl.channels[channel] = newLogger
	return nil
}

// GetChannelLevels returns the current log levels for all channels.
func (cl *ChanneledLogger) GetChannelLevels() map[string]string {
	cl.configMu.RLock()
	defer cl.configMu.RUnlock()

	levels := make(map[string]string, len(cl.channels))
	for channel := range cl.channels {
		if level, ok := cl.config.ChannelLevels[channel]; ok {
			levels[string(channel)] = level.String()
		} else {
			levels[string(channel)] = cl.config.DefaultLevel.String()
		}
	}
	return levels
}

// Close closes all log files.
func (cl *ChanneledLogger) Close() error {
	cl.configMu.Lock()
	defer cl.configMu.Unlock()

	var firstErr error
	for _, file := range cl.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	cl.files = nil
	return firstErr
}
