// Package config provides centralized default values for Bernice
package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		if _, err := os.Stat(".env"); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
		// godotenv.Load never overrides variables already present in the process
		if err := godotenv.Load(); err != nil {
			log.Printf("Failed to load .env file: %v", err)
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Database Pool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	SlowQueryThreshold       time.Duration

	// SSE / WebSocket Configuration
	MaxStreamConnections int
	StreamClientBuffer   int
	SSEHeartbeatInterval time.Duration

	// Read cache
	ReadCacheTTL         time.Duration
	CacheCleanupInterval time.Duration

	// Chain
	ChainCallTimeout   time.Duration
	TxConfirmTimeout   time.Duration
	EventPollInterval  time.Duration
	EventPollMaxBlocks int

	// Story rules
	DefaultMaxChapters     int
	MaxTitleLength         int
	MaxChapterLength       int
	ExcerptLength          int
	DemoTokenTTL           time.Duration
	MaxStoriesPerChainBulk int
)

func init() {
	loadEnvFile()

	// Server Configuration
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 0)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Database Pool
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 500*time.Millisecond)

	// SSE / WebSocket Configuration
	MaxStreamConnections = getEnvInt("MAX_STREAM_CONNECTIONS", 1000)
	StreamClientBuffer = getEnvInt("STREAM_CLIENT_BUFFER", 32)
	SSEHeartbeatInterval = getEnvDuration("SSE_HEARTBEAT_INTERVAL", 30*time.Second)

	// Read cache
	ReadCacheTTL = getEnvDuration("READ_CACHE_TTL", 30*time.Second)
	CacheCleanupInterval = getEnvDuration("CACHE_CLEANUP_INTERVAL", 2*time.Minute)

	// Chain
	ChainCallTimeout = getEnvDuration("CHAIN_CALL_TIMEOUT", 15*time.Second)
	TxConfirmTimeout = getEnvDuration("TX_CONFIRM_TIMEOUT", 5*time.Minute)
	EventPollInterval = getEnvDuration("EVENT_POLL_INTERVAL", 4*time.Second)
	EventPollMaxBlocks = getEnvInt("EVENT_POLL_MAX_BLOCKS", 2000)

	// Story rules
	DefaultMaxChapters = getEnvInt("DEFAULT_MAX_CHAPTERS", 10)
	MaxTitleLength = getEnvInt("MAX_TITLE_LENGTH", 100)
	MaxChapterLength = getEnvInt("MAX_CHAPTER_LENGTH", 2000)
	ExcerptLength = getEnvInt("EXCERPT_LENGTH", 150)
	DemoTokenTTL = getEnvDuration("DEMO_TOKEN_TTL", 24*time.Hour)
	MaxStoriesPerChainBulk = getEnvInt("MAX_STORIES_PER_CHAIN_BULK", 200)
}
