package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress   string
	ShutdownTimeout time.Duration

	// Storage backend
	StoreDriver     string // "sqlite", "badger" or "memory"
	StorePath       string // sqlite file or badger directory
	StoreQuotaBytes int64  // 0 = unlimited; mirrors the browser storage quota

	// Statistics persistence
	StatsCodec          string // "plain" (current) or "compact"
	StatsMaxBytes       int    // proactive trim threshold
	StatsTrimSessions   int    // sessions kept by the proactive trim
	QuotaRetainSessions int    // sessions kept after a quota error
	QuotaFloorSessions  int    // sessions kept after a repeated quota error
	LoadMaxSessions     int    // sessions kept after loading
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()
	return &Config{
		ServerAddress:       mustGetenv("SERVER_ADDRESS"),
		ShutdownTimeout:     mustGetDuration("SHUTDOWN_TIMEOUT"),
		StoreDriver:         getenvDefault("STORE_DRIVER", "sqlite"),
		StorePath:           getenvDefault("STORE_PATH", "examsviewer.db"),
		StoreQuotaBytes:     int64(getenvInt("STORE_QUOTA_BYTES", 5*1024*1024)),
		StatsCodec:          getenvDefault("STATS_CODEC", "plain"),
		StatsMaxBytes:       getenvInt("STATS_MAX_BYTES", 4_500_000),
		StatsTrimSessions:   getenvInt("STATS_TRIM_SESSIONS", 50),
		QuotaRetainSessions: getenvInt("QUOTA_RETAIN_SESSIONS", 20),
		QuotaFloorSessions:  getenvInt("QUOTA_FLOOR_SESSIONS", 5),
		LoadMaxSessions:     getenvInt("LOAD_MAX_SESSIONS", 100),
	}
}

func mustGetenv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("config: required environment variable %s is not set", k)
	}
	return v
}

func mustGetDuration(k string) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("config: required environment variable %s is not set", k)
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("config: %s=%q is not a valid duration: %v", k, v, err)
	}
	return d
}

func getenvDefault(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("config: %s=%q is not a valid integer: %v", k, v, err)
	}
	return i
}
