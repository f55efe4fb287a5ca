package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Addr            string        // HTTP listen address, e.g. ":8000"
	DBPath          string        // SQLite database path
	APIKey          string        // API key for admin routes (env API_KEY). Empty = auth disabled.
	NeonAPIKey      string        // Neon API key for database provisioning (env NEON_API_KEY)
	PoolSize        int           // Warm pool capacity
	PoolIdleTimeout time.Duration // Idle time before a pooled sandbox is destroyed
	CleanupOrphans  bool          // Destroy leftover managed sandboxes on startup
	EnsureBaseImage bool          // Build the base runtime image on startup if missing
}

// Load reads .env.local, then parses flags and env vars. Flags take
// precedence over env vars.
func Load() *Config {
	// Local secrets (NEON_API_KEY, API_KEY) live in .env.local; absence is fine.
	_ = godotenv.Load(".env.local")

	addr := flag.String("addr", envOrDefault("ADDR", ":8000"), "HTTP listen address")
	dbPath := flag.String("db", envOrDefault("DB_PATH", "clowdy.db"), "SQLite database path")
	poolSize := flag.Int("pool-size", envOrDefaultInt("POOL_SIZE", 10), "Warm pool capacity")
	poolIdle := flag.Duration("pool-idle-timeout", envOrDefaultDuration("POOL_IDLE_TIMEOUT", 5*time.Minute), "Idle time before a pooled sandbox is destroyed")
	cleanupOrphans := flag.Bool("cleanup-orphans", envOrDefaultBool("CLEANUP_ORPHANS", true), "Destroy leftover managed sandboxes on startup")
	ensureBase := flag.Bool("ensure-base-image", envOrDefaultBool("ENSURE_BASE_IMAGE", true), "Build the base runtime image on startup if missing")
	flag.Parse()

	return &Config{
		Addr:            *addr,
		DBPath:          *dbPath,
		APIKey:          os.Getenv("API_KEY"),
		NeonAPIKey:      os.Getenv("NEON_API_KEY"),
		PoolSize:        *poolSize,
		PoolIdleTimeout: *poolIdle,
		CleanupOrphans:  *cleanupOrphans,
		EnsureBaseImage: *ensureBase,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
