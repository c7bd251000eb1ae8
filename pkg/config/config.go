// Package config loads this engine's settings from the environment, the
// way the teacher's pkg/config does: a Config struct composed of
// sub-configs, each populated by a loadXConfig helper reading FIRM_*
// variables with typed defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds every setting needed to run firmctl or a long-running
// build/serve process against a workspace.
type Config struct {
	Workspace     WorkspaceConfig
	Observability ObservabilityConfig
	QueryCache    QueryCacheConfig
}

// WorkspaceConfig locates the .firm source tree and controls rebuild
// scheduling.
type WorkspaceConfig struct {
	Root            string
	WatchEnabled    bool
	RebuildSchedule string // cron expression, empty disables scheduled rebuilds
	CacheDir        string // filesystem cache backend location, empty disables it

	// CacheBackend selects which graph.CacheStore a snapshot write/read
	// goes through: "file" (default, uses CacheDir) or "s3". Validate
	// rejects any other value.
	CacheBackend string
	S3           S3CacheConfig

	// SQLiteIndexPath, if set, builds a graph.SQLiteIndex secondary index
	// over the built graph at this path (":memory:" for a process-local,
	// non-persistent index).
	SQLiteIndexPath string
}

// S3CacheConfig names the bucket an S3-backed graph.CacheStore uses, read
// only when WorkspaceConfig.CacheBackend is "s3".
type S3CacheConfig struct {
	Region   string
	Bucket   string
	Prefix   string
	Endpoint string // non-empty for MinIO / S3-compatible endpoints
}

// ObservabilityConfig controls logging and the health/metrics HTTP server.
type ObservabilityConfig struct {
	LogLevel    logrus.Level
	MetricsAddr string // host:port the health/metrics server binds, empty disables it
}

// QueryCacheConfig mirrors query.CacheConfig's fields so they can be
// populated from the environment without pkg/config importing pkg/query
// (pkg/query already depends on pkg/graph; keeping config dependency-free
// avoids a needless import just to reuse one struct shape).
type QueryCacheConfig struct {
	L1Size    int
	TTL       time.Duration
	RedisAddr string
	KeyPrefix string
}

// LoadConfig reads every FIRM_* environment variable into a Config and
// validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Workspace:     loadWorkspaceConfig(),
		Observability: loadObservabilityConfig(),
		QueryCache:    loadQueryCacheConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadWorkspaceConfig() WorkspaceConfig {
	return WorkspaceConfig{
		Root:            getEnv("FIRM_WORKSPACE_ROOT", "."),
		WatchEnabled:    getEnvBool("FIRM_WATCH_ENABLED", false),
		RebuildSchedule: getEnv("FIRM_REBUILD_SCHEDULE", ""),
		CacheDir:        getEnv("FIRM_CACHE_DIR", ""),
		CacheBackend:    getEnv("FIRM_GRAPH_CACHE_BACKEND", "file"),
		S3: S3CacheConfig{
			Region:   getEnv("FIRM_GRAPH_CACHE_S3_REGION", "us-east-1"),
			Bucket:   getEnv("FIRM_GRAPH_CACHE_S3_BUCKET", ""),
			Prefix:   getEnv("FIRM_GRAPH_CACHE_S3_PREFIX", "firm"),
			Endpoint: getEnv("FIRM_GRAPH_CACHE_S3_ENDPOINT", ""),
		},
		SQLiteIndexPath: getEnv("FIRM_GRAPH_SQLITE_INDEX_PATH", ""),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:    parseLogLevel(getEnv("FIRM_LOG_LEVEL", "info")),
		MetricsAddr: getEnv("FIRM_METRICS_ADDR", ""),
	}
}

func loadQueryCacheConfig() QueryCacheConfig {
	return QueryCacheConfig{
		L1Size:    getEnvInt("FIRM_QUERY_CACHE_L1_SIZE", 256),
		TTL:       getEnvDuration("FIRM_QUERY_CACHE_TTL", 5*time.Minute),
		RedisAddr: getEnv("FIRM_QUERY_CACHE_REDIS_ADDR", ""),
		KeyPrefix: getEnv("FIRM_QUERY_CACHE_KEY_PREFIX", "firm:query:"),
	}
}

// Validate checks cross-field invariants LoadConfig's per-section defaults
// can't rule out on their own.
func (c *Config) Validate() error {
	if c.Workspace.Root == "" {
		return fmt.Errorf("workspace root is required")
	}
	if c.QueryCache.L1Size <= 0 {
		return fmt.Errorf("query cache L1 size must be positive")
	}
	switch c.Workspace.CacheBackend {
	case "file", "s3":
	default:
		return fmt.Errorf("unknown graph cache backend %q, want file|s3", c.Workspace.CacheBackend)
	}
	if c.Workspace.CacheBackend == "s3" && c.Workspace.S3.Bucket == "" {
		return fmt.Errorf("s3 graph cache backend requires FIRM_GRAPH_CACHE_S3_BUCKET")
	}
	return nil
}

func parseLogLevel(level string) logrus.Level {
	l, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.ToLower(v) == "true" || v == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
