package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	CORS         CORSConfig
	DB           DBConfig
	Log          LogConfig
	Profiler     ProfilerConfig
	Memory       MemoryConfig
	Cache        CacheConfig
	Orchestrator OrchestratorConfig
	Archive      ArchiveConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DBConfig holds PostgreSQL connection settings for the run archive.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProfilerConfig holds document probe settings.
type ProfilerConfig struct {
	ProbeBytes int `mapstructure:"probe_bytes"`
}

// MemoryConfig holds memory governor settings.
type MemoryConfig struct {
	LimitMB           float64       `mapstructure:"limit_mb"`
	SampleInterval    time.Duration `mapstructure:"sample_interval"`
	WarningThreshold  float64       `mapstructure:"warning_threshold"`
	CriticalThreshold float64       `mapstructure:"critical_threshold"`
}

// MemoryTierConfig holds in-process cache tier settings.
type MemoryTierConfig struct {
	MaxEntries int           `mapstructure:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// DiskTierConfig holds local disk cache tier settings.
type DiskTierConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Dir         string `mapstructure:"dir"`
	SizeLimitMB int64  `mapstructure:"size_limit_mb"`
}

// RemoteTierConfig holds S3-compatible remote cache tier settings.
type RemoteTierConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// CacheConfig holds settings for the tiered result cache.
type CacheConfig struct {
	TTL    time.Duration    `mapstructure:"ttl"`
	Memory MemoryTierConfig `mapstructure:"memory"`
	Disk   DiskTierConfig   `mapstructure:"disk"`
	Remote RemoteTierConfig `mapstructure:"remote"`
}

// OrchestratorConfig holds fallback chain settings.
type OrchestratorConfig struct {
	EarlyExitThreshold float64 `mapstructure:"early_exit_threshold"`
	SafetyMultiplier   float64 `mapstructure:"safety_multiplier"`
	AttemptPriority    string  `mapstructure:"attempt_priority"`
	SingleFlight       bool    `mapstructure:"single_flight"`
	MaxConcurrency     int     `mapstructure:"max_concurrency"`
	HistoryLimit       int     `mapstructure:"history_limit"`
}

// ArchiveConfig holds run archive settings.
type ArchiveConfig struct {
	Backend string `mapstructure:"backend"`
}

// Load reads configuration from environment variables with the PARSEMILL_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PARSEMILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "parsemill")
	v.SetDefault("db.password", "parsemill_secret")
	v.SetDefault("db.name", "parsemill_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Profiler defaults
	v.SetDefault("profiler.probe_bytes", 4096)

	// Memory governor defaults
	v.SetDefault("memory.limit_mb", 2048)
	v.SetDefault("memory.sample_interval", "1s")
	v.SetDefault("memory.warning_threshold", 0.8)
	v.SetDefault("memory.critical_threshold", 0.9)

	// Cache defaults
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.memory.max_entries", 1024)
	v.SetDefault("cache.memory.ttl", "1h")
	v.SetDefault("cache.disk.enabled", true)
	v.SetDefault("cache.disk.dir", "data/cache")
	v.SetDefault("cache.disk.size_limit_mb", 512)
	v.SetDefault("cache.remote.enabled", false)
	v.SetDefault("cache.remote.host", "")
	v.SetDefault("cache.remote.port", 9000)
	v.SetDefault("cache.remote.bucket", "parsemill-cache")
	v.SetDefault("cache.remote.region", "us-east-1")
	v.SetDefault("cache.remote.use_ssl", false)

	// Orchestrator defaults
	v.SetDefault("orchestrator.early_exit_threshold", 0.9)
	v.SetDefault("orchestrator.safety_multiplier", 2.0)
	v.SetDefault("orchestrator.attempt_priority", "normal")
	v.SetDefault("orchestrator.single_flight", false)
	v.SetDefault("orchestrator.max_concurrency", 4)
	v.SetDefault("orchestrator.history_limit", 100)

	// Archive defaults
	v.SetDefault("archive.backend", "noop")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                       "PARSEMILL_SERVER_PORT",
		"server.read_timeout":               "PARSEMILL_SERVER_READ_TIMEOUT",
		"server.write_timeout":              "PARSEMILL_SERVER_WRITE_TIMEOUT",
		"server.environment":                "PARSEMILL_SERVER_ENVIRONMENT",
		"cors.allowed_origins":              "PARSEMILL_CORS_ALLOWED_ORIGINS",
		"db.host":                           "PARSEMILL_DB_HOST",
		"db.port":                           "PARSEMILL_DB_PORT",
		"db.user":                           "PARSEMILL_DB_USER",
		"db.password":                       "PARSEMILL_DB_PASSWORD",
		"db.name":                           "PARSEMILL_DB_NAME",
		"db.sslmode":                        "PARSEMILL_DB_SSLMODE",
		"db.max_open":                       "PARSEMILL_DB_MAX_OPEN",
		"db.max_idle":                       "PARSEMILL_DB_MAX_IDLE",
		"log.level":                         "PARSEMILL_LOG_LEVEL",
		"log.format":                        "PARSEMILL_LOG_FORMAT",
		"profiler.probe_bytes":              "PARSEMILL_PROFILER_PROBE_BYTES",
		"memory.limit_mb":                   "PARSEMILL_MEMORY_LIMIT_MB",
		"memory.sample_interval":            "PARSEMILL_MEMORY_SAMPLE_INTERVAL",
		"memory.warning_threshold":          "PARSEMILL_MEMORY_WARNING_THRESHOLD",
		"memory.critical_threshold":         "PARSEMILL_MEMORY_CRITICAL_THRESHOLD",
		"cache.ttl":                         "PARSEMILL_CACHE_TTL",
		"cache.memory.max_entries":          "PARSEMILL_CACHE_MEMORY_MAX_ENTRIES",
		"cache.memory.ttl":                  "PARSEMILL_CACHE_MEMORY_TTL",
		"cache.disk.enabled":                "PARSEMILL_CACHE_DISK_ENABLED",
		"cache.disk.dir":                    "PARSEMILL_CACHE_DISK_DIR",
		"cache.disk.size_limit_mb":          "PARSEMILL_CACHE_DISK_SIZE_LIMIT_MB",
		"cache.remote.enabled":              "PARSEMILL_CACHE_REMOTE_ENABLED",
		"cache.remote.host":                 "PARSEMILL_CACHE_REMOTE_HOST",
		"cache.remote.port":                 "PARSEMILL_CACHE_REMOTE_PORT",
		"cache.remote.bucket":               "PARSEMILL_CACHE_REMOTE_BUCKET",
		"cache.remote.region":               "PARSEMILL_CACHE_REMOTE_REGION",
		"cache.remote.access_key":           "PARSEMILL_CACHE_REMOTE_ACCESS_KEY",
		"cache.remote.secret_key":           "PARSEMILL_CACHE_REMOTE_SECRET_KEY",
		"cache.remote.use_ssl":              "PARSEMILL_CACHE_REMOTE_USE_SSL",
		"orchestrator.early_exit_threshold": "PARSEMILL_ORCHESTRATOR_EARLY_EXIT_THRESHOLD",
		"orchestrator.safety_multiplier":    "PARSEMILL_ORCHESTRATOR_SAFETY_MULTIPLIER",
		"orchestrator.attempt_priority":     "PARSEMILL_ORCHESTRATOR_ATTEMPT_PRIORITY",
		"orchestrator.single_flight":        "PARSEMILL_ORCHESTRATOR_SINGLE_FLIGHT",
		"orchestrator.max_concurrency":      "PARSEMILL_ORCHESTRATOR_MAX_CONCURRENCY",
		"orchestrator.history_limit":        "PARSEMILL_ORCHESTRATOR_HISTORY_LIMIT",
		"archive.backend":                   "PARSEMILL_ARCHIVE_BACKEND",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if PARSEMILL_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PARSEMILL_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Profiler = ProfilerConfig{
		ProbeBytes: v.GetInt("profiler.probe_bytes"),
	}
	cfg.Memory = MemoryConfig{
		LimitMB:           v.GetFloat64("memory.limit_mb"),
		SampleInterval:    v.GetDuration("memory.sample_interval"),
		WarningThreshold:  v.GetFloat64("memory.warning_threshold"),
		CriticalThreshold: v.GetFloat64("memory.critical_threshold"),
	}
	cfg.Cache = CacheConfig{
		TTL: v.GetDuration("cache.ttl"),
		Memory: MemoryTierConfig{
			MaxEntries: v.GetInt("cache.memory.max_entries"),
			TTL:        v.GetDuration("cache.memory.ttl"),
		},
		Disk: DiskTierConfig{
			Enabled:     v.GetBool("cache.disk.enabled"),
			Dir:         v.GetString("cache.disk.dir"),
			SizeLimitMB: v.GetInt64("cache.disk.size_limit_mb"),
		},
		Remote: RemoteTierConfig{
			Enabled:   v.GetBool("cache.remote.enabled"),
			Host:      v.GetString("cache.remote.host"),
			Port:      v.GetInt("cache.remote.port"),
			Bucket:    v.GetString("cache.remote.bucket"),
			Region:    v.GetString("cache.remote.region"),
			AccessKey: v.GetString("cache.remote.access_key"),
			SecretKey: v.GetString("cache.remote.secret_key"),
			UseSSL:    v.GetBool("cache.remote.use_ssl"),
		},
	}
	cfg.Orchestrator = OrchestratorConfig{
		EarlyExitThreshold: v.GetFloat64("orchestrator.early_exit_threshold"),
		SafetyMultiplier:   v.GetFloat64("orchestrator.safety_multiplier"),
		AttemptPriority:    v.GetString("orchestrator.attempt_priority"),
		SingleFlight:       v.GetBool("orchestrator.single_flight"),
		MaxConcurrency:     v.GetInt("orchestrator.max_concurrency"),
		HistoryLimit:       v.GetInt("orchestrator.history_limit"),
	}
	cfg.Archive = ArchiveConfig{
		Backend: v.GetString("archive.backend"),
	}

	return cfg, nil
}
