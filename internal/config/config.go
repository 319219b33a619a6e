package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/text/language"
)

type Config struct {
	Port string

	// Auth
	FreelinkAPIKey string

	// Filter settings and content fixture files
	SettingsPath string
	ContentPath  string

	// Pathstore connection, optional content source
	PathstoreURL    string
	PathstoreAPIKey string

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentBuild int

	// Request limits
	MaxUploadBytes int64
	MaxTextBytes   int64

	// Job state
	JobTTL time.Duration

	// Remote title scraping
	ScrapeTimeout  time.Duration
	ScrapeCacheTTL time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	DefaultLangcode string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		FreelinkAPIKey: os.Getenv("FREELINK_API_KEY"),

		SettingsPath: os.Getenv("FREELINK_SETTINGS"),
		ContentPath:  os.Getenv("FREELINK_CONTENT"),

		PathstoreURL:    os.Getenv("PATHSTORE_URL"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),

		WorkerCount:        envInt("WORKER_COUNT", 4),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentBuild: envInt("MAX_CONCURRENT_BUILD", 8),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		MaxTextBytes:   envInt64("MAX_TEXT_BYTES", 1048576),    // 1MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		ScrapeTimeout:  envDuration("SCRAPE_TIMEOUT", 10*time.Second),
		ScrapeCacheTTL: envDuration("SCRAPE_CACHE_TTL", 15*time.Minute),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "json"),

		DefaultLangcode: envOr("DEFAULT_LANGCODE", "en"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentBuild <= 0 {
		cfg.MaxConcurrentBuild = 8
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxTextBytes <= 0 {
		cfg.MaxTextBytes = 1048576
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.ScrapeTimeout <= 0 {
		cfg.ScrapeTimeout = 10 * time.Second
	}
	if cfg.ScrapeCacheTTL < 0 {
		cfg.ScrapeCacheTTL = 0
	}

	return cfg
}

func (c Config) Validate() error {
	if c.FreelinkAPIKey == "" {
		return fmt.Errorf("FREELINK_API_KEY is required")
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	if c.PathstoreURL != "" && c.ContentPath != "" {
		return fmt.Errorf("set only one of FREELINK_CONTENT and PATHSTORE_URL")
	}
	if _, err := language.Parse(c.DefaultLangcode); err != nil {
		return fmt.Errorf("DEFAULT_LANGCODE %q: %w", c.DefaultLangcode, err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
