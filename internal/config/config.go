package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config is the explicit configuration passed into constructors. Nothing in
// the application reads ambient process state directly.
type Config struct {
	// DataDir holds the database, search index and content files.
	DataDir    string
	DBPath     string
	IndexPath  string
	ContentDir string

	MailerLiteAPIKey string
	// MailerLiteAPIURL overrides the production API root (tests, proxies).
	MailerLiteAPIURL string

	ListenAddr string

	SyncPageDelay        time.Duration
	SyncRateLimitBackoff time.Duration
}

// Load builds configuration from the environment. A .env file in the
// working directory is honored when present but optional.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MailerLiteAPIKey: os.Getenv("MAILERLITE_API_KEY"),
		MailerLiteAPIURL: os.Getenv("MAILERLITE_API_URL"),
		ListenAddr:       envOr("LISTEN_ADDR", "localhost:8182"),
	}

	var err error
	if cfg.SyncPageDelay, err = envDuration("SYNC_PAGE_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.SyncRateLimitBackoff, err = envDuration("SYNC_RATE_LIMIT_BACKOFF", 10*time.Second); err != nil {
		return nil, err
	}

	cfg.SetDataDir(envOr("DATA_DIR", "./data"))
	return cfg, nil
}

// SetDataDir points the config at dir and recomputes the derived paths.
func (c *Config) SetDataDir(dir string) {
	c.DataDir = dir
	c.DBPath = filepath.Join(dir, "archive.db")
	c.IndexPath = filepath.Join(dir, "index.bleve")
	c.ContentDir = filepath.Join(dir, "content")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
