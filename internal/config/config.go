package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port               string        `env:"PORT"                 envDefault:"8080"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:8080" envSeparator:","`
	AnalysisAPIURL     string        `env:"ANALYSIS_API_URL"     envDefault:"https://analysis-app-ruud.onrender.com/api"`
	AnalysisAPITimeout time.Duration `env:"ANALYSIS_API_TIMEOUT" envDefault:"5m"`
	MaxUploadBytes     int64         `env:"MAX_UPLOAD_BYTES"     envDefault:"52428800"`

	PostgresDSN string `env:"POSTGRES_DSN"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/datasets.db"`

	MongoURI string `env:"MONGO_URI" envDefault:"mongodb://mongo:27017"`
	MongoDB  string `env:"MONGO_DB"  envDefault:"text_analysis"`

	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"redis:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT"   envDefault:"minio:9000"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET"     envDefault:"text-analysis"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL"    envDefault:"false"`

	SessionTTL    time.Duration `env:"SESSION_TTL"    envDefault:"24h"`
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"false"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if !strings.HasPrefix(c.AnalysisAPIURL, "http://") && !strings.HasPrefix(c.AnalysisAPIURL, "https://") {
		errs = append(errs, fmt.Errorf("ANALYSIS_API_URL must be an http(s) URL, got %q", c.AnalysisAPIURL))
	}
	if c.AnalysisAPITimeout <= 0 {
		errs = append(errs, errors.New("ANALYSIS_API_TIMEOUT must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.PostgresDSN == "" && strings.TrimSpace(c.SQLitePath) == "" {
		errs = append(errs, errors.New("one of POSTGRES_DSN or SQLITE_PATH is required"))
	}
	return errors.Join(errs...)
}
