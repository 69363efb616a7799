// Package config loads runtime configuration from an optional .env file and
// the environment, and builds the storage backend it describes.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"s3labels/report"
	"s3labels/s3"
	"s3labels/storage"
)

// Storage backends selectable with STORAGE_BACKEND.
const (
	BackendAWS   = "aws"
	BackendMinio = "minio"
)

// ErrProfileNotAllowed is returned for a requested profile outside
// ALLOWED_PROFILES.
var ErrProfileNotAllowed = errors.New("profile is not allowed")

// Config holds all runtime configuration shared by the binaries.
type Config struct {
	Profile string
	Region  string
	Bucket  string

	// profiles HTTP callers may select besides Profile
	AllowedProfiles []string

	// S3-compatible stores; AWS defaults apply when Endpoint is empty
	StorageBackend   string
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageUseSSL    bool

	SlackWebhookURL string
	ReportFile      string
	Port            string
	LogLevel        string
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, reading from environment")
	}

	return &Config{
		Profile: getEnv("AWS_PROFILE", ""),
		Region:  getEnv("AWS_REGION", ""),
		Bucket:  getEnv("LABEL_BUCKET", report.DefaultBucket),

		AllowedProfiles: splitList(getEnv("ALLOWED_PROFILES", "")),

		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", BackendAWS)),
		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", ""),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", ""),
		StorageUseSSL:    getEnv("STORAGE_USE_SSL", "true") == "true",

		SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
		ReportFile:      getEnv("REPORT_FILE", "label.txt"),
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

// SetupLogging sends logs to stderr at the configured level. Stdout is left to
// command output.
func (c *Config) SetupLogging() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("unknown LOG_LEVEL %q, using info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// WithProfile returns a copy of c using a caller-supplied profile and region.
// Empty values keep the configured ones.
func (c *Config) WithProfile(profile, region string) *Config {
	cp := *c
	if profile != "" {
		cp.Profile = profile
	}
	if region != "" {
		cp.Region = region
	}
	return &cp
}

// CheckProfile rejects a caller-supplied profile that is neither the configured
// one nor listed in AllowedProfiles. An empty profile means the configured one.
func (c *Config) CheckProfile(profile string) error {
	if profile == "" || profile == c.Profile {
		return nil
	}
	for _, p := range c.AllowedProfiles {
		if p == profile {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrProfileNotAllowed, profile)
}

// NewBackend builds the storage backend selected by StorageBackend.
func (c *Config) NewBackend(ctx context.Context) (storage.Backend, error) {
	switch c.StorageBackend {
	case BackendAWS, "":
		return s3.New(ctx, s3.Config{
			Profile:   c.Profile,
			Region:    c.Region,
			Endpoint:  c.StorageEndpoint,
			AccessKey: c.StorageAccessKey,
			SecretKey: c.StorageSecretKey,
		})
	case BackendMinio:
		if c.StorageEndpoint == "" {
			return nil, fmt.Errorf("STORAGE_ENDPOINT is required for the %s backend", BackendMinio)
		}
		return storage.NewMinioBackend(c.StorageEndpoint, c.StorageAccessKey, c.StorageSecretKey, c.Region, c.StorageUseSSL)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
