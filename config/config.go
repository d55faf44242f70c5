// Package config loads importer settings from an optional TOML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/koharu/importer"
	"github.com/koharu/importer/db"
	"github.com/koharu/importer/storage"
)

// Storage backends
const (
	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
)

// Metadata controls sidecar normalization
type Metadata struct {
	CapitalizeTags       bool `toml:"capitalize_tags"`
	ParseFilenameAsTitle bool `toml:"parse_filename_as_title"`
	Workers              int  `toml:"workers"` // 0 means GOMAXPROCS
}

// Directories holds filesystem locations
type Directories struct {
	Images string `toml:"images"`
}

// Database holds the archive store and legacy database locations
type Database struct {
	Path      string `toml:"path"`
	LegacyURL string `toml:"legacy_url"`
}

// S3 configures the S3 image destination
type S3 struct {
	Endpoint        string `toml:"endpoint"`
	Region          string `toml:"region"`
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	UsePathStyle    bool   `toml:"use_path_style"`
}

// Storage selects where migrated images are written
type Storage struct {
	Backend string `toml:"backend"`
	S3      S3     `toml:"s3"`
}

// Server configures the HTTP service
type Server struct {
	Port string `toml:"port"`
	CORS bool   `toml:"cors"`
}

// Logging configures the process logger
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json or text
}

// Config is the complete importer configuration
type Config struct {
	Metadata    Metadata    `toml:"metadata"`
	Directories Directories `toml:"directories"`
	Database    Database    `toml:"database"`
	Storage     Storage     `toml:"storage"`
	Server      Server      `toml:"server"`
	Logging     Logging     `toml:"logging"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Directories: Directories{Images: storage.DefaultConfig().BasePath},
		Database:    Database{Path: db.DefaultConfig().Path},
		Storage:     Storage{Backend: BackendFilesystem},
		Server:      Server{Port: "8080", CORS: true},
		Logging:     Logging{Level: "info", Format: "json"},
	}
}

// Load decodes the TOML file at path over the defaults, applies environment
// overrides and validates the result. An empty path or a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		default:
			defer file.Close()
			if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return b, nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.Metadata.CapitalizeTags, err = getEnvBool("IMPORTER_CAPITALIZE_TAGS", c.Metadata.CapitalizeTags); err != nil {
		return err
	}
	if c.Metadata.ParseFilenameAsTitle, err = getEnvBool("IMPORTER_PARSE_FILENAME_AS_TITLE", c.Metadata.ParseFilenameAsTitle); err != nil {
		return err
	}

	c.Directories.Images = getEnv("IMPORTER_IMAGES_DIR", c.Directories.Images)
	c.Database.Path = getEnv("IMPORTER_DB_PATH", c.Database.Path)
	c.Database.LegacyURL = getEnv("LEGACY_DB_URL", c.Database.LegacyURL)

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.S3.Endpoint = getEnv("S3_ENDPOINT", c.Storage.S3.Endpoint)
	c.Storage.S3.Region = getEnv("S3_REGION", c.Storage.S3.Region)
	c.Storage.S3.Bucket = getEnv("S3_BUCKET", c.Storage.S3.Bucket)
	c.Storage.S3.Prefix = getEnv("S3_PREFIX", c.Storage.S3.Prefix)
	c.Storage.S3.AccessKeyID = getEnv("S3_ACCESS_KEY_ID", c.Storage.S3.AccessKeyID)
	c.Storage.S3.SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", c.Storage.S3.SecretAccessKey)
	if c.Storage.S3.UsePathStyle, err = getEnvBool("S3_USE_PATH_STYLE", c.Storage.S3.UsePathStyle); err != nil {
		return err
	}

	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
	return nil
}

// Validate checks the configuration for unusable values
func (c *Config) Validate() error {
	if c.Metadata.Workers < 0 {
		return fmt.Errorf("metadata.workers must not be negative")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.LegacyURL != "" {
		if err := db.ValidateLegacyURL(c.Database.LegacyURL); err != nil {
			return fmt.Errorf("database.legacy_url: %w", err)
		}
	}

	switch c.Storage.Backend {
	case BackendFilesystem:
		if strings.TrimSpace(c.Directories.Images) == "" {
			return fmt.Errorf("directories.images is required for the filesystem backend")
		}
	case BackendS3:
		if err := c.S3Config().Validate(); err != nil {
			return fmt.Errorf("storage.s3: %w", err)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	return nil
}

// Options returns the normalization options
func (c *Config) Options() importer.Options {
	return importer.Options{
		CapitalizeTags:       c.Metadata.CapitalizeTags,
		ParseFilenameAsTitle: c.Metadata.ParseFilenameAsTitle,
	}
}

// S3Config returns the S3 storage settings
func (c *Config) S3Config() storage.S3Config {
	s := c.Storage.S3
	return storage.S3Config{
		Endpoint:        s.Endpoint,
		Region:          s.Region,
		Bucket:          s.Bucket,
		Prefix:          s.Prefix,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		UsePathStyle:    s.UsePathStyle,
	}
}

// ParseLevel maps a level name to a slog level
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown logging level %q", level)
	}
	return l, nil
}
