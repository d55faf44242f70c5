package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store is a destination for migrated archive images. Keys are slash
// separated paths such as "<hash>/cover/1.webp".
type Store interface {
	// MakeDir makes sure the directory-like prefix key exists
	MakeDir(ctx context.Context, key string) error
	// Put writes the contents of r under key, replacing any existing object
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	// Location describes where keys are written, for logs
	Location() string
}

// Config contains storage configuration
type Config struct {
	BasePath string // Base directory for all stored files
}

// DefaultConfig returns default storage configuration
func DefaultConfig() Config {
	return Config{
		BasePath: "./data/images",
	}
}

// Storage stores images on the local filesystem
type Storage struct {
	config Config
}

// New creates a new Storage instance
func New(config Config) (*Storage, error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("storage base path is required")
	}

	// Create base directory if it doesn't exist
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory: %w", err)
	}

	return &Storage{
		config: config,
	}, nil
}

// MakeDir creates the directory for key under the base path
func (s *Storage) MakeDir(ctx context.Context, key string) error {
	if err := os.MkdirAll(s.GetFullPath(key), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", key, err)
	}
	return nil
}

// Put writes r to the file for key, creating parent directories as needed
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := s.GetFullPath(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write image file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return nil
}

// Location returns the base directory
func (s *Storage) Location() string {
	return s.config.BasePath
}

// GetFullPath returns the full filesystem path for a key
func (s *Storage) GetFullPath(key string) string {
	return filepath.Join(s.config.BasePath, filepath.FromSlash(cleanKey(key)))
}

// cleanKey normalizes a key and keeps it inside the store root
func cleanKey(key string) string {
	key = strings.ReplaceAll(key, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+key), "/")
}

// ContentTypeForExtension returns the MIME type for an image extension
func ContentTypeForExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "avif":
		return "image/avif"
	case "jxl":
		return "image/jxl"
	case "gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
