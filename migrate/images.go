// Package migrate moves data from a legacy installation into the current
// layout: archive cover and thumbnail images, and archive rows.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/koharu/importer/storage"
)

var tracer = otel.Tracer("github.com/koharu/importer/migrate")

// ImageFormats lists the image formats the legacy thumbnailer produced
var ImageFormats = []string{"webp", "jpeg", "png", "avif", "jxl"}

const (
	coverMarker     = ".c."
	thumbnailMarker = ".t."
)

// ValidateImageFormat checks that format is one of ImageFormats
func ValidateImageFormat(format string) error {
	if !slices.Contains(ImageFormats, format) {
		return fmt.Errorf("unsupported image format %q, expected one of %s", format, strings.Join(ImageFormats, ", "))
	}
	return nil
}

// ImageOptions configures an image migration
type ImageOptions struct {
	DataDir string // legacy data directory containing thumbs/
	Format  string
	Logger  *slog.Logger
}

// ImageCounts summarizes an image migration
type ImageCounts struct {
	Archives   int `json:"archives"`
	Skipped    int `json:"skipped"`
	Covers     int `json:"covers"`
	Thumbnails int `json:"thumbnails"`
}

// Images copies the cover and thumbnail images of every archive in hashes
// from <DataDir>/thumbs/<hash> into store under <hash>/cover and
// <hash>/thumbnail. Archives without a thumbs directory are skipped. The
// run is not resumable; a failure leaves already copied files in place.
func Images(ctx context.Context, store storage.Store, hashes []string, opts ImageOptions) (ImageCounts, error) {
	var counts ImageCounts

	if err := ValidateImageFormat(opts.Format); err != nil {
		return counts, err
	}
	info, err := os.Stat(opts.DataDir)
	if err != nil || !info.IsDir() {
		return counts, fmt.Errorf("data directory %s does not exist or is not a directory", opts.DataDir)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.New().String()
	logger = logger.With("run_id", runID, "job", "images")

	ctx, span := tracer.Start(ctx, "migrate.Images")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("image.format", opts.Format),
		attribute.Int("archives.total", len(hashes)),
	)

	logger.Info("starting image migration",
		"data_dir", opts.DataDir,
		"format", opts.Format,
		"destination", store.Location(),
		"archives", len(hashes),
	)
	start := time.Now()

	for _, hash := range hashes {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancelled")
			return counts, err
		}

		covers, thumbnails, err := migrateArchiveImages(ctx, store, opts.DataDir, hash, opts.Format)
		if errors.Is(err, fs.ErrNotExist) {
			counts.Skipped++
			archivesProcessed.WithLabelValues("skipped").Inc()
			logger.Debug("no thumbnails for archive", "hash", hash)
			continue
		}
		counts.Covers += covers
		counts.Thumbnails += thumbnails
		if err != nil {
			archivesProcessed.WithLabelValues("failed").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return counts, fmt.Errorf("failed to migrate images of %s: %w", hash, err)
		}

		counts.Archives++
		archivesProcessed.WithLabelValues("migrated").Inc()
	}

	span.SetAttributes(
		attribute.Int("archives.migrated", counts.Archives),
		attribute.Int("archives.skipped", counts.Skipped),
	)
	logger.Info("image migration finished",
		"duration", time.Since(start),
		"archives", counts.Archives,
		"skipped", counts.Skipped,
		"covers", counts.Covers,
		"thumbnails", counts.Thumbnails,
	)

	return counts, nil
}

// migrateArchiveImages copies one archive's images. It returns an error
// wrapping fs.ErrNotExist when the archive has no thumbs directory.
func migrateArchiveImages(ctx context.Context, store storage.Store, dataDir, hash, format string) (covers, thumbnails int, err error) {
	dir := filepath.Join(dataDir, "thumbs", hash)
	info, err := os.Stat(dir)
	if err != nil {
		return 0, 0, err
	}
	if !info.IsDir() {
		return 0, 0, fmt.Errorf("%s: %w", dir, fs.ErrNotExist)
	}

	coverDir := path.Join(hash, "cover")
	thumbnailDir := path.Join(hash, "thumbnail")
	for _, key := range []string{coverDir, thumbnailDir} {
		if err := store.MakeDir(ctx, key); err != nil {
			return 0, 0, err
		}
	}

	files, err := filepath.Glob(filepath.Join(globEscape(dir), "*."+format))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	slices.Sort(files)

	contentType := storage.ContentTypeForExtension(format)
	for _, file := range files {
		name := filepath.Base(file)

		var key string
		switch {
		case strings.Contains(name, coverMarker):
			key = path.Join(coverDir, strings.Replace(name, coverMarker, ".", 1))
		case strings.Contains(name, thumbnailMarker):
			key = path.Join(thumbnailDir, strings.Replace(name, thumbnailMarker, ".", 1))
		default:
			continue
		}

		if err := copyFile(ctx, store, file, key, contentType); err != nil {
			return covers, thumbnails, err
		}

		if strings.HasPrefix(key, coverDir+"/") {
			covers++
			imagesCopied.WithLabelValues("cover").Inc()
		} else {
			thumbnails++
			imagesCopied.WithLabelValues("thumbnail").Inc()
		}
	}

	return covers, thumbnails, nil
}

func copyFile(ctx context.Context, store storage.Store, src, key, contentType string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()

	if err := store.Put(ctx, key, f, contentType); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, key, err)
	}
	return nil
}

// globEscape escapes glob metacharacters in a literal directory path
func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
