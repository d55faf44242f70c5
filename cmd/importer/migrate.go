package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/koharu/importer/config"
	"github.com/koharu/importer/db"
	"github.com/koharu/importer/migrate"
	"github.com/koharu/importer/storage"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate data from a legacy installation",
	}

	cmd.AddCommand(newMigrateImagesCommand(ctx))
	cmd.AddCommand(newMigrateDBCommand(ctx))
	return cmd
}

func newMigrateImagesCommand(ctx *commandContext) *cobra.Command {
	var (
		dataDir string
		format  string
		dbURL   string
	)

	cmd := &cobra.Command{
		Use:   "images",
		Short: "Copy legacy cover and thumbnail images into the image store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbURL == "" {
				dbURL = ctx.cfg.Database.LegacyURL
			}
			if err := db.ValidateLegacyURL(dbURL); err != nil {
				return err
			}
			if err := migrate.ValidateImageFormat(format); err != nil {
				return err
			}

			if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
				return fmt.Errorf("data directory %s does not exist or is not a directory", dataDir)
			}

			lock, err := migrate.AcquireLock(filepath.Join(dataDir, ".koharu-migrate.lock"))
			if err != nil {
				return err
			}
			defer lock.Release()

			store, err := newImageStore(cmd.Context(), ctx.cfg)
			if err != nil {
				return err
			}

			legacy, err := db.OpenLegacy(cmd.Context(), dbURL)
			if err != nil {
				return err
			}
			defer legacy.Close()

			hashes, err := legacy.ArchiveHashes(cmd.Context())
			if err != nil {
				return err
			}

			start := time.Now()
			counts, err := migrate.Images(cmd.Context(), store, hashes, migrate.ImageOptions{
				DataDir: dataDir,
				Format:  format,
				Logger:  ctx.logger,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, bold(fmt.Sprintf("~~~ Finished in %.2f seconds ~~~", time.Since(start).Seconds())))
			fmt.Fprintf(w, "Migrated %s covers and %s thumbnails from %s archives (%s skipped)\n",
				bold(counts.Covers), bold(counts.Thumbnails), bold(counts.Archives), bold(counts.Skipped))
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Legacy data directory containing thumbs/")
	cmd.Flags().StringVar(&format, "format", "webp", "Image format of the legacy thumbnails")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "Legacy PostgreSQL URL (defaults to database.legacy_url)")
	_ = cmd.MarkFlagRequired("data-dir")

	return cmd
}

func newMigrateDBCommand(ctx *commandContext) *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Copy legacy archive rows into the SQLite archive store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbURL == "" {
				dbURL = ctx.cfg.Database.LegacyURL
			}
			if err := db.ValidateLegacyURL(dbURL); err != nil {
				return err
			}

			lock, err := migrate.AcquireLock(ctx.cfg.Database.Path + ".lock")
			if err != nil {
				return err
			}
			defer lock.Release()

			legacy, err := db.OpenLegacy(cmd.Context(), dbURL)
			if err != nil {
				return err
			}
			defer legacy.Close()

			store, err := db.New(db.Config{Path: ctx.cfg.Database.Path})
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := migrate.Rows(cmd.Context(), legacy, store, migrate.RowOptions{Logger: ctx.logger})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s archives into %s\n", bold(count), store.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURL, "db-url", "", "Legacy PostgreSQL URL (defaults to database.legacy_url)")
	return cmd
}

// newImageStore builds the destination store selected by the configuration
func newImageStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendFilesystem:
		return storage.New(storage.Config{BasePath: cfg.Directories.Images})
	case config.BackendS3:
		return storage.NewS3Storage(ctx, cfg.S3Config())
	default:
		return nil, errors.New("unknown storage backend " + cfg.Storage.Backend)
	}
}
