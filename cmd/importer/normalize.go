package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/koharu/importer"
	"github.com/koharu/importer/db"
	"github.com/koharu/importer/models"
)

type normalizeFlags struct {
	format          string
	archiveID       int64
	save            bool
	capitalizeTags  bool
	filenameAsTitle bool
	json            bool
	workers         int
}

// normalizeOutput is the JSON shape of one normalized sidecar
type normalizeOutput struct {
	File    string          `json:"file"`
	Format  importer.Format `json:"format,omitempty"`
	Archive *models.Archive `json:"archive,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func newNormalizeCommand(ctx *commandContext) *cobra.Command {
	var flags normalizeFlags

	cmd := &cobra.Command{
		Use:   "normalize FILE...",
		Short: "Normalize metadata sidecars into archive records",
		Long: "Normalize one or more metadata sidecars. Without --archive-id the files are " +
			"normalized in parallel onto empty records and printed. With --archive-id they " +
			"are merged one after the other onto the stored archive, and --save writes the result back.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := ctx.cfg.Options()
			if cmd.Flags().Changed("capitalize-tags") {
				opts.CapitalizeTags = flags.capitalizeTags
			}
			if cmd.Flags().Changed("filename-as-title") {
				opts.ParseFilenameAsTitle = flags.filenameAsTitle
			}

			var format importer.Format
			if flags.format != "" {
				f, err := importer.ParseFormat(flags.format)
				if err != nil {
					return err
				}
				format = f
			}
			if flags.save && flags.archiveID == 0 {
				return errors.New("--save requires --archive-id")
			}

			docs := make([]importer.Document, 0, len(args))
			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				docs = append(docs, importer.Document{Name: path, Format: format, Content: content})
			}

			var (
				results []importer.Result
				err     error
			)
			if flags.archiveID != 0 {
				results, err = normalizeOntoStored(cmd, ctx, docs, opts, flags)
			} else {
				workers := flags.workers
				if !cmd.Flags().Changed("workers") {
					workers = ctx.cfg.Metadata.Workers
				}
				results, err = importer.NormalizeBatch(cmd.Context(), docs, opts, workers)
			}
			if err != nil {
				return err
			}

			return printResults(cmd, results, flags.json)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Sidecar format (gallery-dl or eze); detected when omitted")
	cmd.Flags().Int64Var(&flags.archiveID, "archive-id", 0, "Merge onto the stored archive with this ID")
	cmd.Flags().BoolVar(&flags.save, "save", false, "Write the merged record back to the archive store")
	cmd.Flags().BoolVar(&flags.capitalizeTags, "capitalize-tags", false, "Title-case tag, artist, circle and parody names")
	cmd.Flags().BoolVar(&flags.filenameAsTitle, "filename-as-title", false, "Derive the title from a gallery filename")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print results as JSON")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Parallel workers (0 means one per CPU)")

	return cmd
}

// normalizeOntoStored merges every document, in order, onto one stored
// archive. Each merge starts from the previous successful result.
func normalizeOntoStored(cmd *cobra.Command, ctx *commandContext, docs []importer.Document, opts importer.Options, flags normalizeFlags) ([]importer.Result, error) {
	store, err := db.New(db.Config{Path: ctx.cfg.Database.Path})
	if err != nil {
		return nil, err
	}
	defer store.Close()

	existing, err := store.GetArchive(cmd.Context(), flags.archiveID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("archive %d not found", flags.archiveID)
	}

	archive := *existing
	results := make([]importer.Result, 0, len(docs))
	for _, doc := range docs {
		doc.Archive = archive
		res, err := importer.NormalizeBatch(cmd.Context(), []importer.Document{doc}, opts, 1)
		if err != nil {
			return nil, err
		}
		if res[0].Err == nil {
			archive = res[0].Archive
		}
		results = append(results, res[0])
	}

	if flags.save {
		if err := store.SaveMetadata(cmd.Context(), archive); err != nil {
			return nil, err
		}
		ctx.logger.Info("saved archive metadata", "archive_id", archive.ID, "title", archive.Title)
	}
	return results, nil
}

func printResults(cmd *cobra.Command, results []importer.Result, asJSON bool) error {
	failed := 0
	out := make([]normalizeOutput, 0, len(results))
	for _, res := range results {
		entry := normalizeOutput{File: res.Name, Format: res.Format}
		if res.Err != nil {
			failed++
			entry.Error = res.Err.Error()
		} else {
			archive := res.Archive
			entry.Archive = &archive
		}
		out = append(out, entry)
	}

	if asJSON {
		if err := writeJSON(cmd, out); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, entry := range out {
			if entry.Error != "" {
				fmt.Fprintf(w, "%s %s\n  %s\n\n", failure("✗"), bold(entry.File), entry.Error)
				continue
			}
			fmt.Fprintf(w, "%s %s (%s)\n%s\n\n", success("✓"), bold(entry.File), entry.Format, renderArchive(*entry.Archive))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d sidecars failed to normalize", failed, len(results))
	}
	return nil
}
