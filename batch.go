package importer

import (
	"context"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/koharu/importer/models"
)

var tracer = otel.Tracer("github.com/koharu/importer")

// Document is one sidecar queued for batch normalization
type Document struct {
	// Name identifies the document in results, typically the sidecar path
	Name string
	// Format selects the adapter. Empty means detect from content.
	Format  Format
	Content []byte
	Archive models.Archive
}

// Result is the outcome for one Document. Archive holds the normalized
// record on success and the untouched input record on failure.
type Result struct {
	Name    string
	Format  Format
	Archive models.Archive
	Err     error
}

// NormalizeBatch normalizes documents in parallel with at most workers
// goroutines (GOMAXPROCS when workers <= 0). Results are returned in input
// order and a failed document never affects the others.
//
// Documents are normalized independently. If two documents target the same
// archive, the caller must merge their results one after the other.
func NormalizeBatch(ctx context.Context, docs []Document, opts Options, workers int) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "importer.NormalizeBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("importer.documents", len(docs)))

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = normalizeDocument(doc, opts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return results, err
	}
	return results, nil
}

func normalizeDocument(doc Document, opts Options) Result {
	format := doc.Format
	if format == "" {
		detected, ok := DetectFormat(doc.Content)
		if !ok {
			return Result{Name: doc.Name, Archive: doc.Archive, Err: ErrUndetectedFormat}
		}
		format = detected
	}

	archive, err := Normalize(format, doc.Content, opts, doc.Archive)
	return Result{Name: doc.Name, Format: format, Archive: archive, Err: err}
}
