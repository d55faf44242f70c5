package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/koharu/importer/db"
)

// timestampColumns are re-encoded into the new store's timestamp format
var timestampColumns = []string{"created_at", "updated_at", "released_at", "deleted_at"}

// legacyTimestampLayouts are the textual encodings PostgreSQL hands back
// for timestamp columns
var legacyTimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// RowSource provides legacy archive rows
type RowSource interface {
	Archives(ctx context.Context) ([]db.Row, error)
}

// RowSink receives archive rows
type RowSink interface {
	InsertArchives(ctx context.Context, rows []db.Row) (int, error)
}

// RowOptions configures a row migration
type RowOptions struct {
	Logger *slog.Logger
}

// Rows copies every archive row from src to dst in a single pass, with
// timestamp columns re-encoded as UTC millisecond strings. It is neither
// transactional nor resumable and returns the number of rows inserted.
func Rows(ctx context.Context, src RowSource, dst RowSink, opts RowOptions) (int, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.New().String()
	logger = logger.With("run_id", runID, "job", "rows")

	ctx, span := tracer.Start(ctx, "migrate.Rows")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID))

	start := time.Now()
	rows, err := src.Archives(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to read legacy archives: %w", err)
	}
	logger.Info("read legacy archives", "rows", len(rows))

	for i, row := range rows {
		if err := normalizeTimestamps(row); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
	}

	inserted, err := dst.InsertArchives(ctx, rows)
	rowsInserted.Add(float64(inserted))
	span.SetAttributes(attribute.Int("rows.inserted", inserted))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return inserted, fmt.Errorf("failed to insert archives: %w", err)
	}

	logger.Info("row migration finished", "duration", time.Since(start), "rows", inserted)
	return inserted, nil
}

// normalizeTimestamps rewrites the timestamp columns of row in place
func normalizeTimestamps(row db.Row) error {
	for _, column := range timestampColumns {
		v, ok := row.Value(column)
		if !ok || v == nil {
			continue
		}
		t, err := toTime(v)
		if err != nil {
			return fmt.Errorf("column %s: %w", column, err)
		}
		row.Set(column, db.FormatTimestamp(t))
	}
	return nil
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case []byte:
		return parseLegacyTimestamp(string(t))
	case string:
		return parseLegacyTimestamp(t)
	case int64:
		return time.UnixMilli(t), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp value of type %T", v)
	}
}

func parseLegacyTimestamp(s string) (time.Time, error) {
	for _, layout := range legacyTimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
