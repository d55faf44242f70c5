package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/koharu/importer/models"
)

// TimestampLayout is the textual timestamp encoding of the archive store
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// maxParams is SQLite's default host parameter limit
const maxParams = 32766

// DB wraps the archive store connection and provides data access methods
type DB struct {
	conn *sql.DB
	path string
}

// Config contains database configuration
type Config struct {
	Path string // SQLite database file
}

// DefaultConfig returns default database configuration
func DefaultConfig() Config {
	return Config{
		Path: "./data/koharu.db",
	}
}

// New opens the archive store and applies pending migrations
func New(config Config) (*DB, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}

	if err := Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DB{conn: conn, path: config.Path}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// DB returns the underlying database connection
func (db *DB) DB() *sql.DB {
	return db.conn
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Count returns the number of archives in the store
func (db *DB) Count(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM archives").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count archives: %w", err)
	}
	return count, nil
}

// InsertArchives bulk-inserts rows into the archives table using multi-row
// INSERT statements. Rows must share one column set. Statements are not
// wrapped in a transaction: rows from earlier chunks stay on failure.
func (db *DB) InsertArchives(ctx context.Context, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	columns := rows[0].Columns
	quoted := make([]string, len(columns))
	for i, c := range columns {
		q, err := quoteIdentifier(c)
		if err != nil {
			return 0, err
		}
		quoted[i] = q
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	prefix := fmt.Sprintf("INSERT INTO archives (%s) VALUES ", strings.Join(quoted, ", "))

	chunkSize := max(maxParams/len(columns), 1)
	inserted := 0
	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))
		chunk := rows[start:end]

		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if len(row.Columns) != len(columns) || len(row.Values) != len(columns) {
				return inserted, fmt.Errorf("row %d has %d columns, expected %d", start+i, len(row.Values), len(columns))
			}
			args = append(args, row.Values...)
		}

		query := prefix + strings.TrimSuffix(strings.Repeat(placeholder+", ", len(chunk)), ", ")
		if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
			return inserted, fmt.Errorf("failed to insert archives %d-%d: %w", start, end-1, err)
		}
		inserted += len(chunk)
	}

	return inserted, nil
}

// GetArchive loads an archive and its metadata by ID. It returns nil when
// the archive does not exist.
func (db *DB) GetArchive(ctx context.Context, id int64) (*models.Archive, error) {
	return db.getArchive(ctx, "id = ?", id)
}

// GetArchiveByHash loads an archive and its metadata by content hash
func (db *DB) GetArchiveByHash(ctx context.Context, hash string) (*models.Archive, error) {
	return db.getArchive(ctx, "hash = ? AND deleted_at IS NULL", hash)
}

func (db *DB) getArchive(ctx context.Context, where string, arg any) (*models.Archive, error) {
	var (
		a          models.Archive
		language   sql.NullString
		releasedAt sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		"SELECT id, hash, path, pages, title, slug, language, released_at, has_metadata FROM archives WHERE "+where,
		arg,
	).Scan(&a.ID, &a.Hash, &a.Path, &a.Pages, &a.Title, &a.Slug, &language, &releasedAt, &a.HasMetadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get archive: %w", err)
	}

	if language.Valid {
		a.Language = &language.String
	}
	if releasedAt.Valid {
		if t, ok := parseTimestamp(releasedAt.String); ok {
			a.ReleasedAt = &t
		}
	}

	if err := db.loadMetadata(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *DB) loadMetadata(ctx context.Context, a *models.Archive) error {
	if err := db.loadNames(ctx, a); err != nil {
		return err
	}
	if err := db.loadTags(ctx, a); err != nil {
		return err
	}
	return db.loadSources(ctx, a)
}

func (db *DB) loadNames(ctx context.Context, a *models.Archive) error {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT kind, name FROM archive_names WHERE archive_id = ? ORDER BY kind, position", a.ID)
	if err != nil {
		return fmt.Errorf("failed to get archive names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, name string
		if err := rows.Scan(&kind, &name); err != nil {
			return fmt.Errorf("failed to scan archive name: %w", err)
		}
		switch kind {
		case "artist":
			a.Artists = append(a.Artists, name)
		case "circle":
			a.Circles = append(a.Circles, name)
		case "parody":
			a.Parodies = append(a.Parodies, name)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate archive names: %w", err)
	}
	return nil
}

func (db *DB) loadTags(ctx context.Context, a *models.Archive) error {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT name, category FROM archive_tags WHERE archive_id = ? ORDER BY position", a.ID)
	if err != nil {
		return fmt.Errorf("failed to get archive tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.Name, &tag.Category); err != nil {
			return fmt.Errorf("failed to scan archive tag: %w", err)
		}
		a.Tags = append(a.Tags, tag)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate archive tags: %w", err)
	}
	return nil
}

func (db *DB) loadSources(ctx context.Context, a *models.Archive) error {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT name, url FROM archive_sources WHERE archive_id = ? ORDER BY position", a.ID)
	if err != nil {
		return fmt.Errorf("failed to get archive sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var src models.Source
		if err := rows.Scan(&src.Name, &src.URL); err != nil {
			return fmt.Errorf("failed to scan archive source: %w", err)
		}
		a.Sources = append(a.Sources, src)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate archive sources: %w", err)
	}
	return nil
}

// SaveMetadata writes a normalized record back to an existing archive row,
// replacing its names, tags and sources atomically
func (db *DB) SaveMetadata(ctx context.Context, a models.Archive) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var releasedAt any
	if a.ReleasedAt != nil {
		releasedAt = FormatTimestamp(*a.ReleasedAt)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE archives
		SET title = ?, slug = ?, language = ?, released_at = ?, has_metadata = ?, updated_at = ?
		WHERE id = ?
	`, a.Title, a.Slug, a.Language, releasedAt, a.HasMetadata, FormatTimestamp(time.Now()), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update archive: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("archive %d not found", a.ID)
	}

	for _, table := range []string{"archive_names", "archive_tags", "archive_sources"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE archive_id = ?", a.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	names := []struct {
		kind   string
		values []string
	}{
		{"artist", a.Artists},
		{"circle", a.Circles},
		{"parody", a.Parodies},
	}
	for _, group := range names {
		for i, name := range group.values {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO archive_names (archive_id, kind, position, name) VALUES (?, ?, ?, ?)",
				a.ID, group.kind, i, name,
			); err != nil {
				return fmt.Errorf("failed to save %s: %w", group.kind, err)
			}
		}
	}

	for i, tag := range a.Tags {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO archive_tags (archive_id, position, name, category) VALUES (?, ?, ?, ?)",
			a.ID, i, tag.Name, string(tag.Category),
		); err != nil {
			return fmt.Errorf("failed to save tag: %w", err)
		}
	}

	for i, src := range a.Sources {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO archive_sources (archive_id, position, name, url) VALUES (?, ?, ?, ?)",
			a.ID, i, src.Name, src.URL,
		); err != nil {
			return fmt.Errorf("failed to save source: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FormatTimestamp encodes t the way the archive store keeps timestamps
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// parseTimestamp accepts the store encoding and common RFC 3339 variants
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{TimestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
