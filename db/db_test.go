package db

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/koharu/importer/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Config{Path: filepath.Join(t.TempDir(), "koharu.db")})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return db
}

func archiveRow(id int, hash string) Row {
	return Row{
		Columns: []string{"id", "slug", "title", "path", "hash", "pages", "size", "created_at", "updated_at", "released_at", "deleted_at"},
		Values: []any{
			int64(id), fmt.Sprintf("archive-%d", id), fmt.Sprintf("Archive %d", id), fmt.Sprintf("/library/%d.cbz", id), hash, int64(20), int64(1024),
			"2023-01-15T10:30:00.000Z", "2023-01-16T10:30:00.000Z", nil, nil,
		},
	}
}

func TestMigrationsApplied(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	status, err := GetMigrationStatus(db.DB())
	if err != nil {
		t.Fatalf("Failed to get migration status: %v", err)
	}
	if len(status) != len(sqliteMigrations) {
		t.Fatalf("got %d migrations, want %d", len(status), len(sqliteMigrations))
	}
	for _, s := range status {
		if !s.Applied {
			t.Errorf("migration %d (%s) not applied", s.Version, s.Name)
		}
	}

	// reopening must not re-run migrations
	if err := Migrate(db.DB()); err != nil {
		t.Fatalf("Migrate on an up-to-date database failed: %v", err)
	}
}

func TestRollback(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := Rollback(db.DB()); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	version, err := getCurrentVersion(db.DB())
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != 1 {
		t.Errorf("version after rollback = %d, want 1", version)
	}
}

func TestInsertArchives(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	rows := make([]Row, 0, 50)
	for i := 1; i <= 50; i++ {
		rows = append(rows, archiveRow(i, fmt.Sprintf("hash-%d", i)))
	}

	inserted, err := db.InsertArchives(ctx, rows)
	if err != nil {
		t.Fatalf("InsertArchives failed: %v", err)
	}
	if inserted != 50 {
		t.Errorf("inserted %d rows, want 50", inserted)
	}

	count, err := db.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 50 {
		t.Errorf("count = %d, want 50", count)
	}

	a, err := db.GetArchiveByHash(ctx, "hash-7")
	if err != nil {
		t.Fatalf("GetArchiveByHash failed: %v", err)
	}
	if a == nil || a.ID != 7 || a.Title != "Archive 7" || a.Pages != 20 {
		t.Errorf("unexpected archive %+v", a)
	}
	if a.ReleasedAt != nil || a.Language != nil {
		t.Errorf("expected null columns to stay unset, got %+v", a)
	}
}

func TestInsertArchivesRejectsBadColumns(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	bad := Row{Columns: []string{"id; DROP TABLE archives"}, Values: []any{1}}
	if _, err := db.InsertArchives(context.Background(), []Row{bad}); err == nil {
		t.Fatal("expected error for invalid column name")
	}

	mismatched := []Row{archiveRow(1, "a"), {Columns: []string{"id"}, Values: []any{int64(2)}}}
	if _, err := db.InsertArchives(context.Background(), mismatched); err == nil {
		t.Fatal("expected error for mismatched column sets")
	}
}

func TestGetArchiveNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	a, err := db.GetArchive(context.Background(), 404)
	if err != nil {
		t.Fatalf("GetArchive failed: %v", err)
	}
	if a != nil {
		t.Errorf("expected nil archive, got %+v", a)
	}
}

func TestSaveMetadataRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	if _, err := db.InsertArchives(ctx, []Row{archiveRow(1, "abc")}); err != nil {
		t.Fatalf("InsertArchives failed: %v", err)
	}

	lang := "english"
	released := time.Date(2023, time.January, 15, 10, 30, 0, 0, time.UTC)
	record := models.Archive{
		ID:          1,
		Title:       "Summer Days",
		Slug:        "summer-days",
		Language:    &lang,
		ReleasedAt:  &released,
		Artists:     []string{"Jane Doe", "John Roe"},
		Circles:     []string{"Team Nova"},
		Parodies:    []string{"Original"},
		Tags:        []models.Tag{{Name: "Glasses", Category: models.CategoryFemale}, {Name: "Full Color", Category: models.CategoryMisc}},
		Sources:     []models.Source{{Name: "E-Hentai", URL: "https://e-hentai/g/1/x"}},
		HasMetadata: true,
	}

	if err := db.SaveMetadata(ctx, record); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}
	// saving twice replaces instead of appending
	if err := db.SaveMetadata(ctx, record); err != nil {
		t.Fatalf("second SaveMetadata failed: %v", err)
	}

	got, err := db.GetArchive(ctx, 1)
	if err != nil {
		t.Fatalf("GetArchive failed: %v", err)
	}
	if got.Title != "Summer Days" || got.Slug != "summer-days" || !got.HasMetadata {
		t.Errorf("unexpected archive %+v", got)
	}
	if got.Language == nil || *got.Language != "english" {
		t.Errorf("language = %v", got.Language)
	}
	if got.ReleasedAt == nil || !got.ReleasedAt.Equal(released) {
		t.Errorf("released_at = %v, want %v", got.ReleasedAt, released)
	}
	if len(got.Artists) != 2 || got.Artists[0] != "Jane Doe" || got.Artists[1] != "John Roe" {
		t.Errorf("artists = %v", got.Artists)
	}
	if len(got.Circles) != 1 || len(got.Parodies) != 1 {
		t.Errorf("circles = %v parodies = %v", got.Circles, got.Parodies)
	}
	if len(got.Tags) != 2 || got.Tags[0] != record.Tags[0] || got.Tags[1] != record.Tags[1] {
		t.Errorf("tags = %+v", got.Tags)
	}
	if len(got.Sources) != 1 || got.Sources[0] != record.Sources[0] {
		t.Errorf("sources = %+v", got.Sources)
	}
}

func TestSaveMetadataMissingArchive(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := db.SaveMetadata(context.Background(), models.Archive{ID: 99, Title: "t", Slug: "t"}); err == nil {
		t.Fatal("expected error for missing archive")
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2023, time.January, 15, 19, 30, 0, 123456789, time.FixedZone("JST", 9*3600))
	if got := FormatTimestamp(ts); got != "2023-01-15T10:30:00.123Z" {
		t.Errorf("FormatTimestamp = %q", got)
	}
}
