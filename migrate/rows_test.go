package migrate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koharu/importer/db"
)

type fakeSource struct {
	rows []db.Row
	err  error
}

func (f fakeSource) Archives(ctx context.Context) ([]db.Row, error) {
	return f.rows, f.err
}

type recordingSink struct {
	rows []db.Row
	err  error
}

func (s *recordingSink) InsertArchives(ctx context.Context, rows []db.Row) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.rows = append(s.rows, rows...)
	return len(rows), nil
}

func TestRowsNormalizesTimestamps(t *testing.T) {
	created := time.Date(2022, time.March, 1, 21, 0, 0, 500_000_000, time.FixedZone("JST", 9*3600))
	src := fakeSource{rows: []db.Row{{
		Columns: []string{"id", "title", "created_at", "updated_at", "released_at", "deleted_at"},
		Values:  []any{int64(1), "First", created, "2022-03-02 10:00:00+00", nil, []byte("2022-03-03T00:00:00Z")},
	}}}
	sink := &recordingSink{}

	n, err := Rows(context.Background(), src, sink, RowOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sink.rows, 1)

	row := sink.rows[0]
	createdAt, _ := row.Value("created_at")
	assert.Equal(t, "2022-03-01T12:00:00.500Z", createdAt)
	updatedAt, _ := row.Value("updated_at")
	assert.Equal(t, "2022-03-02T10:00:00.000Z", updatedAt)
	releasedAt, _ := row.Value("released_at")
	assert.Nil(t, releasedAt)
	deletedAt, _ := row.Value("deleted_at")
	assert.Equal(t, "2022-03-03T00:00:00.000Z", deletedAt)
	title, _ := row.Value("title")
	assert.Equal(t, "First", title)
}

func TestRowsBadTimestamp(t *testing.T) {
	src := fakeSource{rows: []db.Row{{
		Columns: []string{"id", "created_at"},
		Values:  []any{int64(1), "yesterday"},
	}}}
	sink := &recordingSink{}

	_, err := Rows(context.Background(), src, sink, RowOptions{})
	assert.ErrorContains(t, err, "created_at")
	assert.Empty(t, sink.rows)
}

func TestRowsSourceError(t *testing.T) {
	_, err := Rows(context.Background(), fakeSource{err: errors.New("connection refused")}, &recordingSink{}, RowOptions{})
	assert.ErrorContains(t, err, "connection refused")
}

func TestRowsSinkError(t *testing.T) {
	src := fakeSource{rows: []db.Row{{Columns: []string{"id"}, Values: []any{int64(1)}}}}

	_, err := Rows(context.Background(), src, &recordingSink{err: errors.New("disk full")}, RowOptions{})
	assert.ErrorContains(t, err, "disk full")
}

func TestRowsFromLegacyIntoStore(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	columns := []string{"id", "slug", "title", "path", "hash", "pages", "size", "created_at", "updated_at", "released_at", "deleted_at"}
	created := time.Date(2021, time.June, 5, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM archives`).WillReturnRows(sqlmock.NewRows(columns).
		AddRow(int64(1), "first", "First", "/a/1.cbz", "h1", int64(10), int64(100), created, created, nil, nil).
		AddRow(int64(2), "second", "Second", "/a/2.cbz", "h2", int64(12), int64(200), created, created, created, nil))

	store, err := db.New(db.Config{Path: filepath.Join(t.TempDir(), "koharu.db")})
	require.NoError(t, err)
	defer store.Close()

	n, err := Rows(context.Background(), db.NewLegacy(conn), store, RowOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())

	a, err := store.GetArchive(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, a)
	require.NotNil(t, a.ReleasedAt)
	assert.True(t, a.ReleasedAt.Equal(created))
	assert.Equal(t, "Second", a.Title)
}
