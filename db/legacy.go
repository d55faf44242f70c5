package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// LegacyURLPrefix is the scheme every legacy database URL must use
const LegacyURLPrefix = "postgres://"

// Legacy reads archives from the old PostgreSQL database
type Legacy struct {
	conn *sql.DB
}

// ValidateLegacyURL checks that url points at a PostgreSQL server
func ValidateLegacyURL(url string) error {
	if !strings.HasPrefix(url, LegacyURLPrefix) {
		return fmt.Errorf("legacy database URL must start with %s", LegacyURLPrefix)
	}
	return nil
}

// OpenLegacy connects to the legacy database and checks the connection
func OpenLegacy(ctx context.Context, url string) (*Legacy, error) {
	if err := ValidateLegacyURL(url); err != nil {
		return nil, err
	}

	conn, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping legacy database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return NewLegacy(conn), nil
}

// NewLegacy wraps an existing connection
func NewLegacy(conn *sql.DB) *Legacy {
	return &Legacy{conn: conn}
}

// Close closes the database connection
func (l *Legacy) Close() error {
	return l.conn.Close()
}

// ArchiveHashes returns the content hash of every legacy archive
func (l *Legacy) ArchiveHashes(ctx context.Context) ([]string, error) {
	rows, err := l.conn.QueryContext(ctx, "SELECT hash FROM archives")
	if err != nil {
		return nil, fmt.Errorf("failed to query archive hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("failed to scan archive hash: %w", err)
		}
		hashes = append(hashes, hash)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate archive hashes: %w", err)
	}
	return hashes, nil
}

// Archives returns every legacy archive row with all of its columns
func (l *Legacy) Archives(ctx context.Context) ([]Row, error) {
	rows, err := l.conn.QueryContext(ctx, "SELECT * FROM archives")
	if err != nil {
		return nil, fmt.Errorf("failed to query archives: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}
