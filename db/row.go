package db

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// Row is one archive row copied between stores. Columns and Values are
// parallel; the column set is whatever the legacy table carries.
type Row struct {
	Columns []string
	Values  []any
}

// Value returns the value of column name
func (r Row) Value(name string) (any, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Set replaces the value of an existing column. It reports whether the
// column was found.
func (r Row) Set(name string, v any) bool {
	for i, c := range r.Columns {
		if c == name {
			r.Values[i] = v
			return true
		}
	}
	return false
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdentifier quotes a column name after checking it is a plain identifier
func quoteIdentifier(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", fmt.Errorf("invalid column name %q", name)
	}
	return `"` + name + `"`, nil
}

// scanRows reads every row of a query whose columns are not known up front
func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i, v := range values {
			// drivers hand back numeric and text-like columns as raw bytes
			if b, ok := v.([]byte); ok && !strings.EqualFold(types[i].DatabaseTypeName(), "BYTEA") {
				values[i] = string(b)
			}
		}

		result = append(result, Row{Columns: columns, Values: values})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return result, nil
}
