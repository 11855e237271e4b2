// Package store wraps the embedded DuckDB database behind an explicit
// connection factory. Every operation opens the database, runs, and closes
// it again, so no handle is held across requests.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

type Row map[string]any

type ResultSet struct {
	Columns []string
	Rows    []Row
}

type OpenFunc func() (*sql.DB, error)

type Store struct {
	open       OpenFunc
	historyTTL time.Duration
}

// Bookkeeping tables are never exposed to prompt construction. DuckDB
// sequences do not show up in information_schema.columns, so the history
// table is the only entry today.
var internalTables = map[string]struct{}{
	"conversation_history": {},
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func New(path string, historyTTL time.Duration) *Store {
	return &Store{
		open: func() (*sql.DB, error) {
			return sql.Open("duckdb", path)
		},
		historyTTL: historyTTL,
	}
}

// NewWithOpener injects the connection factory, which tests use to swap in
// a mocked database.
func NewWithOpener(open OpenFunc, historyTTL time.Duration) *Store {
	return &Store{open: open, historyTTL: historyTTL}
}

func (s *Store) withDB(fn func(db *sql.DB) error) error {
	db, err := s.open()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}

// Ping verifies the database can be opened and reached.
func (s *Store) Ping(ctx context.Context) error {
	return s.withDB(func(db *sql.DB) error {
		return db.PingContext(ctx)
	})
}

// Snapshot reads the current user tables and their columns, ordered by table
// name and ordinal position. It is read fresh on every call, never cached.
func (s *Store) Snapshot(ctx context.Context) ([]Table, error) {
	var tables []Table
	err := s.withDB(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `
			SELECT table_name, column_name, data_type
			FROM information_schema.columns
			WHERE table_schema = 'main'
			ORDER BY table_name, ordinal_position`)
		if err != nil {
			return fmt.Errorf("introspect schema: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var tableName, columnName, dataType string
			if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
				return fmt.Errorf("scan schema row: %w", err)
			}
			if _, internal := internalTables[tableName]; internal {
				continue
			}
			if len(tables) == 0 || tables[len(tables)-1].Name != tableName {
				tables = append(tables, Table{Name: tableName})
			}
			last := &tables[len(tables)-1]
			last.Columns = append(last.Columns, Column{Name: columnName, Type: dataType})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// CreateTableFromCSV replaces any existing table of the same name with one
// built from the CSV file at csvPath. Column names and types are inferred by
// the engine. Returns the row count of the new table.
func (s *Store) CreateTableFromCSV(ctx context.Context, tableName, csvPath string) (int64, error) {
	if !identPattern.MatchString(tableName) {
		return 0, fmt.Errorf("invalid table name: %q", tableName)
	}
	var count int64
	err := s.withDB(func(db *sql.DB) error {
		createSQL := fmt.Sprintf(
			`CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s, header = true)`,
			quoteIdent(tableName), quoteString(csvPath),
		)
		if _, err := db.ExecContext(ctx, createSQL); err != nil {
			return fmt.Errorf("create table %q: %w", tableName, err)
		}
		row := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdent(tableName)))
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("count rows of %q: %w", tableName, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DropTable removes a table by name. Dropping an absent table is a no-op.
func (s *Store) DropTable(ctx context.Context, tableName string) error {
	if !identPattern.MatchString(tableName) {
		return fmt.Errorf("invalid table name: %q", tableName)
	}
	return s.withDB(func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(tableName))); err != nil {
			return fmt.Errorf("drop table %q: %w", tableName, err)
		}
		return nil
	})
}

// Execute runs the candidate SQL verbatim apart from trailing-semicolon
// stripping. Engine errors are returned unmodified so the caller can surface
// them next to the SQL that was attempted.
func (s *Store) Execute(ctx context.Context, sqlText string) (ResultSet, error) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return ResultSet{}, fmt.Errorf("sql is required")
	}

	var result ResultSet
	err := s.withDB(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, sqlText)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		columns, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("query columns: %w", err)
		}
		result.Columns = columns
		result.Rows = make([]Row, 0)

		for rows.Next() {
			values := make([]any, len(columns))
			scanTargets := make([]any, len(columns))
			for i := range values {
				scanTargets[i] = &values[i]
			}
			if err := rows.Scan(scanTargets...); err != nil {
				return fmt.Errorf("scan row: %w", err)
			}
			row := make(Row, len(columns))
			for i, column := range columns {
				row[column] = normalizeValue(values[i])
			}
			result.Rows = append(result.Rows, row)
		}
		return rows.Err()
	})
	if err != nil {
		return ResultSet{}, err
	}
	return result, nil
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	default:
		return typed
	}
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
