package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

func init() {
	// sqlx only knows mattn's "sqlite3" name out of the box
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Row is a result row addressed by column name.
type Row map[string]any

// Conn wraps a single SQLite connection. A Conn is owned by exactly one Scope
// and is closed when that Scope is torn down.
type Conn struct {
	*sqlx.DB
	path string
}

// Open opens a connection to the SQLite file at path.
// Columns declared as DATE, DATETIME or TIMESTAMP are decoded into time.Time.
func Open(path string) (*Conn, error) {
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", path)

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A Conn is one connection, never a pool
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Trace().Str("path", path).Msg("Database connection opened")

	return &Conn{
		DB:   db,
		path: path,
	}, nil
}

// Path returns the database file path
func (c *Conn) Path() string {
	return c.path
}

// Rows runs a query and returns every row keyed by column name.
func (c *Conn) Rows(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := c.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Row runs a query and returns the first row keyed by column name.
// Returns sql.ErrNoRows when the query yields nothing.
func (c *Conn) Row(ctx context.Context, query string, args ...any) (Row, error) {
	row := Row{}
	if err := c.QueryRowxContext(ctx, query, args...).MapScan(row); err != nil {
		return nil, err
	}
	return row, nil
}

// Transaction wraps a function in a database transaction
func (c *Conn) Transaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := c.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			log.Error().Err(rbErr).Msg("Failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// String returns the named column as a string, or "" when it is NULL or missing.
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns the named column as an int64, or 0 when it is not an integer.
func (r Row) Int64(column string) int64 {
	v, _ := r[column].(int64)
	return v
}
