package database

import (
	"context"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schemaFS embed.FS

const schemaFile = "schema.sql"

// InitSchema drops every table and recreates it from the bundled schema script.
// All existing data is discarded.
func InitSchema(ctx context.Context) error {
	conn, err := Get(ctx)
	if err != nil {
		return err
	}

	script, err := schemaFS.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", schemaFile, err)
	}

	log.Debug().Str("path", conn.Path()).Msg("Initializing database schema")

	return conn.ExecScript(ctx, string(script))
}

// ExecScript executes a multi-statement SQL script in a single transaction.
// The script is passed to the driver as is.
func (c *Conn) ExecScript(ctx context.Context, script string) error {
	return c.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, script); err != nil {
			return fmt.Errorf("failed to execute script: %w", err)
		}
		return nil
	})
}

// Tables returns the names of the user tables in the database, sorted.
func (c *Conn) Tables(ctx context.Context) ([]string, error) {
	var names []string
	err := c.SelectContext(ctx, &names, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}
